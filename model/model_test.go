package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModelCheck(t *testing.T) {
	m := NewDummy(3)
	assert.NoError(t, m.Check())
	assert.Equal(t, 10, m.ActionSpace())

	m.Value = nil
	assert.Error(t, m.Check())
}

func TestParamsCloneIsDeep(t *testing.T) {
	m := NewLinear(3, 4, 1)
	c := m.Params.Clone()
	for name := range m.Params {
		a := m.Params[name].Data().([]float32)
		b := c[name].Data().([]float32)
		assert.Equal(t, a, b)
		b[0] += 1
		assert.NotEqual(t, a[0], b[0], "clone of %q shares backing memory", name)
	}
}
