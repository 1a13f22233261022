package model

import (
	"testing"

	"github.com/gorgonia/muzgo/game"
	"github.com/stretchr/testify/assert"
)

func TestDummyHeads(t *testing.T) {
	m := NewDummy(3)
	states := game.NewStates(3, 2)
	states.Plane(1, game.PlaneBlack)[4] = 1

	embeds, _, err := m.Embed(m.Params, nil, states)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, []int{2, m.EmbedDim}, []int(embeds.Shape()))
	// identity flatten: the embedding is the raw plane data
	assert.Equal(t, states.Data(), embeds.Data().([]float32))

	values, _, err := m.Value(m.Params, nil, embeds)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, []int{2}, []int(values.Shape()))
	assert.Equal(t, []float32{0, 0}, values.Data().([]float32))

	policies, _, err := m.Policy(m.Params, nil, embeds)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, []int{2, 10}, []int(policies.Shape()))

	areas, _, err := m.Area(m.Params, nil, embeds)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, []int{2, 2, 3, 3}, []int(areas.Shape()))
}

func TestDummyTransitionReplicates(t *testing.T) {
	m := NewDummy(3)
	states := game.NewStates(3, 1)
	states.Plane(0, game.PlaneWhite)[0] = 1

	embeds, _, err := m.Embed(m.Params, nil, states)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	trans, _, err := m.Transition(m.Params, nil, embeds)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, []int{1, 10, m.EmbedDim}, []int(trans.Shape()))

	data := trans.Data().([]float32)
	cur := embeds.Data().([]float32)
	for a := 0; a < 10; a++ {
		assert.Equalf(t, cur, data[a*m.EmbedDim:(a+1)*m.EmbedDim], "action %d", a)
	}
}
