package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActionIndicatorRoundTrip(t *testing.T) {
	const boardSize = 3
	ind := make([]float32, ActionSpace(boardSize))
	for a := NoAction; a < int32(ActionSpace(boardSize)); a++ {
		if err := ActionToIndicator(a, boardSize, ind); err != nil {
			t.Fatalf("action %d: %+v", a, err)
		}
		back, err := IndicatorToAction(ind, boardSize)
		if err != nil {
			t.Fatalf("action %d: %+v", a, err)
		}
		assert.Equal(t, a, back)
	}
}

func TestActionToIndicatorSentinel(t *testing.T) {
	ind := make([]float32, ActionSpace(3))
	ind[4] = 1 // stale content must be cleared
	if err := ActionToIndicator(NoAction, 3, ind); err != nil {
		t.Fatalf("%+v", err)
	}
	for i, v := range ind {
		assert.Zerof(t, v, "index %d", i)
	}
}

func TestActionToIndicatorBounds(t *testing.T) {
	ind := make([]float32, ActionSpace(3))
	assert.Error(t, ActionToIndicator(int32(ActionSpace(3)), 3, ind))
	assert.Error(t, ActionToIndicator(-2, 3, ind))

	short := make([]float32, 3)
	err := ActionToIndicator(0, 3, short)
	assert.True(t, IsShapeMismatch(err))
}
