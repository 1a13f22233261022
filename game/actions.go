package game

import "github.com/pkg/errors"

// Actions exist in two forms: the integer index into the boardSize²+1
// action space, and an indicator vector of the same width whose first
// boardSize² entries form a one-hot spatial grid and whose last entry is
// the pass bit. The NoAction sentinel round-trips as the all-zero
// indicator. Both conversions are lossless.

// ActionToIndicator writes the indicator form of a into dst, which must
// have length boardSize²+1.
func ActionToIndicator(a int32, boardSize int, dst []float32) error {
	if len(dst) != ActionSpace(boardSize) {
		return shapeMismatchf("indicator must have length %d, got %d", ActionSpace(boardSize), len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	if a == NoAction {
		return nil
	}
	if a < 0 || int(a) >= ActionSpace(boardSize) {
		return errors.Errorf("action %d outside the %d-wide action space", a, ActionSpace(boardSize))
	}
	dst[a] = 1
	return nil
}

// IndicatorToAction recovers the integer action from its indicator form.
// An all-zero indicator maps back to NoAction.
func IndicatorToAction(ind []float32, boardSize int) (int32, error) {
	if len(ind) != ActionSpace(boardSize) {
		return NoAction, shapeMismatchf("indicator must have length %d, got %d", ActionSpace(boardSize), len(ind))
	}
	for i, v := range ind {
		if v != 0 {
			return int32(i), nil
		}
	}
	return NoAction, nil
}
