package muzgo

import (
	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
)

// RotationallyAugment rotates trajectories in place to spread the batch over
// the four board symmetries. The batch is cut into four contiguous quarters
// and quarter q is rotated by q quarter turns: every spatial plane of every
// recorded state, and every recorded action through its indicator form.
// Quarter 0 is untouched, and pass and the NoAction sentinel have no spatial
// position so they map to themselves.
func RotationallyAugment(traj *game.Trajectories) error {
	b := traj.BoardSize()
	bounds := quarterBounds(traj.Batch())
	indicator := make([]float32, game.ActionSpace(b))
	for q := 1; q < 4; q++ {
		for n := bounds[q]; n < bounds[q+1]; n++ {
			for t := 0; t < traj.Steps(); t++ {
				st := traj.StateData(n, t)
				for p := 0; p < game.NumPlanes; p++ {
					plane := st[p*b*b : (p+1)*b*b]
					for r := 0; r < q; r++ {
						rotateQuarter(plane, b)
					}
				}

				a := traj.Action(n, t)
				if err := game.ActionToIndicator(a, b, indicator); err != nil {
					return errors.WithMessagef(err, "action at (%d, %d)", n, t)
				}
				for r := 0; r < q; r++ {
					rotateQuarter(indicator[:b*b], b)
				}
				rotated, err := game.IndicatorToAction(indicator, b)
				if err != nil {
					return err
				}
				traj.SetAction(n, t, rotated)
			}
		}
	}
	return nil
}

// quarterBounds cuts [0, batch) into four contiguous spans, earlier spans
// taking the remainder. Returns the five boundary offsets.
func quarterBounds(batch int) [5]int {
	var bounds [5]int
	size, rem := batch/4, batch%4
	for q := 0; q < 4; q++ {
		n := size
		if q < rem {
			n++
		}
		bounds[q+1] = bounds[q] + n
	}
	return bounds
}

// rotateQuarter turns a square plane a quarter turn counterclockwise in
// place, cycling four cells at a time ring by ring.
func rotateQuarter(plane []float32, b int) {
	for i := 0; i < b/2; i++ {
		bi1 := b - i - 1
		for j := i; j < bi1; j++ {
			bj1 := b - j - 1
			tmp := plane[i*b+j]
			// right to top
			plane[i*b+j] = plane[j*b+bi1]
			// bottom to right
			plane[j*b+bi1] = plane[bi1*b+bj1]
			// left to bottom
			plane[bi1*b+bj1] = plane[bj1*b+i]
			// tmp is left
			plane[bj1*b+i] = tmp
		}
	}
}
