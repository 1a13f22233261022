package muzgo

import (
	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// stepTerminal reports whether the recorded state (n, t) carries the end
// flag. The planes are frozen after the game ends, so no rules call is
// needed to read this off a trajectory.
func stepTerminal(traj *game.Trajectories, n, t int) bool {
	b := traj.BoardSize()
	return traj.StateData(n, t)[game.PlaneEnd*b*b] != 0
}

// finalIndices returns, per instance, the step of the first terminal state,
// or the last recorded step when the game never ended. Scoring an
// unfinished game at its last position is deliberate: the trajectory is all
// we have.
func finalIndices(traj *game.Trajectories) []int {
	out := make([]int, traj.Batch())
	for n := range out {
		out[n] = traj.Steps() - 1
		for t := 0; t < traj.Steps(); t++ {
			if stepTerminal(traj, n, t) {
				out[n] = t
				break
			}
		}
	}
	return out
}

// Winners scores every trajectory at its final state and returns the
// outcome sign per instance: +1 black wins, -1 white wins, 0 tie.
func Winners(rules game.Rules, traj *game.Trajectories) ([]float32, error) {
	finals := traj.Gather(finalIndices(traj))
	ownership, err := rules.AreaOwnership(finals)
	if err != nil {
		return nil, errors.WithMessage(err, "scoring final states")
	}
	b := traj.BoardSize()
	area := b * b
	data := ownership.Data().([]float32)
	out := make([]float32, traj.Batch())
	for n := range out {
		var black, white float32
		for p := 0; p < area; p++ {
			black += data[n*2*area+p]
			white += data[n*2*area+area+p]
		}
		switch {
		case black > white:
			out[n] = 1
		case white > black:
			out[n] = -1
		}
	}
	return out, nil
}

// GetOutcomeLabels derives the (N, T) float32 grid of outcome labels, each
// from the point of view of the player to move at that step. Black moves
// first, so even steps carry the winner sign and odd steps its negation.
// The alternation is strict in t: it keeps flipping over the frozen tail of
// a finished game as well.
func GetOutcomeLabels(rules game.Rules, traj *game.Trajectories) (*tensor.Dense, error) {
	winners, err := Winners(rules, traj)
	if err != nil {
		return nil, err
	}
	steps := traj.Steps()
	backing := make([]float32, traj.Batch()*steps)
	for n, w := range winners {
		for t := 0; t < steps; t++ {
			if t%2 == 0 {
				backing[n*steps+t] = w
			} else {
				backing[n*steps+t] = -w
			}
		}
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(traj.Batch(), steps)), nil
}
