package muzgo

import (
	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// SampleGameData cuts one training window out of every trajectory: a start
// state sampled uniformly among its non-terminal steps, the state reached
// up to k real actions later, the actions in between, and outcome and
// ownership labels for both endpoints. The horizon k is drawn once per call
// from [1, maxHypoSteps] and clamped per instance to the remaining game
// length; the clamp is expected, not an error.
//
// The action grid has fixed width maxHypoSteps. Slots at or beyond an
// instance's effective horizon hold game.NoAction even when the trajectory
// recorded a real action there, so nothing past the end state leaks to the
// caller.
func SampleGameData(rules game.Rules, traj *game.Trajectories, stream Stream, maxHypoSteps int) (*GameData, error) {
	if maxHypoSteps < 1 {
		return nil, invalidArgumentf("maxHypoSteps must be at least 1, got %d", maxHypoSteps)
	}
	batch := traj.Batch()
	steps := traj.Steps()

	labels, err := GetOutcomeLabels(rules, traj)
	if err != nil {
		return nil, err
	}
	labelData := labels.Data().([]float32)
	finals := finalIndices(traj)
	ownership, err := rules.AreaOwnership(traj.Gather(finals))
	if err != nil {
		return nil, errors.WithMessage(err, "scoring final states")
	}

	rStart := stream.FoldIn(0).Rand()
	k := 1 + stream.FoldIn(1).Rand().Intn(maxHypoSteps)

	starts := make([]int, batch)
	ends := make([]int, batch)
	effective := make([]int, batch)
	for n := 0; n < batch; n++ {
		live := 0
		for t := 0; t < steps; t++ {
			if !stepTerminal(traj, n, t) {
				live++
			}
		}
		if live == 0 {
			return nil, errors.Errorf("instance %d has no non-terminal state", n)
		}
		pick := rStart.Intn(live)
		for t := 0; t < steps; t++ {
			if stepTerminal(traj, n, t) {
				continue
			}
			if pick == 0 {
				starts[n] = t
				break
			}
			pick--
		}

		end := starts[n] + k
		if end > finals[n] {
			end = finals[n]
		}
		ends[n] = end
		effective[n] = end - starts[n]
	}

	actions := make([]int32, batch*maxHypoSteps)
	for n := 0; n < batch; n++ {
		for j := 0; j < maxHypoSteps; j++ {
			a := game.NoAction
			if j < effective[n] {
				a = traj.Action(n, starts[n]+j)
			}
			actions[n*maxHypoSteps+j] = a
		}
	}

	startStates := traj.Gather(starts)
	endStates := traj.Gather(ends)

	startLabels := make([]float32, batch)
	endLabels := make([]float32, batch)
	for n := 0; n < batch; n++ {
		startLabels[n] = labelData[n*steps+starts[n]]
		endLabels[n] = labelData[n*steps+ends[n]]
	}

	b := traj.BoardSize()
	return &GameData{
		StartStates:    startStates,
		EndStates:      endStates,
		Actions:        tensor.New(tensor.WithBacking(actions), tensor.WithShape(batch, maxHypoSteps)),
		StartLabels:    tensor.New(tensor.WithBacking(startLabels), tensor.WithShape(batch)),
		EndLabels:      tensor.New(tensor.WithBacking(endLabels), tensor.WithShape(batch)),
		StartAreas:     orientOwnership(ownership, startStates, b),
		EndAreas:       orientOwnership(ownership, endStates, b),
		RequestedSteps: k,
		EffectiveSteps: effective,
	}, nil
}

// orientOwnership reorders the (N, 2, H, W) black/white ownership planes
// into own/opponent order for whoever moves at each of the given states.
func orientOwnership(ownership *tensor.Dense, states *game.States, boardSize int) *tensor.Dense {
	area := boardSize * boardSize
	src := ownership.Data().([]float32)
	batch := states.Batch()
	backing := make([]float32, batch*2*area)
	for n := 0; n < batch; n++ {
		black := src[n*2*area : n*2*area+area]
		white := src[n*2*area+area : (n+1)*2*area]
		own := backing[n*2*area : n*2*area+area]
		opp := backing[n*2*area+area : (n+1)*2*area]
		if states.ToMove(n) == game.White {
			black, white = white, black
		}
		copy(own, black)
		copy(opp, white)
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(batch, 2, boardSize, boardSize))
}
