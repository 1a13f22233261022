package muzgo

import (
	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
)

// SelfPlay simulates a batch of games into traj. Column 0 must already hold
// the start states; the remaining columns and the action grid are filled in
// place. Columns are filled strictly left to right so column t+1 always
// follows from column t under the recorded action.
//
// Once an instance reaches a terminal state it stays frozen: its later
// columns repeat the terminal state and its later actions stay
// game.NoAction. The stream is folded with the step index, so the draws at
// step t do not depend on how many draws earlier steps consumed.
func SelfPlay(rules game.Rules, traj *game.Trajectories, policy Policy, stream Stream) error {
	batch := traj.Batch()
	steps := traj.Steps()

	cur := traj.Column(0)
	for t := 0; t < steps-1; t++ {
		actions, err := policy(cur, stream.FoldIn(uint64(t)))
		if err != nil {
			return errors.WithMessagef(err, "policy at step %d", t)
		}
		if len(actions) != batch {
			return invalidArgumentf("policy returned %d actions for a batch of %d", len(actions), batch)
		}
		terminal := rules.Terminal(cur)
		for n := range actions {
			if terminal[n] {
				actions[n] = game.NoAction
			}
		}

		next, err := rules.NextStates(cur, actions)
		if err != nil {
			return errors.WithMessagef(err, "stepping at %d", t)
		}
		for n, a := range actions {
			traj.SetAction(n, t, a)
		}
		traj.SetColumn(t+1, next)
		cur = next
	}
	return nil
}
