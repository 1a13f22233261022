package muzgo

import (
	"testing"

	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/game/baduk"
	"github.com/stretchr/testify/assert"
)

func passPolicy(states *game.States, stream Stream) ([]int32, error) {
	out := make([]int32, states.Batch())
	for n := range out {
		out[n] = game.PassIndex(states.BoardSize())
	}
	return out, nil
}

// scriptedPolicy replays a fixed [step][instance] action table.
func scriptedPolicy(moves [][]int32) Policy {
	step := 0
	return func(states *game.States, stream Stream) ([]int32, error) {
		out := make([]int32, len(moves[step]))
		copy(out, moves[step])
		step++
		return out, nil
	}
}

func TestSelfPlayPassEndsGame(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 1, 3)
	if err := SelfPlay(rules, traj, passPolicy, NewStream(42)); err != nil {
		t.Fatalf("%+v", err)
	}

	assert.Equal(t, game.PassIndex(3), traj.Action(0, 0))
	assert.Equal(t, game.NoAction, traj.Action(0, 1))
	assert.Equal(t, game.NoAction, traj.Action(0, 2))

	assert.False(t, traj.Column(0).Terminal(0))
	assert.True(t, traj.Column(1).Terminal(0))
	assert.True(t, traj.Column(1).Eq(traj.Column(2)), "terminal state must stay frozen")
}

func TestSelfPlayColumnsFollow(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 4, 6)
	if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(7)); err != nil {
		t.Fatalf("%+v", err)
	}

	for step := 0; step < traj.Steps()-1; step++ {
		cur := traj.Column(step)
		actions := make([]int32, traj.Batch())
		for n := range actions {
			actions[n] = traj.Action(n, step)
		}
		next, err := rules.NextStates(cur, actions)
		if err != nil {
			t.Fatalf("step %d: %+v", step, err)
		}
		assert.Truef(t, next.Eq(traj.Column(step+1)), "column %d does not follow from column %d", step+1, step)
	}
}

func TestSelfPlayDeterminism(t *testing.T) {
	rules := baduk.New(3)

	play := func(seed int64) *game.Trajectories {
		traj := game.NewTrajectories(3, 4, 6)
		if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(seed)); err != nil {
			t.Fatalf("%+v", err)
		}
		return traj
	}

	assert.True(t, play(13).Eq(play(13)), "same seed must reproduce the same games")
	assert.False(t, play(13).Eq(play(14)), "different seeds should diverge")
}

func TestSelfPlayRejectsShortPolicy(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 2, 3)
	short := func(states *game.States, stream Stream) ([]int32, error) {
		return []int32{game.PassIndex(3)}, nil
	}
	err := SelfPlay(rules, traj, short, NewStream(1))
	assert.True(t, IsInvalidArgument(err))
}
