package muzgo

import (
	"testing"

	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/game/baduk"
	"github.com/stretchr/testify/assert"
)

func TestSampleGameDataInvalidHorizon(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 1, 2)
	_, err := SampleGameData(rules, traj, NewStream(1), 0)
	assert.True(t, IsInvalidArgument(err))
	_, err = SampleGameData(rules, traj, NewStream(1), -3)
	assert.True(t, IsInvalidArgument(err))
}

func TestSampleGameDataTwoStepWindow(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 1, 2)
	if err := SelfPlay(rules, traj, passPolicy, NewStream(3)); err != nil {
		t.Fatalf("%+v", err)
	}
	// only step 0 is non-terminal, so the window is forced
	data, err := SampleGameData(rules, traj, NewStream(3), 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	assert.Equal(t, 1, data.RequestedSteps)
	assert.Equal(t, []int{1}, data.EffectiveSteps)
	assert.True(t, data.StartStates.Eq(traj.Column(0)))
	assert.True(t, data.EndStates.Eq(traj.Column(1)))
	assert.Equal(t, []int{1, 1}, []int(data.Actions.Shape()))
	assert.Equal(t, game.PassIndex(3), data.Actions.Data().([]int32)[0])

	// empty board is a tie whichever side is to move
	assert.Equal(t, []float32{0}, data.StartLabels.Data().([]float32))
	assert.Equal(t, []float32{0}, data.EndLabels.Data().([]float32))
	assert.Equal(t, []int{1, 2, 3, 3}, []int(data.StartAreas.Shape()))
}

func TestSampleGameDataNoLeak(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 8, 6)
	if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(21)); err != nil {
		t.Fatalf("%+v", err)
	}
	const maxK = 4
	data, err := SampleGameData(rules, traj, NewStream(22), maxK)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	assert.True(t, data.RequestedSteps >= 1 && data.RequestedSteps <= maxK)
	actions := data.Actions.Data().([]int32)
	for n := 0; n < traj.Batch(); n++ {
		eff := data.EffectiveSteps[n]
		assert.Truef(t, eff >= 0 && eff <= data.RequestedSteps, "instance %d: effective %d", n, eff)
		assert.Falsef(t, data.StartStates.Terminal(n), "instance %d started terminal", n)
		for j := eff; j < maxK; j++ {
			assert.Equalf(t, game.NoAction, actions[n*maxK+j], "instance %d slot %d leaks past the horizon", n, j)
		}
	}
}

// Replaying the exposed actions from the start state must land exactly on
// the end state.
func TestSampleGameDataWindowReplays(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 8, 6)
	if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(31)); err != nil {
		t.Fatalf("%+v", err)
	}
	data, err := SampleGameData(rules, traj, NewStream(32), 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	actions := data.Actions.Data().([]int32)
	for n := 0; n < traj.Batch(); n++ {
		single := game.NewStates(3, 1)
		copy(single.Data(), data.StartStates.Instance(n))
		for j := 0; j < data.EffectiveSteps[n]; j++ {
			next, err := rules.NextStates(single, []int32{actions[n*3+j]})
			if err != nil {
				t.Fatalf("instance %d step %d: %+v", n, j, err)
			}
			single = next
		}
		want := game.NewStates(3, 1)
		copy(want.Data(), data.EndStates.Instance(n))
		assert.Truef(t, single.Eq(want), "instance %d window does not replay to its end state", n)
	}
}

func TestSampleGameDataDeterminism(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 8, 6)
	if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(41)); err != nil {
		t.Fatalf("%+v", err)
	}

	a, err := SampleGameData(rules, traj, NewStream(5), 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, err := SampleGameData(rules, traj, NewStream(5), 3)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, a.RequestedSteps, b.RequestedSteps)
	assert.Equal(t, a.EffectiveSteps, b.EffectiveSteps)
	assert.True(t, a.StartStates.Eq(b.StartStates))
	assert.True(t, a.EndStates.Eq(b.EndStates))
	assert.Equal(t, a.Actions.Data().([]int32), b.Actions.Data().([]int32))
}

func TestOrientOwnershipSwapsForWhite(t *testing.T) {
	rules := baduk.New(3)
	traj := game.NewTrajectories(3, 1, 3)
	// black plays then stops recording; state 1 has white to move
	moves := [][]int32{
		{4},
		{game.PassIndex(3)},
	}
	if err := SelfPlay(rules, traj, scriptedPolicy(moves), NewStream(1)); err != nil {
		t.Fatalf("%+v", err)
	}
	data, err := SampleGameData(rules, traj, NewStream(8), 2)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// black owns the whole board at the terminal state, so whoever moves at
	// a sampled state sees either all-own or all-opponent
	for n := 0; n < data.StartStates.Batch(); n++ {
		areas := data.StartAreas.Data().([]float32)
		own := areas[:9]
		opp := areas[9:]
		if data.StartStates.ToMove(n) == game.Black {
			assert.Equal(t, float32(9), sumf32(own))
			assert.Equal(t, float32(0), sumf32(opp))
		} else {
			assert.Equal(t, float32(0), sumf32(own))
			assert.Equal(t, float32(9), sumf32(opp))
		}
	}
}

func sumf32(xs []float32) float32 {
	var total float32
	for _, x := range xs {
		total += x
	}
	return total
}
