package muzgo

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/game/baduk"
	"github.com/gorgonia/muzgo/model"
	"github.com/stretchr/testify/assert"
)

const (
	ln2  = 0.6931472
	ln10 = 2.3025851
)

func TestKStepLossInvalidArguments(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	traj := game.NewTrajectories(3, 1, 2)

	_, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, -1, 1)
	assert.True(t, IsInvalidArgument(err))
	_, _, err = ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 1, 0)
	assert.True(t, IsInvalidArgument(err))
}

// Zero hypothetical steps is a valid call that runs zero iterations and
// contributes nothing to any loss term.
func TestKStepLossZeroSteps(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	traj := game.NewTrajectories(3, 1, 2)

	loss, st, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 0, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, LossMetrics{}, loss)
	assert.Nil(t, st)
}

// On a batch of untouched empty boards the dummy model's zero logits give
// exact closed-form losses: ln 2 per masked value cell, ln A per masked
// policy cell, and zero embedding drift.
func TestKStepLossEmptyBoards(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	traj := game.NewTrajectories(3, 2, 3)

	loss, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 2, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDelta(t, 2*ln2, loss.Value, 1e-4)
	assert.InDelta(t, 2*ln10, loss.Policy, 1e-4)
	assert.InDelta(t, 0, loss.Embed, 1e-6)
	assert.InDelta(t, loss.Value+loss.Policy+loss.Embed, loss.Total, 1e-5)
}

// With one recorded move the dummy transition predicts no change, so the
// embedding loss is exactly the squared plane difference between the two
// states: one stone placed plus the turn plane flipping all nine points.
func TestKStepLossEmbedDrift(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	traj := game.NewTrajectories(3, 1, 2)
	if err := SelfPlay(rules, traj, scriptedPolicy([][]int32{{4}}), NewStream(1)); err != nil {
		t.Fatalf("%+v", err)
	}

	loss, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 1, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDelta(t, 10, loss.Embed, 1e-4)
	assert.InDelta(t, ln2, loss.Value, 1e-4)
	assert.InDelta(t, ln10, loss.Policy, 1e-4)
}

// A single-step trajectory has no room for hypothetical steps beyond the
// first: the narrowed masks contribute exactly zero, not an error.
func TestKStepLossExhaustedMask(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	traj := game.NewTrajectories(3, 2, 1)

	loss, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 3, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDelta(t, ln2, loss.Value, 1e-4)
	assert.InDelta(t, ln10, loss.Policy, 1e-4)
	assert.InDelta(t, 0, loss.Embed, 1e-6)
}

func TestKStepLossDeterminism(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewLinear(3, 8, 77)
	traj := game.NewTrajectories(3, 4, 4)
	if err := SelfPlay(rules, traj, RandomPolicy(rules), NewStream(6)); err != nil {
		t.Fatalf("%+v", err)
	}

	a, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 2, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	b, _, err := ComputeKStepTotalLoss(m, m.Params, nil, rules, traj, 2, 1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("loss not deterministic (-first +second):\n%s", diff)
	}
}

func TestComputeAreaLoss(t *testing.T) {
	rules := baduk.New(3)
	m := model.NewDummy(3)
	states := game.NewStates(3, 2)
	areas, err := rules.AreaOwnership(states)
	if err != nil {
		t.Fatalf("%+v", err)
	}

	// zero logits against 0/1 labels cost ln 2 per point
	loss, _, err := ComputeAreaLoss(m, m.Params, nil, states, areas)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDelta(t, ln2, loss, 1e-4)
}

func TestSigmoidCrossEntropy(t *testing.T) {
	assert.InDelta(t, ln2, sigmoidCrossEntropy(0, 0), 1e-6)
	assert.InDelta(t, ln2, sigmoidCrossEntropy(0, 1), 1e-6)
	// a large confident logit with a matching label costs almost nothing
	assert.Less(t, sigmoidCrossEntropy(10, 1), float32(1e-3))
	assert.Greater(t, sigmoidCrossEntropy(-10, 1), float32(9))
	// stability at extreme logits
	assert.False(t, math32.IsNaN(sigmoidCrossEntropy(500, 0)))
	assert.False(t, math32.IsInf(sigmoidCrossEntropy(-500, 1), 0))
}

func TestSoftmaxInPlace(t *testing.T) {
	logits := []float32{1000, 999, 998}
	softmaxInPlace(logits)
	var total float32
	for _, v := range logits {
		assert.False(t, math32.IsNaN(v))
		total += v
	}
	assert.InDelta(t, 1, total, 1e-5)
	assert.Greater(t, logits[0], logits[1])
}

func TestCategoricalCrossEntropy(t *testing.T) {
	uniform := []float32{0.25, 0.25, 0.25, 0.25}
	assert.InDelta(t, math32.Log(4), categoricalCrossEntropy([]float32{0, 0, 0, 0}, uniform), 1e-5)

	// matching a peaked target with peaked logits is cheap
	peaked := []float32{1, 0, 0, 0}
	assert.Less(t, categoricalCrossEntropy([]float32{20, 0, 0, 0}, peaked), float32(1e-3))
}

func TestMaskedMean(t *testing.T) {
	assert.Equal(t, float32(0), maskedMean(0, 0))
	assert.Equal(t, float32(2), maskedMean(6, 3))
}
