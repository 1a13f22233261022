package muzgo

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/model"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
)

// ComputeKStepTotalLoss runs the k-step unrolled loss over every
// (instance, time) cell of the trajectories.
//
// The real states are embedded once. Then for k iterations the current
// embeddings are scored and pushed one hypothetical step forward through
// the transition head, selected by the ground-truth actions, WITHOUT
// re-grounding in the real embeddings: the value and policy losses of
// iteration i+1 see the model's own rollout, so compounding prediction
// error is what gets penalised. After i iterations the embedding at column
// t stands for state t+i, which is why the valid mask narrows by one
// column per iteration.
//
// The per-iteration order is fixed: value loss, transition expansion,
// policy loss, embedding consistency, embedding replacement. The policy
// targets and embedding targets are detached by construction: they are
// scratch tensors the heads never see again, so nothing propagates back
// through them.
func ComputeKStepTotalLoss(m model.Model, params model.Params, st model.State, rules game.Rules, traj *game.Trajectories, k int, temperature float32) (LossMetrics, model.State, error) {
	var out LossMetrics
	if k < 0 {
		return out, st, invalidArgumentf("k must be non-negative, got %d", k)
	}
	if k == 0 {
		// zero iterations, zero loss
		return out, st, nil
	}
	if temperature <= 0 {
		return out, st, invalidArgumentf("temperature must be positive, got %v", temperature)
	}
	if err := m.Check(); err != nil {
		return out, st, err
	}

	n := traj.Batch()
	steps := traj.Steps()
	cells := n * steps
	dim := m.EmbedDim
	space := m.ActionSpace()

	labels, err := GetOutcomeLabels(rules, traj)
	if err != nil {
		return out, st, err
	}
	labelData := labels.Data().([]float32)
	actionData := traj.Actions.Data().([]int32)

	// Embed every real state once. The trajectory tensor and the flattened
	// state batch share the same (C, H, W) cell layout.
	b := traj.BoardSize()
	all := game.NewStates(b, cells)
	copy(all.Data(), traj.States.Data().([]float32))
	baseT, st, err := m.Embed(params, st, all)
	if err != nil {
		return out, st, errors.WithMessage(err, "embedding trajectory states")
	}
	base := baseT.Data().([]float32)
	if len(base) != cells*dim {
		return out, st, errors.Errorf("embed head returned %d values, want %d", len(base), cells*dim)
	}

	cur := make([]float32, len(base))
	copy(cur, base)
	scratch := make([]float32, dim)
	targets := make([]float32, space)

	for i := 0; i < k; i++ {
		maskW := steps - i
		if maskW < 0 {
			maskW = 0
		}
		curT := tensor.New(tensor.WithBacking(cur), tensor.WithShape(cells, dim))

		// Value loss against the labels of the states the embeddings now
		// stand for, rescaled from {-1, 0, 1} to {0, 0.5, 1}.
		var valueT *tensor.Dense
		valueT, st, err = m.Value(params, st, curT)
		if err != nil {
			return out, st, errors.WithMessagef(err, "value head at step %d", i)
		}
		vlogits := valueT.Data().([]float32)
		var vsum float32
		var vcount int
		for inst := 0; inst < n; inst++ {
			for t := 0; t < maskW; t++ {
				y := (labelData[inst*steps+t+i] + 1) / 2
				vsum += sigmoidCrossEntropy(vlogits[inst*steps+t], y)
				vcount++
			}
		}
		out.Value += maskedMean(vsum, vcount)

		// One predicted next embedding per action.
		var transT *tensor.Dense
		transT, st, err = m.Transition(params, st, curT)
		if err != nil {
			return out, st, errors.WithMessagef(err, "transition head at step %d", i)
		}
		trans := transT.Data().([]float32)

		// Policy loss: the target prefers actions whose successor looks bad
		// for the opponent, hence the negated transition values. The target
		// is a detached scratch tensor.
		var policyT *tensor.Dense
		policyT, st, err = m.Policy(params, st, curT)
		if err != nil {
			return out, st, errors.WithMessagef(err, "policy head at step %d", i)
		}
		plogits := policyT.Data().([]float32)
		var transValueT *tensor.Dense
		transValueT, st, err = m.Value(params, st, tensor.New(tensor.WithBacking(trans), tensor.WithShape(cells*space, dim)))
		if err != nil {
			return out, st, errors.WithMessagef(err, "transition values at step %d", i)
		}
		tvalues := transValueT.Data().([]float32)
		var psum float32
		var pcount int
		for inst := 0; inst < n; inst++ {
			for t := 0; t < maskW; t++ {
				cell := inst*steps + t
				copy(targets, tvalues[cell*space:(cell+1)*space])
				vecf32.Scale(targets, -1/temperature)
				softmaxInPlace(targets)
				psum += categoricalCrossEntropy(plogits[cell*space:(cell+1)*space], targets)
				pcount++
			}
		}
		out.Policy += maskedMean(psum, pcount)

		// Advance every cell by the ground-truth action taken from the state
		// it stands for. The sentinel, and any cell already pushed past the
		// recorded horizon, keeps its current embedding.
		next := make([]float32, len(cur))
		for inst := 0; inst < n; inst++ {
			for t := 0; t < steps; t++ {
				cell := inst*steps + t
				a := game.NoAction
				if t+i < steps {
					a = actionData[inst*steps+t+i]
				}
				dst := next[cell*dim : (cell+1)*dim]
				if a == game.NoAction {
					copy(dst, cur[cell*dim:(cell+1)*dim])
				} else {
					start := (cell*space + int(a)) * dim
					copy(dst, trans[start:start+dim])
				}
			}
		}

		// Embedding consistency: the advanced embedding at column t should
		// match the real embedding of state t+i+1. One column narrower than
		// the other losses, since the real successor must exist. An empty
		// mask contributes exactly zero.
		embedW := steps - i - 1
		var esum float32
		var ecount int
		for inst := 0; inst < n; inst++ {
			for t := 0; t < embedW; t++ {
				cell := inst*steps + t
				target := inst*steps + t + i + 1
				copy(scratch, next[cell*dim:(cell+1)*dim])
				vecf32.Sub(scratch, base[target*dim:(target+1)*dim])
				for _, d := range scratch {
					esum += d * d
				}
				ecount++
			}
		}
		out.Embed += maskedMean(esum, ecount)

		cur = next
	}

	out.Total = out.Value + out.Policy + out.Embed
	return out, st, nil
}

// ComputeAreaLoss scores the area head against own/opponent ownership
// labels with a per-point binary cross-entropy.
func ComputeAreaLoss(m model.Model, params model.Params, st model.State, states *game.States, areas *tensor.Dense) (float32, model.State, error) {
	embeds, st, err := m.Embed(params, st, states)
	if err != nil {
		return 0, st, errors.WithMessage(err, "embedding states")
	}
	logitsT, st, err := m.Area(params, st, embeds)
	if err != nil {
		return 0, st, errors.WithMessage(err, "area head")
	}
	logits := logitsT.Data().([]float32)
	labels := areas.Data().([]float32)
	if len(logits) != len(labels) {
		return 0, st, errors.Errorf("area head returned %d values for %d labels", len(logits), len(labels))
	}
	var sum float32
	for i := range logits {
		sum += sigmoidCrossEntropy(logits[i], labels[i])
	}
	return maskedMean(sum, len(logits)), st, nil
}

// maskedMean is sum/count with the empty mask defined as zero.
func maskedMean(sum float32, count int) float32 {
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}

// sigmoidCrossEntropy is the binary cross-entropy between sigmoid(logit)
// and label, in the standard max(x,0) - x*y + log1p(exp(-|x|)) form that
// never exponentiates a large positive argument.
func sigmoidCrossEntropy(logit, label float32) float32 {
	loss := -logit * label
	if logit > 0 {
		loss += logit
	}
	return loss + math32.Log1p(math32.Exp(-math32.Abs(logit)))
}

// softmaxInPlace overwrites logits with softmax(logits).
func softmaxInPlace(logits []float32) {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var total float32
	for i, v := range logits {
		logits[i] = math32.Exp(v - max)
		total += logits[i]
	}
	vecf32.Scale(logits, 1/total)
}

// categoricalCrossEntropy is -sum(target * logsoftmax(logits)). target must
// be a distribution.
func categoricalCrossEntropy(logits, target []float32) float32 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	var total float32
	for _, v := range logits {
		total += math32.Exp(v - max)
	}
	lse := max + math32.Log(total)
	var loss float32
	for i, y := range target {
		if y != 0 {
			loss -= y * (logits[i] - lse)
		}
	}
	return loss
}
