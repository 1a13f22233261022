package muzgo

import (
	"github.com/chewxy/math32"
	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/model"
	"github.com/pkg/errors"
)

// PolicyFromModel samples actions from the model's policy head, restricted
// to legal actions. Logits of illegal actions are dropped before the
// softmax rather than renormalised after it.
func PolicyFromModel(m model.Model, rules game.Rules) Policy {
	return func(states *game.States, stream Stream) ([]int32, error) {
		embeds, _, err := m.Embed(m.Params, nil, states)
		if err != nil {
			return nil, errors.WithMessage(err, "embedding states")
		}
		logits, _, err := m.Policy(m.Params, nil, embeds)
		if err != nil {
			return nil, errors.WithMessage(err, "computing policy logits")
		}
		legal, err := rules.LegalActionMask(states)
		if err != nil {
			return nil, err
		}

		space := game.ActionSpace(states.BoardSize())
		data := logits.Data().([]float32)
		gen := stream.Uniform()
		out := make([]int32, states.Batch())
		for n := range out {
			row := data[n*space : (n+1)*space]
			mask := legal[n*space : (n+1)*space]
			out[n] = sampleMasked(row, mask, float32(gen.Float64()))
		}
		return out, nil
	}
}

// RandomPolicy picks uniformly among legal actions.
func RandomPolicy(rules game.Rules) Policy {
	return func(states *game.States, stream Stream) ([]int32, error) {
		legal, err := rules.LegalActionMask(states)
		if err != nil {
			return nil, err
		}
		space := game.ActionSpace(states.BoardSize())
		r := stream.Rand()
		out := make([]int32, states.Batch())
		for n := range out {
			mask := legal[n*space : (n+1)*space]
			count := 0
			for _, ok := range mask {
				if ok {
					count++
				}
			}
			pick := r.Intn(count)
			for a, ok := range mask {
				if !ok {
					continue
				}
				if pick == 0 {
					out[n] = int32(a)
					break
				}
				pick--
			}
		}
		return out, nil
	}
}

// GreedyAreaPolicy plays the legal action that maximises the mover's area
// after the move, breaking ties by lowest action index. It is a weak but
// deterministic benchmark opponent.
func GreedyAreaPolicy(rules game.Rules) Policy {
	return func(states *game.States, stream Stream) ([]int32, error) {
		legal, err := rules.LegalActionMask(states)
		if err != nil {
			return nil, err
		}
		b := states.BoardSize()
		space := game.ActionSpace(b)
		out := make([]int32, states.Batch())
		for n := 0; n < states.Batch(); n++ {
			single := game.NewStates(b, 1)
			copy(single.Data(), states.Instance(n))
			mover := states.ToMove(n)

			best := int32(game.NoAction)
			bestScore := math32.Inf(-1)
			for a := 0; a < space; a++ {
				if !legal[n*space+a] {
					continue
				}
				next, err := rules.NextStates(single, []int32{int32(a)})
				if err != nil {
					return nil, errors.WithMessagef(err, "probing action %d on instance %d", a, n)
				}
				score, err := areaMargin(rules, next, mover)
				if err != nil {
					return nil, err
				}
				if score > bestScore {
					best, bestScore = int32(a), score
				}
			}
			out[n] = best
		}
		return out, nil
	}
}

// areaMargin is the mover's area minus the opponent's on a batch-1 state.
func areaMargin(rules game.Rules, s *game.States, mover game.Player) (float32, error) {
	ownership, err := rules.AreaOwnership(s)
	if err != nil {
		return 0, err
	}
	data := ownership.Data().([]float32)
	area := len(data) / 2
	var black, white float32
	for p := 0; p < area; p++ {
		black += data[p]
		white += data[area+p]
	}
	if mover == game.White {
		return white - black, nil
	}
	return black - white, nil
}

// sampleMasked draws one index from softmax(row) restricted to mask. u is a
// uniform draw in [0, 1). The last legal index absorbs any rounding slack.
func sampleMasked(row []float32, mask []bool, u float32) int32 {
	max := math32.Inf(-1)
	for a, ok := range mask {
		if ok && row[a] > max {
			max = row[a]
		}
	}
	var total float32
	for a, ok := range mask {
		if ok {
			total += math32.Exp(row[a] - max)
		}
	}
	target := u * total
	var cum float32
	last := int32(game.NoAction)
	for a, ok := range mask {
		if !ok {
			continue
		}
		last = int32(a)
		cum += math32.Exp(row[a] - max)
		if cum > target {
			return last
		}
	}
	return last
}
