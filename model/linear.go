package model

import (
	"github.com/gorgonia/muzgo/game"
	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Parameter names of the linear model.
const (
	linEmbedW      = "linear/embed_w"
	linValueW      = "linear/value_w"
	linPolicyW     = "linear/policy_w"
	linTransitionW = "linear/transition_w"
	linAreaW       = "linear/area_w"
)

// NewLinear returns a model whose heads are single Gaussian-initialised
// matrices: embeddings are a learned projection of the flattened planes,
// and the transition head predicts a per-action delta on top of the
// current embedding.
func NewLinear(boardSize, embedDim int, seed int64) Model {
	planes := game.NumPlanes * boardSize * boardSize
	area := boardSize * boardSize
	space := game.ActionSpace(boardSize)

	gauss := rng.NewGaussianGenerator(seed)
	params := Params{
		linEmbedW:      gaussianDense(gauss, planes, embedDim),
		linValueW:      gaussianDense(gauss, embedDim, 1),
		linPolicyW:     gaussianDense(gauss, embedDim, space),
		linTransitionW: gaussianDense(gauss, embedDim, space*embedDim),
		linAreaW:       gaussianDense(gauss, embedDim, 2*area),
	}

	return Model{
		BoardSize: boardSize,
		EmbedDim:  embedDim,
		Params:    params,

		Embed: func(p Params, st State, states *game.States) (*tensor.Dense, State, error) {
			w, err := param(p, linEmbedW, planes, embedDim)
			if err != nil {
				return nil, st, err
			}
			out := matmul(states.Data(), w, states.Batch(), planes, embedDim)
			return tensor.New(tensor.WithBacking(out), tensor.WithShape(states.Batch(), embedDim)), st, nil
		},
		Value: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			w, err := param(p, linValueW, embedDim, 1)
			if err != nil {
				return nil, st, err
			}
			batch := embeds.Shape()[0]
			out := matmul(embeds.Data().([]float32), w, batch, embedDim, 1)
			return tensor.New(tensor.WithBacking(out), tensor.WithShape(batch)), st, nil
		},
		Policy: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			w, err := param(p, linPolicyW, embedDim, space)
			if err != nil {
				return nil, st, err
			}
			batch := embeds.Shape()[0]
			out := matmul(embeds.Data().([]float32), w, batch, embedDim, space)
			return tensor.New(tensor.WithBacking(out), tensor.WithShape(batch, space)), st, nil
		},
		Transition: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			w, err := param(p, linTransitionW, embedDim, space*embedDim)
			if err != nil {
				return nil, st, err
			}
			batch := embeds.Shape()[0]
			in := embeds.Data().([]float32)
			out := matmul(in, w, batch, embedDim, space*embedDim)
			// residual: each action predicts current embedding plus delta
			for b := 0; b < batch; b++ {
				row := in[b*embedDim : (b+1)*embedDim]
				for a := 0; a < space; a++ {
					dst := out[(b*space+a)*embedDim : (b*space+a+1)*embedDim]
					for i := range dst {
						dst[i] += row[i]
					}
				}
			}
			return tensor.New(tensor.WithBacking(out), tensor.WithShape(batch, space, embedDim)), st, nil
		},
		Area: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			w, err := param(p, linAreaW, embedDim, 2*area)
			if err != nil {
				return nil, st, err
			}
			batch := embeds.Shape()[0]
			out := matmul(embeds.Data().([]float32), w, batch, embedDim, 2*area)
			return tensor.New(tensor.WithBacking(out), tensor.WithShape(batch, 2, boardSize, boardSize)), st, nil
		},
	}
}

func gaussianDense(gauss *rng.GaussianGenerator, rows, cols int) *tensor.Dense {
	backing := make([]float32, rows*cols)
	std := 1.0 / float64(rows)
	for i := range backing {
		backing[i] = float32(gauss.Gaussian(0, std))
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(rows, cols))
}

func param(p Params, name string, rows, cols int) ([]float32, error) {
	w, ok := p[name]
	if !ok {
		return nil, errors.Errorf("missing parameter %q", name)
	}
	shp := w.Shape()
	if len(shp) != 2 || shp[0] != rows || shp[1] != cols {
		return nil, errors.Errorf("parameter %q must be (%d, %d), got %v", name, rows, cols, shp)
	}
	return w.Data().([]float32), nil
}

// matmul computes x (batch, in) times w (in, out) row major.
func matmul(x, w []float32, batch, in, out int) []float32 {
	result := make([]float32, batch*out)
	for b := 0; b < batch; b++ {
		row := x[b*in : (b+1)*in]
		dst := result[b*out : (b+1)*out]
		for i, xi := range row {
			if xi == 0 {
				continue
			}
			wrow := w[i*out : (i+1)*out]
			for j, wj := range wrow {
				dst[j] += xi * wj
			}
		}
	}
	return result
}
