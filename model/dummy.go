package model

import (
	"github.com/gorgonia/muzgo/game"
	"gorgonia.org/tensor"
)

// NewDummy returns a parameterless model whose heads are cheap and fully
// deterministic: the embedding is the flattened state planes, the value is
// always zero, the policy is uniform, the transition predicts the current
// embedding for every action and the area head predicts nothing. Useful as
// a baseline and in tests.
func NewDummy(boardSize int) Model {
	embedDim := game.NumPlanes * boardSize * boardSize
	area := boardSize * boardSize
	space := game.ActionSpace(boardSize)

	return Model{
		BoardSize: boardSize,
		EmbedDim:  embedDim,
		Params:    Params{},

		Embed: func(p Params, st State, states *game.States) (*tensor.Dense, State, error) {
			backing := make([]float32, states.Batch()*embedDim)
			copy(backing, states.Data())
			return tensor.New(tensor.WithBacking(backing), tensor.WithShape(states.Batch(), embedDim)), st, nil
		},
		Value: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			return tensor.New(tensor.WithBacking(make([]float32, batch)), tensor.WithShape(batch)), st, nil
		},
		Policy: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			return tensor.New(tensor.WithBacking(make([]float32, batch*space)), tensor.WithShape(batch, space)), st, nil
		},
		Transition: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			in := embeds.Data().([]float32)
			backing := make([]float32, batch*space*embedDim)
			for b := 0; b < batch; b++ {
				row := in[b*embedDim : (b+1)*embedDim]
				for a := 0; a < space; a++ {
					copy(backing[(b*space+a)*embedDim:(b*space+a+1)*embedDim], row)
				}
			}
			return tensor.New(tensor.WithBacking(backing), tensor.WithShape(batch, space, embedDim)), st, nil
		},
		Area: func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error) {
			batch := embeds.Shape()[0]
			return tensor.New(tensor.WithBacking(make([]float32, batch*2*area)), tensor.WithShape(batch, 2, boardSize, boardSize)), st, nil
		},
	}
}
