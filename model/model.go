// Package model defines the learned model consumed by the training
// pipeline: five head functions sharing one parameter blob. The heads are
// pure — parameters and auxiliary state go in, results and a (possibly
// updated) state come out — so the pipeline can thread them through its
// unroll without hidden globals.
package model

import (
	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Params is the shared parameter blob of all heads, keyed by name.
type Params map[string]*tensor.Dense

// Clone deep-copies the blob.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		backing := make([]float32, len(v.Data().([]float32)))
		copy(backing, v.Data().([]float32))
		out[k] = tensor.New(tensor.WithBacking(backing), tensor.WithShape(v.Shape().Clone()...))
	}
	return out
}

// State is auxiliary per-call model state (running statistics and the
// like) threaded through head calls. Heads return a State; callers re-pass
// it. It is an accumulator: never mutated in place, only replaced.
type State map[string]*tensor.Dense

// Head function signatures. Shapes, with B the call's batch size, D the
// embedding width, A the action space and H=W the board size:
//
//	Embed:      states (B, C, H, W) -> embeddings (B, D)
//	Value:      embeddings (B, D)   -> value logits (B)
//	Policy:     embeddings (B, D)   -> action logits (B, A)
//	Transition: embeddings (B, D)   -> next embeddings per action (B, A, D)
//	Area:       embeddings (B, D)   -> ownership logits (B, 2, H, W)
type (
	EmbedFunc      func(p Params, st State, states *game.States) (*tensor.Dense, State, error)
	ValueFunc      func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error)
	PolicyFunc     func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error)
	TransitionFunc func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error)
	AreaFunc       func(p Params, st State, embeds *tensor.Dense) (*tensor.Dense, State, error)
)

// Model groups the five heads sharing one parameter blob.
type Model struct {
	Embed      EmbedFunc
	Value      ValueFunc
	Policy     PolicyFunc
	Transition TransitionFunc
	Area       AreaFunc

	Params Params

	BoardSize int
	EmbedDim  int
}

func (m Model) ActionSpace() int { return game.ActionSpace(m.BoardSize) }

// Check validates the bundle before any head is invoked.
func (m Model) Check() error {
	if m.Embed == nil || m.Value == nil || m.Policy == nil || m.Transition == nil || m.Area == nil {
		return errors.New("model is missing a head")
	}
	if m.BoardSize < 1 {
		return errors.Errorf("invalid board size %d", m.BoardSize)
	}
	if m.EmbedDim < 1 {
		return errors.Errorf("invalid embedding width %d", m.EmbedDim)
	}
	return nil
}
