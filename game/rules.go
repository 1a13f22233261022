package game

import "gorgonia.org/tensor"

// Rules is the deterministic game rules engine consumed by the training
// pipeline. Every method is a pure batched function over all N instances:
// no method mutates its input.
type Rules interface {
	// NextStates applies one action per instance and returns the resulting
	// batch. Instances whose state is already terminal must come back
	// unchanged regardless of the supplied action (idempotent transition).
	// len(actions) must equal s.Batch().
	NextStates(s *States, actions []int32) (*States, error)

	// Terminal reports, per instance, whether the game has ended.
	Terminal(s *States) []bool

	// LegalActionMask returns an N x (boardSize²+1) row-major mask of the
	// legal actions per instance. On a terminal state only pass is legal.
	LegalActionMask(s *States) ([]bool, error)

	// AreaOwnership attributes every board point to a player, returning an
	// (N, 2, H, W) tensor: plane 0 is black-owned territory plus stones,
	// plane 1 white's. Contested points belong to neither plane.
	AreaOwnership(s *States) (*tensor.Dense, error)
}
