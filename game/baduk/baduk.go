// Package baduk is a batched Go rules engine over plane-encoded states:
// stone placement with captures, suicide and simple-ko legality,
// pass-to-score termination, and Tromp-Taylor area scoring.
package baduk

import (
	"fmt"

	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var _ game.Rules = &Engine{}

// Engine implements game.Rules for a fixed board size.
type Engine struct {
	boardSize int
}

func New(boardSize int) *Engine {
	if boardSize < 1 {
		panic("boardSize must be positive")
	}
	return &Engine{boardSize: boardSize}
}

func (e *Engine) BoardSize() int { return e.boardSize }

type moveError struct {
	instance int
	action   int32
}

func (err moveError) Error() string {
	return fmt.Sprintf("unable to apply action %d on instance %d", err.action, err.instance)
}

func (e *Engine) checkBoard(s *game.States) error {
	if s.BoardSize() != e.boardSize {
		return errors.Errorf("engine is for %d x %d boards, states are %d x %d", e.boardSize, e.boardSize, s.BoardSize(), s.BoardSize())
	}
	return nil
}

// NextStates applies one action per instance. Terminal instances come back
// unchanged whatever their action slot holds.
func (e *Engine) NextStates(s *game.States, actions []int32) (*game.States, error) {
	if err := e.checkBoard(s); err != nil {
		return nil, err
	}
	if len(actions) != s.Batch() {
		return nil, errors.Errorf("have %d instances but %d actions", s.Batch(), len(actions))
	}
	out := s.Clone()
	for n := 0; n < s.Batch(); n++ {
		if s.Terminal(n) {
			continue
		}
		if err := e.applyOne(out, n, actions[n]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// applyOne mutates instance n of out in place. out must already hold a copy
// of the pre-move state.
func (e *Engine) applyOne(out *game.States, n int, a int32) error {
	b := e.boardSize
	black := out.Plane(n, game.PlaneBlack)
	white := out.Plane(n, game.PlaneWhite)
	turn := out.Plane(n, game.PlaneTurn)
	pass := out.Plane(n, game.PlanePass)
	end := out.Plane(n, game.PlaneEnd)
	ko := out.Plane(n, game.PlaneKo)

	// A pass concedes further play: the game ends immediately and the
	// position is scored as it stands.
	if a == game.PassIndex(b) {
		fill(pass, 1)
		fill(end, 1)
		fill(ko, 0)
		toggle(turn)
		return nil
	}
	if a < 0 || int(a) >= b*b {
		return errors.WithStack(moveError{n, a})
	}

	mover := out.ToMove(n)
	own, opp := black, white
	if mover == game.White {
		own, opp = white, black
	}
	captures, err := tryPlace(own, opp, b, int(a), ko)
	if err != nil {
		return errors.WithMessagef(moveError{n, a}, "%v", err)
	}
	own[a] = 1
	for _, c := range captures {
		opp[c] = 0
	}
	fill(ko, 0)
	// Simple ko: a lone capture bars immediate recapture at the vacated
	// point for one move.
	if len(captures) == 1 && isLoneStone(own, b, int(a)) {
		ko[captures[0]] = 1
	}
	fill(pass, 0)
	toggle(turn)
	return nil
}

// Terminal reports the end flag per instance.
func (e *Engine) Terminal(s *game.States) []bool {
	out := make([]bool, s.Batch())
	for n := range out {
		out[n] = s.Terminal(n)
	}
	return out
}

// LegalActionMask marks, per instance, which of the boardSize²+1 actions
// are playable. Pass is always legal on a live state; on a terminal one it
// is the only "legal" action, keeping downstream masking well defined.
func (e *Engine) LegalActionMask(s *game.States) ([]bool, error) {
	if err := e.checkBoard(s); err != nil {
		return nil, err
	}
	b := e.boardSize
	space := game.ActionSpace(b)
	mask := make([]bool, s.Batch()*space)
	for n := 0; n < s.Batch(); n++ {
		row := mask[n*space : (n+1)*space]
		row[space-1] = true
		if s.Terminal(n) {
			continue
		}
		black := s.Plane(n, game.PlaneBlack)
		white := s.Plane(n, game.PlaneWhite)
		ko := s.Plane(n, game.PlaneKo)
		own, opp := black, white
		if s.ToMove(n) == game.White {
			own, opp = white, black
		}
		for p := 0; p < b*b; p++ {
			if own[p] != 0 || opp[p] != 0 || ko[p] != 0 {
				continue
			}
			if _, err := tryPlace(own, opp, b, p, ko); err == nil {
				row[p] = true
			}
		}
	}
	return mask, nil
}

// AreaOwnership computes Tromp-Taylor area: every stone belongs to its
// colour, every empty region bordered by a single colour belongs to that
// colour, contested regions to neither.
func (e *Engine) AreaOwnership(s *game.States) (*tensor.Dense, error) {
	if err := e.checkBoard(s); err != nil {
		return nil, err
	}
	b := e.boardSize
	area := b * b
	backing := make([]float32, s.Batch()*2*area)
	for n := 0; n < s.Batch(); n++ {
		black := s.Plane(n, game.PlaneBlack)
		white := s.Plane(n, game.PlaneWhite)
		blackOwn := backing[n*2*area : n*2*area+area]
		whiteOwn := backing[n*2*area+area : (n+1)*2*area]
		copy(blackOwn, black)
		copy(whiteOwn, white)

		seen := make([]bool, area)
		for p := 0; p < area; p++ {
			if seen[p] || black[p] != 0 || white[p] != 0 {
				continue
			}
			region, touchBlack, touchWhite := emptyRegion(black, white, b, p, seen)
			switch {
			case touchBlack && !touchWhite:
				for _, q := range region {
					blackOwn[q] = 1
				}
			case touchWhite && !touchBlack:
				for _, q := range region {
					whiteOwn[q] = 1
				}
			}
		}
	}
	return tensor.New(tensor.WithBacking(backing), tensor.WithShape(s.Batch(), 2, b, b)), nil
}

// AreaScores returns black area minus white area per instance.
func (e *Engine) AreaScores(s *game.States) ([]float32, error) {
	ownership, err := e.AreaOwnership(s)
	if err != nil {
		return nil, err
	}
	b := e.boardSize
	area := b * b
	data := ownership.Data().([]float32)
	out := make([]float32, s.Batch())
	for n := 0; n < s.Batch(); n++ {
		var black, white float32
		for p := 0; p < area; p++ {
			black += data[n*2*area+p]
			white += data[n*2*area+area+p]
		}
		out[n] = black - white
	}
	return out, nil
}

func fill(plane []float32, v float32) {
	for i := range plane {
		plane[i] = v
	}
}

func toggle(turn []float32) {
	if turn[0] != 0 {
		fill(turn, 0)
	} else {
		fill(turn, 1)
	}
}
