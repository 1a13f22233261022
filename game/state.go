package game

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Player represents a side. Black always moves first.
type Player int32

const (
	Black Player = iota
	White
)

func (p Player) Opponent() Player {
	if p == Black {
		return White
	}
	return Black
}

func (p Player) Format(s fmt.State, c rune) {
	switch p {
	case Black:
		fmt.Fprint(s, "Black")
	case White:
		fmt.Fprint(s, "White")
	}
}

// Plane indices of a state. Each plane is a H x W float32 grid of 0s and 1s.
const (
	PlaneBlack = iota // black stone occupancy
	PlaneWhite        // white stone occupancy
	PlaneTurn         // all ones when it is white's turn
	PlanePass         // all ones when the previous move was a pass
	PlaneEnd          // all ones when the game has ended
	PlaneKo           // the single point barred by simple ko, if any

	NumPlanes
)

// NoAction is the sentinel recorded at steps where an instance was already
// terminal and no move was made.
const NoAction int32 = -1

// PassIndex is the action index of a pass on a boardSize x boardSize board.
// The action space is boardSize²+1 with pass last.
func PassIndex(boardSize int) int32 { return int32(boardSize * boardSize) }

// ActionSpace is boardSize²+1.
func ActionSpace(boardSize int) int { return boardSize*boardSize + 1 }

// States is a batch of N Go game states, stored as an N x C x H x W float32
// tensor. H == W == board size. A States value is never mutated by the
// pipeline; operations produce new ones.
type States struct {
	dense *tensor.Dense
}

// NewStates returns a batch of empty-board initial positions.
func NewStates(boardSize, batch int) *States {
	backing := make([]float32, batch*NumPlanes*boardSize*boardSize)
	return &States{
		dense: tensor.New(tensor.WithBacking(backing), tensor.WithShape(batch, NumPlanes, boardSize, boardSize)),
	}
}

// FromDense wraps a (N, C, H, W) tensor as a States batch, validating the
// trailing dimensions.
func FromDense(d *tensor.Dense) (*States, error) {
	shp := d.Shape()
	if len(shp) != 4 {
		return nil, shapeMismatchf("states must be rank 4 (N, C, H, W), got %v", shp)
	}
	if shp[1] != NumPlanes {
		return nil, shapeMismatchf("states must have %d planes, got %d", NumPlanes, shp[1])
	}
	if shp[2] != shp[3] {
		return nil, shapeMismatchf("board must be square, got %d x %d", shp[2], shp[3])
	}
	return &States{dense: d}, nil
}

// Dense returns the underlying (N, C, H, W) tensor.
func (s *States) Dense() *tensor.Dense { return s.dense }

func (s *States) Batch() int { return s.dense.Shape()[0] }

func (s *States) BoardSize() int { return s.dense.Shape()[2] }

// Data returns the raw backing slice in N x C x H x W row major order.
func (s *States) Data() []float32 { return s.dense.Data().([]float32) }

// Plane returns the backing slice of plane p of instance n.
func (s *States) Plane(n, p int) []float32 {
	area := s.BoardSize() * s.BoardSize()
	start := (n*NumPlanes + p) * area
	return s.Data()[start : start+area]
}

// Instance returns the backing slice of all planes of instance n.
func (s *States) Instance(n int) []float32 {
	size := NumPlanes * s.BoardSize() * s.BoardSize()
	return s.Data()[n*size : (n+1)*size]
}

// ToMove returns the player to move in instance n.
func (s *States) ToMove(n int) Player {
	if s.Plane(n, PlaneTurn)[0] != 0 {
		return White
	}
	return Black
}

// Terminal reports whether instance n has ended.
func (s *States) Terminal(n int) bool { return s.Plane(n, PlaneEnd)[0] != 0 }

// Clone returns a deep copy.
func (s *States) Clone() *States {
	backing := make([]float32, len(s.Data()))
	copy(backing, s.Data())
	shp := s.dense.Shape()
	return &States{dense: tensor.New(tensor.WithBacking(backing), tensor.WithShape(shp...))}
}

// Eq reports whether two batches hold bit-identical states.
func (s *States) Eq(other *States) bool {
	if s.Batch() != other.Batch() || s.BoardSize() != other.BoardSize() {
		return false
	}
	a, b := s.Data(), other.Data()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (s *States) Format(st fmt.State, c rune) {
	b := s.BoardSize()
	for n := 0; n < s.Batch(); n++ {
		black, white := s.Plane(n, PlaneBlack), s.Plane(n, PlaneWhite)
		fmt.Fprintf(st, "instance %d (%v to move):\n", n, s.ToMove(n))
		for i := 0; i < b; i++ {
			fmt.Fprint(st, "⎢ ")
			for j := 0; j < b; j++ {
				switch {
				case black[i*b+j] != 0:
					fmt.Fprint(st, "X ")
				case white[i*b+j] != 0:
					fmt.Fprint(st, "O ")
				default:
					fmt.Fprint(st, "· ")
				}
			}
			fmt.Fprint(st, "⎥\n")
		}
	}
}

func shapeMismatchf(format string, args ...interface{}) error {
	return shapeMismatch{errors.Errorf(format, args...)}
}

type shapeMismatch struct{ error }

func (shapeMismatch) shapeMismatch() {}

// IsShapeMismatch reports whether err was raised because a tensor's trailing
// dimensions violated the expected contract.
func IsShapeMismatch(err error) bool {
	type sm interface{ shapeMismatch() }
	_, ok := errors.Cause(err).(sm)
	return ok
}
