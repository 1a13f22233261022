package game

import (
	"gorgonia.org/tensor"
)

// Trajectories records a batch of N parallel games over T recorded steps.
// States is an N x T x C x H x W float32 tensor; Actions an N x T int32
// tensor. Once an instance's game ends, its state column is frozen and its
// action slots hold NoAction, so both tensors stay shape uniform even
// though true game lengths differ.
type Trajectories struct {
	States  *tensor.Dense
	Actions *tensor.Dense
}

// NewTrajectories allocates empty trajectories: every step of every
// instance is the empty-board initial position and every action slot is the
// NoAction sentinel.
func NewTrajectories(boardSize, batch, length int) *Trajectories {
	states := make([]float32, batch*length*NumPlanes*boardSize*boardSize)
	actions := make([]int32, batch*length)
	for i := range actions {
		actions[i] = NoAction
	}
	return &Trajectories{
		States:  tensor.New(tensor.WithBacking(states), tensor.WithShape(batch, length, NumPlanes, boardSize, boardSize)),
		Actions: tensor.New(tensor.WithBacking(actions), tensor.WithShape(batch, length)),
	}
}

func (tr *Trajectories) Batch() int { return tr.States.Shape()[0] }

func (tr *Trajectories) Steps() int { return tr.States.Shape()[1] }

func (tr *Trajectories) BoardSize() int { return tr.States.Shape()[3] }

func (tr *Trajectories) stateSize() int {
	b := tr.BoardSize()
	return NumPlanes * b * b
}

// StateData returns the backing slice of the state at (instance n, step t).
func (tr *Trajectories) StateData(n, t int) []float32 {
	size := tr.stateSize()
	start := (n*tr.Steps() + t) * size
	return tr.States.Data().([]float32)[start : start+size]
}

// Action returns the recorded action at (instance n, step t).
func (tr *Trajectories) Action(n, t int) int32 {
	return tr.Actions.Data().([]int32)[n*tr.Steps()+t]
}

// SetAction records an action at (instance n, step t).
func (tr *Trajectories) SetAction(n, t int, a int32) {
	tr.Actions.Data().([]int32)[n*tr.Steps()+t] = a
}

// Column copies the states at step t of every instance into a new batch.
func (tr *Trajectories) Column(t int) *States {
	out := NewStates(tr.BoardSize(), tr.Batch())
	for n := 0; n < tr.Batch(); n++ {
		copy(out.Instance(n), tr.StateData(n, t))
	}
	return out
}

// SetColumn writes a state batch into step t of every instance.
func (tr *Trajectories) SetColumn(t int, s *States) {
	for n := 0; n < tr.Batch(); n++ {
		copy(tr.StateData(n, t), s.Instance(n))
	}
}

// Gather copies the state at (n, ts[n]) of every instance n into a new
// batch. len(ts) must equal the batch size.
func (tr *Trajectories) Gather(ts []int) *States {
	out := NewStates(tr.BoardSize(), tr.Batch())
	for n := 0; n < tr.Batch(); n++ {
		copy(out.Instance(n), tr.StateData(n, ts[n]))
	}
	return out
}

// Clone returns a deep copy.
func (tr *Trajectories) Clone() *Trajectories {
	states := make([]float32, len(tr.States.Data().([]float32)))
	copy(states, tr.States.Data().([]float32))
	actions := make([]int32, len(tr.Actions.Data().([]int32)))
	copy(actions, tr.Actions.Data().([]int32))
	return &Trajectories{
		States:  tensor.New(tensor.WithBacking(states), tensor.WithShape(tr.States.Shape().Clone()...)),
		Actions: tensor.New(tensor.WithBacking(actions), tensor.WithShape(tr.Actions.Shape().Clone()...)),
	}
}

// Eq reports whether two trajectory batches are bit identical.
func (tr *Trajectories) Eq(other *Trajectories) bool {
	if !tr.States.Shape().Eq(other.States.Shape()) || !tr.Actions.Shape().Eq(other.Actions.Shape()) {
		return false
	}
	a, b := tr.States.Data().([]float32), other.States.Data().([]float32)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	x, y := tr.Actions.Data().([]int32), other.Actions.Data().([]int32)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
