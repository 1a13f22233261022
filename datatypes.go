package muzgo

import (
	"fmt"

	"github.com/gorgonia/muzgo/game"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Config is the top level configuration of a training run.
type Config struct {
	Name string `yaml:"name"`

	BoardSize    int `yaml:"board_size"`
	BatchSize    int `yaml:"batch_size"`    // games simulated per iteration
	TrajLength   int `yaml:"traj_length"`   // states kept per game, including the start state
	MaxHypoSteps int `yaml:"max_hypo_steps"` // upper bound on the sampled hypothetical horizon
	Iterations   int `yaml:"iterations"`

	EmbedDim  int   `yaml:"embed_dim"`
	Filters   int   `yaml:"filters"`
	ChunkSize int   `yaml:"chunk_size"`
	Seed      int64 `yaml:"seed"`

	Temperature   float32 `yaml:"temperature"`    // policy target temperature
	PerturbStddev float64 `yaml:"perturb_stddev"` // step size of the evolutionary update
}

func (c Config) IsValid() bool {
	return c.BoardSize >= 1 &&
		c.BatchSize >= 1 &&
		c.TrajLength >= 2 &&
		c.MaxHypoSteps >= 1 &&
		c.EmbedDim >= 1 &&
		c.Temperature > 0
}

// Policy picks one action per instance of a batch. Actions chosen for
// terminal instances are discarded by the simulator.
type Policy func(states *game.States, stream Stream) ([]int32, error)

// GameData is one sampled minibatch of (start, end) pairs with everything
// the loss needs to unroll between them.
type GameData struct {
	// StartStates[n] and EndStates[n] are two positions of the same game,
	// EndStates[n] reached from StartStates[n] by the actions in row n.
	StartStates *game.States
	EndStates   *game.States

	// Actions is (N, K) int32 where K is the maximum hypothetical horizon
	// the sampler was called with. Entries at or beyond the effective
	// horizon hold game.NoAction.
	Actions *tensor.Dense

	// StartLabels and EndLabels are the outcome labels (N) float32 from the
	// point of view of the player to move at the respective state.
	StartLabels *tensor.Dense
	EndLabels   *tensor.Dense

	// StartAreas and EndAreas are (N, 2, H, W) float32 ownership labels,
	// plane 0 owned by the player to move at the respective state.
	StartAreas *tensor.Dense
	EndAreas   *tensor.Dense

	// RequestedSteps is the sampled horizon k, shared by the whole batch.
	// EffectiveSteps[n] is the number of real actions between the pair of
	// instance n, which is k clamped to the remaining game length.
	RequestedSteps int
	EffectiveSteps []int
}

// LossMetrics is the scalar breakdown of one unroll.
type LossMetrics struct {
	Value  float32
	Policy float32
	Embed  float32
	Area   float32
	Total  float32
}

// invalidArgument marks caller errors: out of range horizons, mismatched
// shapes between cooperating arguments and the like.
type invalidArgument struct {
	msg string
}

func (e invalidArgument) Error() string { return e.msg }

func invalidArgumentf(format string, args ...interface{}) error {
	return errors.WithStack(invalidArgument{msg: fmt.Sprintf(format, args...)})
}

// IsInvalidArgument reports whether err was caused by a bad argument.
func IsInvalidArgument(err error) bool {
	_, ok := errors.Cause(err).(invalidArgument)
	return ok
}
