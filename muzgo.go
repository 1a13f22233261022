// Package muzgo trains a MuZero style model of Go by self-play: games are
// simulated with the model's own policy, augmented over the board
// symmetries, and scored with k-step unrolled losses that push the learned
// transition model to stay consistent with reality over hypothetical steps.
package muzgo

import (
	"sort"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/gorgonia/muzgo/game"
	"github.com/gorgonia/muzgo/game/baduk"
	"github.com/gorgonia/muzgo/model"
)

// Trainer is the top level structure and the entry point of the API. It
// owns the model being trained, the rules engine, and the run statistics.
type Trainer struct {
	conf  Config
	rules game.Rules
	m     model.Model
	st    model.State

	Statistics
	stream   Stream
	bestLoss float32
	haveBest bool
	log      zerolog.Logger
}

// New builds a trainer for conf. The model is taken as given so callers
// can train the dummy, linear or graph-backed variant alike.
func New(conf Config, m model.Model, logger zerolog.Logger) (*Trainer, error) {
	if !conf.IsValid() {
		return nil, invalidArgumentf("invalid config %+v", conf)
	}
	if err := m.Check(); err != nil {
		return nil, errors.WithMessage(err, "checking model")
	}
	if m.BoardSize != conf.BoardSize {
		return nil, invalidArgumentf("model is for %d x %d boards, config wants %d", m.BoardSize, m.BoardSize, conf.BoardSize)
	}
	return &Trainer{
		conf:       conf,
		rules:      baduk.New(conf.BoardSize),
		m:          m,
		Statistics: makeStatistics(),
		stream:     NewStream(conf.Seed),
		log:        logger.With().Str("run", conf.Name).Logger(),
	}, nil
}

// Model returns the trained model.
func (tr *Trainer) Model() model.Model { return tr.m }

// BestLoss returns the lowest total loss scored so far. ok is false before
// the first iteration completes.
func (tr *Trainer) BestLoss() (best float32, ok bool) { return tr.bestLoss, tr.haveBest }

// Learn runs the configured number of iterations.
func (tr *Trainer) Learn() error {
	for iter := 0; iter < tr.conf.Iterations; iter++ {
		loss, err := tr.iteration(iter)
		if err != nil {
			return errors.WithMessagef(err, "iteration %d", iter)
		}
		tr.log.Info().
			Int("iteration", iter).
			Float32("total", loss.Total).
			Float32("value", loss.Value).
			Float32("policy", loss.Policy).
			Float32("embed", loss.Embed).
			Float32("area", loss.Area).
			Float32("best", tr.bestLoss).
			Msg("iteration done")
	}
	return nil
}

// iteration plays one batch of games and takes one evolutionary step on
// the parameters: perturb, re-score on the same games, keep the candidate
// only if it scores lower. Derivative-free, so it works for any head
// implementation.
func (tr *Trainer) iteration(iter int) (LossMetrics, error) {
	stream := tr.stream.FoldIn(uint64(iter))

	traj := game.NewTrajectories(tr.conf.BoardSize, tr.conf.BatchSize, tr.conf.TrajLength)
	policy := PolicyFromModel(tr.m, tr.rules)
	if err := SelfPlay(tr.rules, traj, policy, stream.FoldIn(0)); err != nil {
		return LossMetrics{}, errors.WithMessage(err, "self play")
	}
	if err := RotationallyAugment(traj); err != nil {
		return LossMetrics{}, errors.WithMessage(err, "augmenting")
	}

	loss, err := tr.score(tr.m.Params, traj, stream)
	if err != nil {
		return LossMetrics{}, err
	}
	if !tr.haveBest || loss.Total < tr.bestLoss {
		tr.bestLoss = loss.Total
		tr.haveBest = true
	}

	candidate := perturbParams(tr.m.Params, tr.conf.PerturbStddev, stream.FoldIn(3))
	candLoss, err := tr.score(candidate, traj, stream)
	if err != nil {
		return LossMetrics{}, err
	}
	if candLoss.Total < loss.Total {
		tr.m.Params = candidate
		if candLoss.Total < tr.bestLoss {
			tr.bestLoss = candLoss.Total
		}
		loss = candLoss
		tr.log.Debug().Int("iteration", iter).Float32("total", candLoss.Total).Msg("candidate accepted")
	}

	if err := tr.update(tr.rules, traj, loss); err != nil {
		return LossMetrics{}, err
	}
	return loss, nil
}

// score evaluates one parameter set on one batch of trajectories: the
// k-step unroll plus the area loss on a sampled window.
func (tr *Trainer) score(params model.Params, traj *game.Trajectories, stream Stream) (LossMetrics, error) {
	loss, st, err := ComputeKStepTotalLoss(tr.m, params, tr.st, tr.rules, traj, tr.conf.MaxHypoSteps, tr.conf.Temperature)
	if err != nil {
		return LossMetrics{}, errors.WithMessage(err, "k-step loss")
	}
	data, err := SampleGameData(tr.rules, traj, stream.FoldIn(1), tr.conf.MaxHypoSteps)
	if err != nil {
		return LossMetrics{}, errors.WithMessage(err, "sampling game data")
	}
	startArea, st, err := ComputeAreaLoss(tr.m, params, st, data.StartStates, data.StartAreas)
	if err != nil {
		return LossMetrics{}, errors.WithMessage(err, "area loss at start states")
	}
	endArea, st, err := ComputeAreaLoss(tr.m, params, st, data.EndStates, data.EndAreas)
	if err != nil {
		return LossMetrics{}, errors.WithMessage(err, "area loss at end states")
	}
	tr.st = st
	loss.Area = (startArea + endArea) / 2
	loss.Total += loss.Area
	return loss, nil
}

// update records the iteration in the run statistics.
func (tr *Trainer) update(rules game.Rules, traj *game.Trajectories, loss LossMetrics) error {
	return tr.Statistics.update(rules, traj, loss)
}

// perturbParams returns a copy of p with Gaussian noise added to every
// weight. Parameters are visited in sorted name order so the same stream
// always produces the same candidate.
func perturbParams(p model.Params, stddev float64, stream Stream) model.Params {
	out := p.Clone()
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	gauss := rng.NewGaussianGenerator(stream.Int63())
	for _, name := range names {
		data := out[name].Data().([]float32)
		for i := range data {
			data[i] += float32(gauss.Gaussian(0, stddev))
		}
	}
	return out
}
