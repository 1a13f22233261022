package muzgo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/gorgonia/muzgo/model"
)

func testConfig() Config {
	return Config{
		Name:          "test",
		BoardSize:     3,
		BatchSize:     4,
		TrajLength:    4,
		MaxHypoSteps:  2,
		Iterations:    2,
		EmbedDim:      8,
		Seed:          17,
		Temperature:   1,
		PerturbStddev: 0.01,
	}
}

func TestNewTrainerValidation(t *testing.T) {
	bad := testConfig()
	bad.BatchSize = 0
	_, err := New(bad, model.NewDummy(3), zerolog.Nop())
	assert.True(t, IsInvalidArgument(err))

	mismatched := testConfig()
	_, err = New(mismatched, model.NewDummy(5), zerolog.Nop())
	assert.True(t, IsInvalidArgument(err))
}

func TestTrainerLearn(t *testing.T) {
	conf := testConfig()
	tr, err := New(conf, model.NewLinear(conf.BoardSize, conf.EmbedDim, conf.Seed), zerolog.Nop())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	_, ok := tr.BestLoss()
	assert.False(t, ok)
	if err := tr.Learn(); err != nil {
		t.Fatalf("%+v", err)
	}

	best, ok := tr.BestLoss()
	assert.True(t, ok)
	want := tr.TotalLosses[0]
	for _, total := range tr.TotalLosses {
		if total < want {
			want = total
		}
	}
	assert.Equal(t, want, best)

	assert.Len(t, tr.TotalLosses, conf.Iterations)
	assert.Len(t, tr.BlackWinRates, conf.Iterations)
	for i := range tr.BlackWinRates {
		total := tr.BlackWinRates[i] + tr.WhiteWinRates[i] + tr.TieRates[i]
		assert.InDeltaf(t, 1, total, 1e-5, "iteration %d rates do not add up", i)
	}
}

func TestTrainerDump(t *testing.T) {
	conf := testConfig()
	conf.Iterations = 1
	tr, err := New(conf, model.NewDummy(conf.BoardSize), zerolog.Nop())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if err := tr.Learn(); err != nil {
		t.Fatalf("%+v", err)
	}

	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := tr.Dump(path); err != nil {
		t.Fatalf("%+v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	assert.Contains(t, string(raw), "black_win_rate")
	assert.Equal(t, 2, countLines(raw), "header plus one iteration")
}

func TestPerturbParams(t *testing.T) {
	m := model.NewLinear(3, 8, 3)
	perturbed := perturbParams(m.Params, 0.1, NewStream(4))
	again := perturbParams(m.Params, 0.1, NewStream(4))

	for name, orig := range m.Params {
		a := perturbed[name].Data().([]float32)
		b := again[name].Data().([]float32)
		assert.Equalf(t, a, b, "parameter %q not reproducible", name)
		assert.NotEqualf(t, orig.Data().([]float32), a, "parameter %q unchanged", name)
	}
}

func countLines(raw []byte) int {
	count := 0
	for _, c := range raw {
		if c == '\n' {
			count++
		}
	}
	return count
}
