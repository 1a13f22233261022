package muzgo

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/gorgonia/muzgo/game"
)

// Statistics accumulates per-iteration summaries of a training run.
type Statistics struct {
	BlackWinRates []float32
	WhiteWinRates []float32
	TieRates      []float32
	MeanLengths   []float32
	PassRates     []float32 // passes per recorded real action
	TotalLosses   []float32
}

func makeStatistics() Statistics {
	return Statistics{
		BlackWinRates: make([]float32, 0, 64),
		WhiteWinRates: make([]float32, 0, 64),
		TieRates:      make([]float32, 0, 64),
		MeanLengths:   make([]float32, 0, 64),
		PassRates:     make([]float32, 0, 64),
		TotalLosses:   make([]float32, 0, 64),
	}
}

// update folds one iteration's games and loss into the run record.
func (s *Statistics) update(rules game.Rules, traj *game.Trajectories, loss LossMetrics) error {
	winners, err := Winners(rules, traj)
	if err != nil {
		return err
	}
	var black, white, tie int
	for _, w := range winners {
		switch {
		case w > 0:
			black++
		case w < 0:
			white++
		default:
			tie++
		}
	}
	batch := float32(traj.Batch())
	var length int
	for _, f := range finalIndices(traj) {
		length += f
	}
	var moves, passes int
	pass := game.PassIndex(traj.BoardSize())
	for n := 0; n < traj.Batch(); n++ {
		for t := 0; t < traj.Steps(); t++ {
			switch traj.Action(n, t) {
			case game.NoAction:
			case pass:
				moves++
				passes++
			default:
				moves++
			}
		}
	}
	s.BlackWinRates = append(s.BlackWinRates, float32(black)/batch)
	s.WhiteWinRates = append(s.WhiteWinRates, float32(white)/batch)
	s.TieRates = append(s.TieRates, float32(tie)/batch)
	s.MeanLengths = append(s.MeanLengths, float32(length)/batch)
	s.PassRates = append(s.PassRates, maskedMean(float32(passes), moves))
	s.TotalLosses = append(s.TotalLosses, loss.Total)
	return nil
}

// Dump writes one CSV row per iteration.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"black_win_rate", "white_win_rate", "tie_rate", "mean_length", "pass_rate", "total_loss"}); err != nil {
		return err
	}
	var records [][]string
	for i := range s.TotalLosses {
		records = append(records, []string{
			strconv.FormatFloat(float64(s.BlackWinRates[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.WhiteWinRates[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.TieRates[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.MeanLengths[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.PassRates[i]), 'f', 3, 32),
			strconv.FormatFloat(float64(s.TotalLosses[i]), 'f', 4, 32),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
