package stats

import "knapsackga/internal/model"

// FitnessPlotPoint is one x/y point of the iteration versus best fitness curve.
type FitnessPlotPoint struct {
	Iteration int `json:"iteration"`
	Value     int `json:"value"`
}

func BuildFitnessPlot(history []model.FitnessSample) []FitnessPlotPoint {
	points := make([]FitnessPlotPoint, 0, len(history))
	for _, sample := range history {
		points = append(points, FitnessPlotPoint{Iteration: sample.Iteration, Value: sample.BestFitness})
	}
	return points
}

// BuildAverageFitnessPlot averages the best fitness of several runs sample by
// sample. Shorter histories stop contributing once exhausted; the iteration
// label comes from the first history that still has a sample at that position.
func BuildAverageFitnessPlot(histories [][]model.FitnessSample) []AveragePlotPoint {
	points := make([]AveragePlotPoint, 0, 64)
	for pos := 0; ; pos++ {
		var (
			sum       int
			count     int
			iteration int
		)
		for _, history := range histories {
			if pos >= len(history) {
				continue
			}
			if count == 0 {
				iteration = history[pos].Iteration
			}
			sum += history[pos].BestFitness
			count++
		}
		if count == 0 {
			break
		}
		points = append(points, AveragePlotPoint{
			Iteration: iteration,
			Value:     float64(sum) / float64(count),
			Runs:      count,
		})
	}
	return points
}

type AveragePlotPoint struct {
	Iteration int     `json:"iteration"`
	Value     float64 `json:"value"`
	Runs      int     `json:"runs"`
}
