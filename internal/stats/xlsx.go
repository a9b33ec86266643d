package stats

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"knapsackga/internal/model"
)

const fitnessSheet = "fitness"

// WriteFitnessWorkbook writes the sampled history to an xlsx file with a data
// sheet and a line chart of best fitness against iteration.
func WriteFitnessWorkbook(path, runID string, history []model.FitnessSample) error {
	if len(history) == 0 {
		return fmt.Errorf("fitness history is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", fitnessSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(fitnessSheet, "A1", &[]any{"iteration", "best_fitness"}); err != nil {
		return err
	}
	for i, point := range BuildFitnessPlot(history) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(fitnessSheet, cell, &[]any{point.Iteration, point.Value}); err != nil {
			return err
		}
	}

	last := len(history) + 1
	title := "Best fitness"
	if runID != "" {
		title = "Best fitness " + runID
	}
	if err := f.AddChart(fitnessSheet, "D2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", fitnessSheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", fitnessSheet, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", fitnessSheet, last),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
		XAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Iteration"}}},
		YAxis:  excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Best Fitness"}}},
	}); err != nil {
		return fmt.Errorf("add fitness chart: %w", err)
	}

	return f.SaveAs(path)
}

// ReadFitnessWorkbook reads back the data sheet written by WriteFitnessWorkbook.
func ReadFitnessWorkbook(path string) ([]model.FitnessSample, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(fitnessSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s has no header row", path)
	}

	history := make([]model.FitnessSample, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("workbook row %d must have 2 columns", i+2)
		}
		var sample model.FitnessSample
		if _, err := fmt.Sscan(row[0], &sample.Iteration); err != nil {
			return nil, fmt.Errorf("workbook row %d iteration: %w", i+2, err)
		}
		if _, err := fmt.Sscan(row[1], &sample.BestFitness); err != nil {
			return nil, fmt.Errorf("workbook row %d best fitness: %w", i+2, err)
		}
		history = append(history, sample)
	}
	return history, nil
}
