package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"knapsackga/internal/model"
)

const runIndexFile = "run_index.json"

const (
	configFile      = "config.json"
	historyFile     = "fitness_history.json"
	historyCSVFile  = "fitness_history.csv"
	bestFile        = "best.json"
	diagnosticsFile = "generation_diagnostics.json"
	workbookFile    = "fitness.xlsx"
)

type RunConfig struct {
	RunID             string  `json:"run_id"`
	Capacity          int     `json:"capacity"`
	NumItems          int     `json:"num_items"`
	PopulationSize    int     `json:"population_size"`
	Iterations        int     `json:"iterations"`
	MutationRate      float64 `json:"mutation_rate"`
	RevertProbability float64 `json:"revert_probability"`
	LogStep           int     `json:"log_step"`
	Selection         string  `json:"selection"`
	Seed              int64   `json:"seed"`
	CatalogPath       string  `json:"catalog_path,omitempty"`
}

// BestSolution is the reported final individual.
type BestSolution struct {
	Genes       string `json:"genes"`
	Fitness     int    `json:"fitness"`
	Weight      int    `json:"weight"`
	Capacity    int    `json:"capacity"`
	ItemsChosen int    `json:"items_chosen"`
}

type RunArtifacts struct {
	Config                RunConfig                     `json:"config"`
	FitnessHistory        []model.FitnessSample         `json:"fitness_history"`
	GenerationDiagnostics []model.GenerationDiagnostics `json:"generation_diagnostics,omitempty"`
	FinalBestFitness      int                           `json:"final_best_fitness"`
	Best                  BestSolution                  `json:"best"`
}

type RunIndexEntry struct {
	RunID            string `json:"run_id"`
	Capacity         int    `json:"capacity"`
	NumItems         int    `json:"num_items"`
	PopulationSize   int    `json:"population_size"`
	Iterations       int    `json:"iterations"`
	Seed             int64  `json:"seed"`
	Selection        string `json:"selection"`
	FinalBestFitness int    `json:"final_best_fitness"`
	CreatedAtUTC     string `json:"created_at_utc"`
}

type fitnessHistoryDocument struct {
	History          []model.FitnessSample `json:"history"`
	FinalBestFitness int                   `json:"final_best_fitness"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, historyFile), fitnessHistoryDocument{
		History:          nonNilHistory(artifacts.FitnessHistory),
		FinalBestFitness: artifacts.FinalBestFitness,
	}); err != nil {
		return "", err
	}
	if err := WriteFitnessSeries(runDir, artifacts.FitnessHistory); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, bestFile), artifacts.Best); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), artifacts.GenerationDiagnostics); err != nil {
		return "", err
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns index entries newest first. Entries with equal
// timestamps keep the later-appended one first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, historyFile, historyCSVFile, bestFile, diagnosticsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	workbookPath := filepath.Join(src, workbookFile)
	if _, err := os.Stat(workbookPath); err == nil {
		if err := copyFile(workbookPath, filepath.Join(dst, workbookFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

// WorkbookPath is where a run's chart workbook lives next to its artifacts.
func WorkbookPath(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, workbookFile)
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadFitnessHistory(baseDir, runID string) ([]model.FitnessSample, int, bool, error) {
	var doc fitnessHistoryDocument
	ok, err := readJSON(filepath.Join(baseDir, runID, historyFile), &doc)
	if err != nil || !ok {
		return nil, 0, ok, err
	}
	return doc.History, doc.FinalBestFitness, true, nil
}

func ReadBestSolution(baseDir, runID string) (BestSolution, bool, error) {
	var best BestSolution
	ok, err := readJSON(filepath.Join(baseDir, runID, bestFile), &best)
	return best, ok, err
}

func ReadGenerationDiagnostics(baseDir, runID string) ([]model.GenerationDiagnostics, bool, error) {
	var diagnostics []model.GenerationDiagnostics
	ok, err := readJSON(filepath.Join(baseDir, runID, diagnosticsFile), &diagnostics)
	if err != nil || !ok {
		return nil, ok, err
	}
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	return diagnostics, true, nil
}

// WriteFitnessSeries writes the sampled history as iteration,best_fitness rows.
func WriteFitnessSeries(runDir string, history []model.FitnessSample) error {
	file, err := os.Create(filepath.Join(runDir, historyCSVFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"iteration", "best_fitness"}); err != nil {
		return err
	}
	for _, sample := range history {
		if err := writer.Write([]string{
			strconv.Itoa(sample.Iteration),
			strconv.Itoa(sample.BestFitness),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadFitnessSeries(baseDir, runID string) ([]model.FitnessSample, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, historyCSVFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.FitnessSample{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]model.FitnessSample, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("fitness series row must have at least 2 columns")
		}
		iteration, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, false, err
		}
		best, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, false, err
		}
		series = append(series, model.FitnessSample{Iteration: iteration, BestFitness: best})
	}
	return series, true, nil
}

func nonNilHistory(history []model.FitnessSample) []model.FitnessSample {
	if history == nil {
		return []model.FitnessSample{}
	}
	return history
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
