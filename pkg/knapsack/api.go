package knapsack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"knapsackga/internal/catalog"
	"knapsackga/internal/evo"
	"knapsackga/internal/model"
	"knapsackga/internal/stats"
	"knapsackga/internal/storage"
)

const (
	defaultBenchmarksDir = "benchmarks"
	defaultExportsDir    = "exports"
	defaultDBPath        = "knapsack.db"

	DefaultCapacity = 150
	DefaultNumItems = 100
)

type Options struct {
	StoreKind     string
	DBPath        string
	BenchmarksDir string
	ExportsDir    string
	// Logger receives structured run events. Nil discards them.
	Logger *slog.Logger
	// Stdout receives the per-sample progress lines and the final line.
	// Nil discards them.
	Stdout io.Writer
}

type Client struct {
	store       storage.Store
	storeKind   string
	initialized bool

	benchmarksDir string
	exportsDir    string
	logger        *slog.Logger
	stdout        io.Writer
	now           func() time.Time
}

type RunRequest struct {
	// Capacity nil means DefaultCapacity. Zero is a valid bound that only
	// the empty subset satisfies.
	Capacity   *int
	NumItems   int
	Population int
	Iterations int
	// MutationRate nil means the default rate; zero disables mutation.
	MutationRate *float64
	LogStep      int
	// Seed zero draws a seed from the clock; the drawn seed is recorded.
	Seed      int64
	Selection string
	// RevertProbability nil means the default coin of 0.5.
	RevertProbability *float64
	// CatalogPath loads items from a .json or .csv file instead of
	// generating NumItems random ones.
	CatalogPath string
	// Workbook also writes fitness.xlsx with a line chart into the run's
	// artifact directory.
	Workbook bool
}

type RunSummary struct {
	RunID            string
	ArtifactsDir     string
	WorkbookPath     string
	Seed             int64
	History          []model.FitnessSample
	FinalBestFitness int
	BestGenes        string
	BestWeight       int
	Capacity         int
	ItemsChosen      int
	Evaluations      int64
}

type RunsRequest struct {
	Limit int
	// FromStore lists the configured store instead of the run index.
	FromStore bool
}

type RunItem struct {
	RunID            string
	CreatedAtUTC     string
	Capacity         int
	NumItems         int
	Population       int
	Iterations       int
	Seed             int64
	Selection        string
	FinalBestFitness int
}

type ShowRequest struct {
	RunID  string
	Latest bool
}

// RunDetails describes one finished run. Catalog and Evaluations are only
// known when the run is read from the store.
type RunDetails struct {
	RunID        string
	CreatedAtUTC string
	Source       string
	Config       model.RunConfig
	Catalog      []model.Item
	BestGenes    string
	BestFitness  int
	BestWeight   int
	ChosenItems  []int
	Evaluations  int64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
	// Workbook reads the samples from a fitness.xlsx file instead of a run.
	Workbook string
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type AverageFitnessRequest struct {
	// Runs is how many of the newest runs to average. Zero means all.
	Runs int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" && storeKind == storage.KindSQLite {
		dbPath = defaultDBPath
	}
	benchmarksDir := opts.BenchmarksDir
	if benchmarksDir == "" {
		benchmarksDir = defaultBenchmarksDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:         store,
		storeKind:     storeKind,
		benchmarksDir: benchmarksDir,
		exportsDir:    exportsDir,
		logger:        logger,
		stdout:        stdout,
		now:           time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.ensureStore(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	capacity := DefaultCapacity
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if capacity < 0 {
		return RunSummary{}, fmt.Errorf("capacity must be >= 0, got %d", capacity)
	}
	if req.NumItems <= 0 {
		req.NumItems = DefaultNumItems
	}
	if req.Population <= 0 {
		req.Population = evo.DefaultPopulationSize
	}
	if req.Iterations <= 0 {
		req.Iterations = evo.DefaultIterations
	}
	if req.LogStep <= 0 {
		req.LogStep = evo.DefaultLogStep
	}
	mutationRate := evo.DefaultMutationRate
	if req.MutationRate != nil {
		mutationRate = *req.MutationRate
	}
	if req.Selection == "" {
		req.Selection = "truncation"
	}
	if req.Seed == 0 {
		req.Seed = c.now().UnixNano()
	}

	selector, err := evo.SelectorByName(req.Selection)
	if err != nil {
		return RunSummary{}, err
	}
	revertProbability := evo.DefaultRevertProbability
	if req.RevertProbability != nil {
		revertProbability = *req.RevertProbability
	}
	repair := &evo.GreedyRepair{RevertProbability: revertProbability}

	if err := c.ensureStore(ctx); err != nil {
		return RunSummary{}, err
	}

	rng := rand.New(rand.NewSource(req.Seed))
	items, err := c.loadCatalog(rng, req)
	if err != nil {
		return RunSummary{}, err
	}
	req.NumItems = items.Len()

	eval, err := evo.NewEvaluator(items, capacity)
	if err != nil {
		return RunSummary{}, err
	}

	progress := evo.ProgressWriter{W: c.stdout}
	driver, err := evo.NewDriver(evo.Config{
		PopulationSize: req.Population,
		Iterations:     req.Iterations,
		MutationRate:   mutationRate,
		LogStep:        req.LogStep,
		Selector:       selector,
		Repair:         repair,
		Logger:         c.logger,
	}, eval, progress)
	if err != nil {
		return RunSummary{}, err
	}

	now := c.now().UTC()
	runID := uuid.NewString()
	c.logger.Info("run started",
		"run_id", runID,
		"capacity", capacity,
		"items", req.NumItems,
		"population", req.Population,
		"iterations", req.Iterations,
		"mutation_rate", mutationRate,
		"revert_probability", revertProbability,
		"selection", selector.Name(),
		"seed", req.Seed,
	)

	result, err := driver.Run(ctx, rng)
	if err != nil {
		return RunSummary{}, err
	}
	progress.WriteFinal(result.Best.Fitness)

	runConfig := model.RunConfig{
		Capacity:          capacity,
		NumItems:          req.NumItems,
		PopulationSize:    req.Population,
		Iterations:        req.Iterations,
		MutationRate:      mutationRate,
		RevertProbability: revertProbability,
		LogStep:           req.LogStep,
		Selection:         selector.Name(),
		Seed:              req.Seed,
		CatalogPath:       req.CatalogPath,
	}
	record := model.RunRecord{
		ID:           runID,
		CreatedAtUTC: now.Format(time.RFC3339Nano),
		Config:       runConfig,
		Catalog:      items.Items(),
		BestGenes:    result.Best.String(),
		BestFitness:  result.Best.Fitness,
		BestWeight:   result.BestMeasurement.Weight,
		Evaluations:  result.Evaluations,
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run: %w", err)
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, result.History); err != nil {
		return RunSummary{}, fmt.Errorf("save fitness history: %w", err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics: %w", err)
	}

	best := stats.BestSolution{
		Genes:       record.BestGenes,
		Fitness:     record.BestFitness,
		Weight:      record.BestWeight,
		Capacity:    capacity,
		ItemsChosen: len(result.Best.Selected()),
	}
	runDir, err := stats.WriteRunArtifacts(c.benchmarksDir, stats.RunArtifacts{
		Config: stats.RunConfig{
			RunID:             runID,
			Capacity:          runConfig.Capacity,
			NumItems:          runConfig.NumItems,
			PopulationSize:    runConfig.PopulationSize,
			Iterations:        runConfig.Iterations,
			MutationRate:      runConfig.MutationRate,
			RevertProbability: runConfig.RevertProbability,
			LogStep:           runConfig.LogStep,
			Selection:         runConfig.Selection,
			Seed:              runConfig.Seed,
			CatalogPath:       runConfig.CatalogPath,
		},
		FitnessHistory:        result.History,
		GenerationDiagnostics: result.Diagnostics,
		FinalBestFitness:      record.BestFitness,
		Best:                  best,
	})
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.benchmarksDir, stats.RunIndexEntry{
		RunID:            runID,
		Capacity:         runConfig.Capacity,
		NumItems:         runConfig.NumItems,
		PopulationSize:   runConfig.PopulationSize,
		Iterations:       runConfig.Iterations,
		Seed:             runConfig.Seed,
		Selection:        runConfig.Selection,
		FinalBestFitness: record.BestFitness,
		CreatedAtUTC:     record.CreatedAtUTC,
	}); err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{
		RunID:            runID,
		ArtifactsDir:     filepath.Clean(runDir),
		Seed:             req.Seed,
		History:          append([]model.FitnessSample(nil), result.History...),
		FinalBestFitness: record.BestFitness,
		BestGenes:        record.BestGenes,
		BestWeight:       record.BestWeight,
		Capacity:         capacity,
		ItemsChosen:      best.ItemsChosen,
		Evaluations:      record.Evaluations,
	}
	if req.Workbook {
		path := stats.WorkbookPath(c.benchmarksDir, runID)
		if err := stats.WriteFitnessWorkbook(path, runID, result.History); err != nil {
			return RunSummary{}, err
		}
		summary.WorkbookPath = filepath.Clean(path)
	}

	c.logger.Info("run finished",
		"run_id", runID,
		"best_fitness", record.BestFitness,
		"best_weight", record.BestWeight,
		"evaluations", record.Evaluations,
		"store", c.storeKind,
		"artifacts", summary.ArtifactsDir,
	)
	return summary, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	if req.FromStore {
		return c.storedRuns(ctx, req.Limit)
	}

	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:            e.RunID,
			CreatedAtUTC:     e.CreatedAtUTC,
			Capacity:         e.Capacity,
			NumItems:         e.NumItems,
			Population:       e.PopulationSize,
			Iterations:       e.Iterations,
			Seed:             e.Seed,
			Selection:        e.Selection,
			FinalBestFitness: e.FinalBestFitness,
		})
	}
	return out, nil
}

func (c *Client) storedRuns(ctx context.Context, limit int) ([]RunItem, error) {
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	records, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) > limit {
		records = records[:limit]
	}

	out := make([]RunItem, 0, len(records))
	for _, r := range records {
		out = append(out, RunItem{
			RunID:            r.ID,
			CreatedAtUTC:     r.CreatedAtUTC,
			Capacity:         r.Config.Capacity,
			NumItems:         r.Config.NumItems,
			Population:       r.Config.PopulationSize,
			Iterations:       r.Config.Iterations,
			Seed:             r.Config.Seed,
			Selection:        r.Config.Selection,
			FinalBestFitness: r.BestFitness,
		})
	}
	return out, nil
}

// Show describes a run from the store, or from its artifacts when the store
// does not hold it.
func (c *Client) Show(ctx context.Context, req ShowRequest) (RunDetails, error) {
	if req.RunID != "" && req.Latest {
		return RunDetails{}, errors.New("use either run id or latest")
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest, "show")
	if err != nil {
		return RunDetails{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return RunDetails{}, err
	}

	var details RunDetails
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return RunDetails{}, err
	}
	if ok {
		details = RunDetails{
			RunID:        run.ID,
			CreatedAtUTC: run.CreatedAtUTC,
			Source:       "store",
			Config:       run.Config,
			Catalog:      run.Catalog,
			BestGenes:    run.BestGenes,
			BestFitness:  run.BestFitness,
			BestWeight:   run.BestWeight,
			Evaluations:  run.Evaluations,
		}
	} else {
		details, ok, err = c.artifactDetails(runID)
		if err != nil {
			return RunDetails{}, err
		}
		if !ok {
			return RunDetails{}, fmt.Errorf("run not found: %s", runID)
		}
	}

	genes, err := evo.ParseGenes(details.BestGenes)
	if err != nil {
		return RunDetails{}, fmt.Errorf("run %s: %w", runID, err)
	}
	details.ChosenItems = (&evo.Individual{Genes: genes}).Selected()
	return details, nil
}

func (c *Client) artifactDetails(runID string) (RunDetails, bool, error) {
	cfg, ok, err := stats.ReadRunConfig(c.benchmarksDir, runID)
	if err != nil || !ok {
		return RunDetails{}, false, err
	}
	best, ok, err := stats.ReadBestSolution(c.benchmarksDir, runID)
	if err != nil || !ok {
		return RunDetails{}, false, err
	}

	details := RunDetails{
		RunID:  runID,
		Source: "artifacts",
		Config: model.RunConfig{
			Capacity:          cfg.Capacity,
			NumItems:          cfg.NumItems,
			PopulationSize:    cfg.PopulationSize,
			Iterations:        cfg.Iterations,
			MutationRate:      cfg.MutationRate,
			RevertProbability: cfg.RevertProbability,
			LogStep:           cfg.LogStep,
			Selection:         cfg.Selection,
			Seed:              cfg.Seed,
			CatalogPath:       cfg.CatalogPath,
		},
		BestGenes:   best.Genes,
		BestFitness: best.Fitness,
		BestWeight:  best.Weight,
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return RunDetails{}, false, err
	}
	for _, e := range entries {
		if e.RunID == runID {
			details.CreatedAtUTC = e.CreatedAtUTC
			break
		}
	}
	return details, true, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "export")
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.benchmarksDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]model.FitnessSample, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Workbook != "" {
		if req.RunID != "" || req.Latest {
			return nil, errors.New("use either workbook or run id/latest")
		}
		history, err := stats.ReadFitnessWorkbook(req.Workbook)
		if err != nil {
			return nil, err
		}
		return limitSamples(history, req.Limit), nil
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "fitness history")
	if err != nil {
		return nil, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The store may be a fresh in-memory one; fall back to the artifacts.
		history, _, ok, err = stats.ReadFitnessHistory(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		// Hand-copied artifact sets may only carry the CSV series.
		history, ok, err = stats.ReadFitnessSeries(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	return limitSamples(history, req.Limit), nil
}

func limitSamples(history []model.FitnessSample, limit int) []model.FitnessSample {
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return append([]model.FitnessSample(nil), history...)
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}

	runID, err := c.resolveRunID(req.RunID, req.Latest, "diagnostics")
	if err != nil {
		return nil, err
	}

	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		diagnostics, ok, err = stats.ReadGenerationDiagnostics(c.benchmarksDir, runID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
		}
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// AverageFitness averages the sampled best fitness of the newest runs.
func (c *Client) AverageFitness(ctx context.Context, req AverageFitnessRequest) ([]stats.AveragePlotPoint, error) {
	if req.Runs < 0 {
		return nil, errors.New("runs must be >= 0")
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return nil, err
	}
	if req.Runs > 0 && len(entries) > req.Runs {
		entries = entries[:req.Runs]
	}

	histories := make([][]model.FitnessSample, 0, len(entries))
	for _, e := range entries {
		history, err := c.FitnessHistory(ctx, FitnessHistoryRequest{RunID: e.RunID})
		if err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}
	return stats.BuildAverageFitnessPlot(histories), nil
}

func (c *Client) loadCatalog(rng *rand.Rand, req RunRequest) (*catalog.Catalog, error) {
	if req.CatalogPath != "" {
		items, err := catalog.LoadFile(req.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return items, nil
	}
	return catalog.Generate(rng, req.NumItems, catalog.DefaultRanges())
}

func (c *Client) resolveRunID(runID string, latest bool, action string) (string, error) {
	if !latest {
		if runID == "" {
			return "", fmt.Errorf("%s requires run id or latest", action)
		}
		return runID, nil
	}
	entries, err := stats.ListRunIndex(c.benchmarksDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init %s store: %w", c.storeKind, err)
	}
	c.initialized = true
	return nil
}
