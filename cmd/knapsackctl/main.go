package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"knapsackga/internal/catalog"
	"knapsackga/internal/evo"
	"knapsackga/internal/model"
	"knapsackga/internal/storage"
	"knapsackga/pkg/knapsack"
)

const (
	benchmarksDir = "benchmarks"
	exportsDir    = "exports"
	defaultDBPath = "knapsack.db"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "catalog":
		return runCatalog(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	capacity := fs.Int("capacity", knapsack.DefaultCapacity, "knapsack weight capacity")
	items := fs.Int("items", knapsack.DefaultNumItems, "number of random items to generate")
	population := fs.Int("pop", evo.DefaultPopulationSize, "population size (even)")
	iterations := fs.Int("iterations", evo.DefaultIterations, "generation count")
	mutationRate := fs.Float64("mutation-rate", evo.DefaultMutationRate, "per-gene bit flip probability")
	logStep := fs.Int("log-step", evo.DefaultLogStep, "record best fitness every N iterations")
	seed := fs.Int64("seed", 0, "rng seed (0 draws one from the clock)")
	selection := fs.String("selection", "truncation", selectionUsage())
	revertProbability := fs.Float64("revert-probability", evo.DefaultRevertProbability, "chance greedy repair keeps a gene that could be dropped")
	catalogPath := fs.String("catalog", "", "load items from a .json or .csv catalog instead of generating them")
	workbook := fs.Bool("xlsx", false, "also write fitness.xlsx with a line chart")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres|mysql|badger")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite path, badger directory or postgres/mysql DSN")
	logLevel := fs.String("log-level", "info", "log level: debug|info|warn|error")
	logFormat := fs.String("log-format", "text", "log format: text|json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		bound := *capacity
		rate := *mutationRate
		req = knapsack.RunRequest{
			Capacity:     &bound,
			NumItems:     *items,
			Population:   *population,
			Iterations:   *iterations,
			MutationRate: &rate,
			LogStep:      *logStep,
			Seed:         *seed,
			Selection:    *selection,
			CatalogPath:  *catalogPath,
			Workbook:     *workbook,
		}
		if setFlags["revert-probability"] {
			p := *revertProbability
			req.RevertProbability = &p
		}
	} else if err := overrideFromFlags(&req, setFlags, map[string]any{
		"capacity":           *capacity,
		"items":              *items,
		"pop":                *population,
		"iterations":         *iterations,
		"mutation-rate":      *mutationRate,
		"log-step":           *logStep,
		"seed":               *seed,
		"selection":          *selection,
		"revert-probability": *revertProbability,
		"catalog":            *catalogPath,
		"xlsx":               *workbook,
	}); err != nil {
		return err
	}

	logger, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		return err
	}

	client, err := knapsack.New(knapsack.Options{
		StoreKind:     *storeKind,
		DBPath:        *dbPath,
		BenchmarksDir: benchmarksDir,
		ExportsDir:    exportsDir,
		Logger:        logger,
		Stdout:        stdout,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "run_id=%s seed=%d best_fitness=%d best_weight=%d capacity=%d items_chosen=%d evaluations=%d\n",
		summary.RunID,
		summary.Seed,
		summary.FinalBestFitness,
		summary.BestWeight,
		summary.Capacity,
		summary.ItemsChosen,
		summary.Evaluations,
	)
	fmt.Fprintf(stdout, "artifacts=%s\n", summary.ArtifactsDir)
	if summary.WorkbookPath != "" {
		fmt.Fprintf(stdout, "workbook=%s\n", summary.WorkbookPath)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind := fs.String("store", "", "list runs from this store backend instead of the run index: memory|sqlite|postgres|mysql|badger")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite path, badger directory or postgres/mysql DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := knapsack.New(knapsack.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, knapsack.RunsRequest{Limit: *limit, FromStore: *storeKind != ""})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}

	if *jsonOut {
		type runsItem struct {
			RunID            string `json:"run_id"`
			CreatedAtUTC     string `json:"created_at_utc"`
			Capacity         int    `json:"capacity"`
			NumItems         int    `json:"num_items"`
			PopulationSize   int    `json:"population_size"`
			Iterations       int    `json:"iterations"`
			Seed             int64  `json:"seed"`
			Selection        string `json:"selection"`
			FinalBestFitness int    `json:"final_best_fitness"`
		}
		out := make([]runsItem, 0, len(items))
		for _, item := range items {
			out = append(out, runsItem{
				RunID:            item.RunID,
				CreatedAtUTC:     item.CreatedAtUTC,
				Capacity:         item.Capacity,
				NumItems:         item.NumItems,
				PopulationSize:   item.Population,
				Iterations:       item.Iterations,
				Seed:             item.Seed,
				Selection:        item.Selection,
				FinalBestFitness: item.FinalBestFitness,
			})
		}
		return encodeJSON(out)
	}

	p := message.NewPrinter(language.English)
	for _, item := range items {
		p.Fprintf(stdout, "run_id=%s created_at=%s capacity=%d items=%d pop=%d iterations=%d seed=%d selection=%s final_best_fitness=%d\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Capacity,
			item.NumItems,
			item.Population,
			item.Iterations,
			item.Seed,
			item.Selection,
			item.FinalBestFitness,
		)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run from run index")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres|mysql|badger")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite path, badger directory or postgres/mysql DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}

	client, err := knapsack.New(knapsack.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	details, err := client.Show(ctx, knapsack.ShowRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}

	type showItem struct {
		RunID        string          `json:"run_id"`
		CreatedAtUTC string          `json:"created_at_utc,omitempty"`
		Source       string          `json:"source"`
		Config       model.RunConfig `json:"config"`
		BestGenes    string          `json:"best_genes"`
		BestFitness  int             `json:"best_fitness"`
		BestWeight   int             `json:"best_weight"`
		ChosenItems  []int           `json:"chosen_items"`
		Evaluations  int64           `json:"evaluations,omitempty"`
		Catalog      []model.Item    `json:"catalog,omitempty"`
	}
	return encodeJSON(showItem{
		RunID:        details.RunID,
		CreatedAtUTC: details.CreatedAtUTC,
		Source:       details.Source,
		Config:       details.Config,
		BestGenes:    details.BestGenes,
		BestFitness:  details.BestFitness,
		BestWeight:   details.BestWeight,
		ChosenItems:  details.ChosenItems,
		Evaluations:  details.Evaluations,
		Catalog:      details.Catalog,
	})
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	average := fs.Int("average", -1, "average the history of the N newest runs (0 for all)")
	workbook := fs.String("xlsx", "", "read the history from a fitness.xlsx workbook")
	limit := fs.Int("limit", 50, "max samples to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres|mysql|badger")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite path, badger directory or postgres/mysql DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := knapsack.New(knapsack.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *average >= 0 {
		if *runID != "" || *latest || *workbook != "" {
			return errors.New("use either --average or --run-id/--latest/--xlsx")
		}
		points, err := client.AverageFitness(ctx, knapsack.AverageFitnessRequest{Runs: *average})
		if err != nil {
			return err
		}
		if *jsonOut {
			return encodeJSON(points)
		}
		for _, point := range points {
			fmt.Fprintf(stdout, "iteration=%d mean_best_fitness=%.3f runs=%d\n", point.Iteration, point.Value, point.Runs)
		}
		return nil
	}

	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest && *workbook == "" {
		return errors.New("fitness requires --run-id, --latest or --xlsx")
	}
	if *limit < 0 {
		*limit = 0
	}

	history, err := client.FitnessHistory(ctx, knapsack.FitnessHistoryRequest{
		RunID:    *runID,
		Latest:   *latest,
		Limit:    *limit,
		Workbook: *workbook,
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintln(stdout, "no fitness history")
		return nil
	}
	if *jsonOut {
		return encodeJSON(history)
	}

	for _, sample := range history {
		fmt.Fprintf(stdout, "iteration=%d best_fitness=%d\n", sample.Iteration, sample.BestFitness)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max samples to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite|postgres|mysql|badger")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite path, badger directory or postgres/mysql DSN")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := knapsack.New(knapsack.Options{StoreKind: *storeKind, DBPath: *dbPath, BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, knapsack.DiagnosticsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return encodeJSON(diagnostics)
	}
	for _, d := range diagnostics {
		fmt.Fprintf(stdout, "iteration=%d best=%d mean=%.3f min=%d feasible=%d diversity=%d\n",
			d.Iteration, d.BestFitness, d.MeanFitness, d.MinFitness, d.FeasibleCount, d.Diversity)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	client, err := knapsack.New(knapsack.Options{BenchmarksDir: benchmarksDir, ExportsDir: exportsDir})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Export(ctx, knapsack.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported run_id=%s to=%s\n", summary.RunID, summary.Directory)
	return nil
}

func runCatalog(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	n := fs.Int("n", knapsack.DefaultNumItems, "number of items")
	seed := fs.Int64("seed", 1, "rng seed")
	minWeight := fs.Int("min-weight", catalog.DefaultRanges().MinWeight, "minimum item weight")
	maxWeight := fs.Int("max-weight", catalog.DefaultRanges().MaxWeight, "maximum item weight")
	minValue := fs.Int("min-value", catalog.DefaultRanges().MinValue, "minimum item value")
	maxValue := fs.Int("max-value", catalog.DefaultRanges().MaxValue, "maximum item value")
	out := fs.String("out", "", "output path ending in .json or .csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return errors.New("catalog requires --out")
	}

	items, err := catalog.Generate(rand.New(rand.NewSource(*seed)), *n, catalog.Ranges{
		MinWeight: *minWeight,
		MaxWeight: *maxWeight,
		MinValue:  *minValue,
		MaxValue:  *maxValue,
	})
	if err != nil {
		return err
	}
	if err := catalog.WriteFile(*out, items); err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Fprintf(stdout, "wrote items=%d total_weight=%d total_value=%d to=%s\n", items.Len(), items.TotalWeight(), items.TotalValue(), filepath.Clean(*out))
	return nil
}

// selectionUsage lists every registered selector, including ones added by
// embedders through evo.RegisterSelector.
func selectionUsage() string {
	return "parent selection: " + strings.Join(evo.ListSelectors(), "|")
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func encodeJSON(value any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: knapsackctl <run|runs|show|fitness|diagnostics|export|catalog> [flags]", msg)
}
