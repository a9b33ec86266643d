package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Item is a single knapsack entry. Items are identified by their catalog index.
type Item struct {
	Weight int `json:"weight"`
	Value  int `json:"value"`
}

// FitnessSample is one best-of-generation observation taken every log step.
type FitnessSample struct {
	Iteration   int `json:"iteration"`
	BestFitness int `json:"best_fitness"`
}

type GenerationDiagnostics struct {
	Iteration     int     `json:"iteration"`
	BestFitness   int     `json:"best_fitness"`
	MeanFitness   float64 `json:"mean_fitness"`
	MinFitness    int     `json:"min_fitness"`
	FeasibleCount int     `json:"feasible_count"`
	Diversity     int     `json:"diversity"`
}

type RunConfig struct {
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

// RunRecord is the persisted outcome of one solver run. It is written once
// after the run terminates and never fed back into another run.
type RunRecord struct {
	VersionedRecord
	ID           string    `json:"id"`
	CreatedAtUTC string    `json:"created_at_utc"`
	Config       RunConfig `json:"config"`
	Catalog      []Item    `json:"catalog"`
	BestGenes    string    `json:"best_genes"`
	BestFitness  int       `json:"best_fitness"`
	BestWeight   int       `json:"best_weight"`
	Evaluations  int64     `json:"evaluations"`
}
