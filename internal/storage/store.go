package storage

import (
	"context"
	"errors"

	"knapsackga/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists finished run outcomes. Records are written after a run ends
// and are only read back for reporting and export.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveFitnessHistory(ctx context.Context, runID string, history []model.FitnessSample) error
	GetFitnessHistory(ctx context.Context, runID string) ([]model.FitnessSample, bool, error)
	SaveGenerationDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetGenerationDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}
