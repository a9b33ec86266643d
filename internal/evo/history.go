package evo

import (
	"fmt"
	"io"

	"knapsackga/internal/model"
)

// Recorder receives one best-fitness sample per log step.
type Recorder interface {
	Record(sample model.FitnessSample)
}

type RecorderFunc func(sample model.FitnessSample)

func (f RecorderFunc) Record(sample model.FitnessSample) {
	f(sample)
}

// History is an append-only in-memory recorder.
type History struct {
	samples []model.FitnessSample
}

func (h *History) Record(sample model.FitnessSample) {
	h.samples = append(h.samples, sample)
}

// Samples returns a copy of the recorded samples in recording order.
func (h *History) Samples() []model.FitnessSample {
	return append([]model.FitnessSample(nil), h.samples...)
}

func (h *History) Len() int {
	return len(h.samples)
}

// ProgressWriter prints the human-readable progress line for each sample.
type ProgressWriter struct {
	W io.Writer
}

func (p ProgressWriter) Record(sample model.FitnessSample) {
	fmt.Fprintf(p.W, "Iteration %d: Best Fitness = %d\n", sample.Iteration, sample.BestFitness)
}

// WriteFinal prints the closing summary line of a run.
func (p ProgressWriter) WriteFinal(bestFitness int) {
	fmt.Fprintf(p.W, "Final Best Fitness: %d\n", bestFitness)
}
