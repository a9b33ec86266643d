package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapsackga/internal/model"
)

func TestRunCodecStampsVersions(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{ID: "r1", BestFitness: 7})
	require.NoError(t, err)

	run, err := DecodeRun(data)
	require.NoError(t, err)
	assert.Equal(t, "r1", run.ID)
	assert.Equal(t, 7, run.BestFitness)
	assert.Equal(t, CurrentSchemaVersion, run.SchemaVersion)
	assert.Equal(t, CurrentCodecVersion, run.CodecVersion)
}

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	data, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: 99, CodecVersion: CurrentCodecVersion},
		ID:              "r1",
	})
	require.NoError(t, err)

	_, err = DecodeRun(data)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	_, err = DecodeRun([]byte("{"))
	assert.Error(t, err)
}

func TestFitnessHistoryCodecKeepsOrder(t *testing.T) {
	input := []model.FitnessSample{{Iteration: 0, BestFitness: 12}, {Iteration: 20, BestFitness: 30}, {Iteration: 40, BestFitness: 29}}
	data, err := EncodeFitnessHistory(input)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"iteration":0,"best_fitness":12},{"iteration":20,"best_fitness":30},{"iteration":40,"best_fitness":29}]`, string(data))

	output, err := DecodeFitnessHistory(data)
	require.NoError(t, err)
	assert.Equal(t, input, output)
}
