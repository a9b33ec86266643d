package catalog

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knapsackga/internal/model"
)

func TestNewRejectsNonPositiveItems(t *testing.T) {
	_, err := New([]model.Item{{Weight: 1, Value: 1}, {Weight: 0, Value: 3}})
	require.ErrorIs(t, err, ErrInvalidItem)

	_, err = New([]model.Item{{Weight: 2, Value: -1}})
	require.ErrorIs(t, err, ErrInvalidItem)
}

func TestCatalogIsImmutable(t *testing.T) {
	input := []model.Item{{Weight: 2, Value: 3}, {Weight: 3, Value: 4}}
	c, err := New(input)
	require.NoError(t, err)

	input[0].Weight = 99
	assert.Equal(t, 2, c.Item(0).Weight)

	items := c.Items()
	items[1].Value = 99
	assert.Equal(t, 4, c.Item(1).Value)
	assert.Equal(t, 5, c.TotalWeight())
	assert.Equal(t, 7, c.TotalValue())
}

func TestGenerateRespectsRangesAndSeed(t *testing.T) {
	a, err := Generate(rand.New(rand.NewSource(7)), 200, DefaultRanges())
	require.NoError(t, err)
	b, err := Generate(rand.New(rand.NewSource(7)), 200, DefaultRanges())
	require.NoError(t, err)

	require.Equal(t, 200, a.Len())
	assert.Equal(t, a.Items(), b.Items())
	for i := 0; i < a.Len(); i++ {
		item := a.Item(i)
		assert.GreaterOrEqual(t, item.Weight, 1)
		assert.LessOrEqual(t, item.Weight, 5)
		assert.GreaterOrEqual(t, item.Value, 2)
		assert.LessOrEqual(t, item.Value, 10)
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := Generate(nil, 10, DefaultRanges())
	assert.Error(t, err)
	_, err = Generate(rng, 0, DefaultRanges())
	assert.Error(t, err)
	_, err = Generate(rng, 10, Ranges{MinWeight: 3, MaxWeight: 1, MinValue: 1, MaxValue: 2})
	assert.Error(t, err)
}

func TestCSVRoundTrip(t *testing.T) {
	c := MustNew([]model.Item{{Weight: 2, Value: 3}, {Weight: 5, Value: 6}})
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c))
	assert.Equal(t, "weight,value\n2,3\n5,6\n", buf.String())

	loaded, err := ReadCSV(strings.NewReader("value, weight\n3,2\n6,5\n"))
	require.NoError(t, err)
	assert.Equal(t, c.Items(), loaded.Items())
}

func TestReadCSVRejectsMissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("w,v\n1,2\n"))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("weight,value\nx,2\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestLoadFileJSONAndCSV(t *testing.T) {
	dir := t.TempDir()
	c := MustNew([]model.Item{{Weight: 1, Value: 2}, {Weight: 4, Value: 9}, {Weight: 3, Value: 3}})

	for _, name := range []string{"items.json", "items.csv"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteFile(path, c))
		loaded, err := LoadFile(path)
		require.NoError(t, err, name)
		assert.Equal(t, c.Items(), loaded.Items(), name)
	}

	assert.Error(t, WriteFile(filepath.Join(dir, "items.txt"), c))
	_, err := LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
