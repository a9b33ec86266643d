package catalog

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"knapsackga/internal/model"
)

// LoadFile reads a catalog from a .json or .csv file.
func LoadFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadJSON(file)
	case ".csv":
		return ReadCSV(file)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", path)
	}
}

// WriteFile writes the catalog in the format implied by the path extension.
func WriteFile(path string, c *Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = WriteJSON(file, c)
	case ".csv":
		err = WriteCSV(file, c)
	default:
		err = fmt.Errorf("unsupported catalog format: %s", path)
	}
	if err != nil {
		return err
	}
	return file.Sync()
}

func ReadJSON(r io.Reader) (*Catalog, error) {
	var items []model.Item
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(items)
}

func WriteJSON(w io.Writer, c *Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.items)
}

// ReadCSV expects a weight,value header followed by one item per row.
func ReadCSV(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("catalog csv is empty")
		}
		return nil, err
	}
	weightCol, valueCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "weight":
			weightCol = i
		case "value":
			valueCol = i
		}
	}
	if weightCol < 0 || valueCol < 0 {
		return nil, fmt.Errorf("catalog csv header must contain weight and value columns")
	}

	items := make([]model.Item, 0, 128)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		weight, err := strconv.Atoi(strings.TrimSpace(record[weightCol]))
		if err != nil {
			return nil, fmt.Errorf("catalog csv line %d: weight: %w", line, err)
		}
		value, err := strconv.Atoi(strings.TrimSpace(record[valueCol]))
		if err != nil {
			return nil, fmt.Errorf("catalog csv line %d: value: %w", line, err)
		}
		items = append(items, model.Item{Weight: weight, Value: value})
	}
	return New(items)
}

func WriteCSV(w io.Writer, c *Catalog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"weight", "value"}); err != nil {
		return err
	}
	for _, item := range c.items {
		if err := writer.Write([]string{strconv.Itoa(item.Weight), strconv.Itoa(item.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
