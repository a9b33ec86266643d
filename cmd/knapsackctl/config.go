package main

import (
	"encoding/json"
	"fmt"
	"os"

	"knapsackga/pkg/knapsack"
)

func loadRunRequestFromConfig(path string) (knapsack.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return knapsack.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return knapsack.RunRequest{}, err
	}

	var req knapsack.RunRequest
	if v, ok := asInt(raw["capacity"]); ok {
		req.Capacity = &v
	}
	if v, ok := asInt(raw["num_items"]); ok {
		req.NumItems = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["iterations"]); ok {
		req.Iterations = v
	}
	if v, ok := asFloat64(raw["mutation_rate"]); ok {
		req.MutationRate = &v
	}
	if v, ok := asInt(raw["log_step"]); ok {
		req.LogStep = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asFloat64(raw["revert_probability"]); ok {
		req.RevertProbability = &v
	}
	if v, ok := asString(raw["catalog"]); ok {
		req.CatalogPath = v
	}
	if v, ok := asBool(raw["workbook"]); ok {
		req.Workbook = v
	}
	return req, nil
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}

// overrideFromFlags applies only the flags the user set explicitly, so a
// config file value survives unless the matching flag is passed.
func overrideFromFlags(req *knapsack.RunRequest, set map[string]bool, flagValue map[string]any) error {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "capacity":
			bound := v.(int)
			req.Capacity = &bound
		case "items":
			req.NumItems = v.(int)
		case "pop":
			req.Population = v.(int)
		case "iterations":
			req.Iterations = v.(int)
		case "mutation-rate":
			rate := v.(float64)
			req.MutationRate = &rate
		case "log-step":
			req.LogStep = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "selection":
			req.Selection = v.(string)
		case "revert-probability":
			p := v.(float64)
			req.RevertProbability = &p
		case "catalog":
			req.CatalogPath = v.(string)
		case "xlsx":
			req.Workbook = v.(bool)
		default:
			return fmt.Errorf("unsupported override flag: %s", name)
		}
	}
	return nil
}

func loadOrDefaultRunRequest(configPath string) (knapsack.RunRequest, error) {
	if configPath == "" {
		return knapsack.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return knapsack.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}
