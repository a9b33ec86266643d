package evo

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrSelectorExists   = errors.New("selector already registered")
	ErrSelectorNotFound = errors.New("selector not found")
)

// SelectorFactory builds a fresh selector for one run.
type SelectorFactory func() Selector

var selectorRegistry = struct {
	mu sync.RWMutex
	m  map[string]SelectorFactory
}{
	m: defaultSelectors(),
}

func defaultSelectors() map[string]SelectorFactory {
	return map[string]SelectorFactory{
		"truncation": func() Selector { return TruncationSelector{} },
		"tournament": func() Selector { return TournamentSelector{} },
	}
}

// RegisterSelector makes a selection strategy resolvable by name.
func RegisterSelector(name string, factory SelectorFactory) error {
	if name == "" {
		return errors.New("selector name is required")
	}
	if factory == nil {
		return errors.New("selector factory is required")
	}

	selectorRegistry.mu.Lock()
	defer selectorRegistry.mu.Unlock()

	if _, exists := selectorRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrSelectorExists, name)
	}
	selectorRegistry.m[name] = factory
	return nil
}

// SelectorByName resolves a registered selection strategy. An empty name
// means truncation.
func SelectorByName(name string) (Selector, error) {
	if name == "" {
		name = "truncation"
	}

	selectorRegistry.mu.RLock()
	factory, ok := selectorRegistry.m[name]
	selectorRegistry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSelectorNotFound, name)
	}
	return factory(), nil
}

func ListSelectors() []string {
	selectorRegistry.mu.RLock()
	defer selectorRegistry.mu.RUnlock()

	names := make([]string, 0, len(selectorRegistry.m))
	for name := range selectorRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetSelectorRegistryForTests() {
	selectorRegistry.mu.Lock()
	defer selectorRegistry.mu.Unlock()
	selectorRegistry.m = defaultSelectors()
}
