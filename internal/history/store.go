// Package history persists the set of ticker symbols seen in prior runs as a
// flat JSON array, and diffs it against the current run.
package history

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"llm-stock-screener/internal/logger"
)

// Store reads and writes the history file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// EnsureExists creates an empty history file when none is present, so the
// daemon does not fail on first boot.
func (s *Store) EnsureExists() error {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return os.WriteFile(s.path, []byte("[]"), 0644)
	}
	return nil
}

// Load returns the previously persisted symbols. A missing or corrupted file
// resets to an empty history; it is never fatal.
func (s *Store) Load(ctx context.Context) []string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var symbols []string
	if err := json.Unmarshal(data, &symbols); err != nil {
		logger.Warn(ctx, "History file corrupted, resetting", "path", s.path, "error", err)
		return nil
	}
	return symbols
}

// Save overwrites the history with the given symbols, sorted and
// deduplicated.
func (s *Store) Save(symbols []string) error {
	seen := make(map[string]struct{}, len(symbols))
	unique := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		unique = append(unique, symbol)
	}
	sort.Strings(unique)

	data, err := json.MarshalIndent(unique, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

// Diff splits the current symbols into those newly appearing and those
// dropped since the previous run. Both results are sorted.
func Diff(previous, current []string) (newSymbols, droppedSymbols []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, symbol := range previous {
		prevSet[symbol] = struct{}{}
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, symbol := range current {
		currentSet[symbol] = struct{}{}
	}

	for symbol := range currentSet {
		if _, ok := prevSet[symbol]; !ok {
			newSymbols = append(newSymbols, symbol)
		}
	}
	for symbol := range prevSet {
		if _, ok := currentSet[symbol]; !ok {
			droppedSymbols = append(droppedSymbols, symbol)
		}
	}

	sort.Strings(newSymbols)
	sort.Strings(droppedSymbols)
	return newSymbols, droppedSymbols
}
