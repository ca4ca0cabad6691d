package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"llm-stock-screener/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.InitWithConfig(logger.LogConfig{Level: "ERROR", Format: "text"})
	os.Exit(m.Run())
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "history.json"))
}

func TestEnsureExistsCreatesEmptyHistory(t *testing.T) {
	s := tempStore(t)
	if err := s.EnsureExists(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := s.Load(context.Background()); len(got) != 0 {
		t.Errorf("Expected empty history, got %v", got)
	}

	// A second call must not truncate existing content.
	if err := s.Save([]string{"AAPL"}); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(context.Background()); len(got) != 1 {
		t.Errorf("Expected existing history preserved, got %v", got)
	}
}

func TestSaveSortsAndDeduplicates(t *testing.T) {
	s := tempStore(t)
	if err := s.Save([]string{"MSFT", "AAPL", "MSFT", "KO"}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := s.Load(context.Background())
	want := []string{"AAPL", "KO", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	s := tempStore(t)
	if got := s.Load(context.Background()); got != nil {
		t.Errorf("Expected nil for missing file, got %v", got)
	}
}

func TestLoadCorruptFileResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := NewStore(path).Load(context.Background()); got != nil {
		t.Errorf("Expected corrupt history to reset to empty, got %v", got)
	}
}

func TestDiff(t *testing.T) {
	previous := []string{"AAPL", "KO", "MSFT"}
	current := []string{"KO", "NVDA", "AAPL", "T"}

	newSymbols, droppedSymbols := Diff(previous, current)

	wantNew := []string{"NVDA", "T"}
	if len(newSymbols) != len(wantNew) {
		t.Fatalf("Expected new %v, got %v", wantNew, newSymbols)
	}
	for i := range wantNew {
		if newSymbols[i] != wantNew[i] {
			t.Errorf("New %d: expected %s, got %s", i, wantNew[i], newSymbols[i])
		}
	}

	if len(droppedSymbols) != 1 || droppedSymbols[0] != "MSFT" {
		t.Errorf("Expected dropped [MSFT], got %v", droppedSymbols)
	}
}

func TestDiffEmptyPrevious(t *testing.T) {
	newSymbols, droppedSymbols := Diff(nil, []string{"AAPL"})
	if len(newSymbols) != 1 || newSymbols[0] != "AAPL" {
		t.Errorf("Expected everything new on first run, got %v", newSymbols)
	}
	if len(droppedSymbols) != 0 {
		t.Errorf("Expected nothing dropped on first run, got %v", droppedSymbols)
	}
}
