package storage

import (
	"path/filepath"
	"testing"

	"github.com/samvad-hq/trendarr/internal/domain"
)

func TestBoltStoreOverwritesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trendarr.db")

	store, err := NewStore("bbolt", path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if _, found, err := store.Get("missing"); err != nil || found {
		t.Fatalf("expected missing key, found=%v err=%v", found, err)
	}

	if err := store.Set("k", `["a"]`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("k", `["b"]`); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, found, err := store.Get("k")
	if err != nil || !found || got != `["b"]` {
		t.Fatalf("Get = %q found=%v err=%v", got, found, err)
	}
}

func TestReportSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trendarr.db")

	store, err := NewStore("bbolt", path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := SaveReport(store, domain.KindMovie, domain.ImportedReport{"Movie A", "Movie C"}); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := SaveReport(store, domain.KindSeries, nil); err != nil {
		t.Fatalf("SaveReport empty: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = NewStore("bbolt", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	movies, found, err := LoadReport(store, domain.KindMovie)
	if err != nil || !found {
		t.Fatalf("LoadReport movies found=%v err=%v", found, err)
	}
	if len(movies) != 2 || movies[0] != "Movie A" || movies[1] != "Movie C" {
		t.Fatalf("unexpected movies report %v", movies)
	}

	raw, _, _ := store.Get(domain.KindSeries.ReportKey())
	if raw != "[]" {
		t.Fatalf("expected empty JSON array for series, got %q", raw)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "")
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Set("x", "1"); err != nil {
		t.Fatalf("noop store Set: %v", err)
	}
	if _, found, _ := store.Get("x"); found {
		t.Fatalf("noop store should never find values")
	}
	if _, err := NewStore("redis", ""); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}
