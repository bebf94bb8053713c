package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zap.NewNop())
}

func TestSearchKeyOrderIndependent(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := SearchKey([]string{"RAG", "LLM"}, since)
	b := SearchKey([]string{"LLM", "RAG"}, since)
	if a != b {
		t.Errorf("expected identical keys, got %q and %q", a, b)
	}
}

func TestSearchKeyDependsOnSince(t *testing.T) {
	kw := []string{"LLM"}
	a := SearchKey(kw, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	b := SearchKey(kw, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	if a == b {
		t.Error("expected different keys for different since timestamps")
	}
}

func TestSearchCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)

	key := SearchKey([]string{"LLM"}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	papers := []arxiv.Paper{
		{
			ID:        "2403.12345v1",
			Title:     "A Paper",
			Abstract:  "An abstract.",
			PDFURL:    "http://arxiv.org/pdf/2403.12345v1",
			Published: time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC),
			Updated:   time.Date(2024, 3, 20, 17, 59, 0, 0, time.UTC),
		},
	}

	s.SaveSearch(map[string][]arxiv.Paper{key: papers})

	loaded := s.LoadSearch()
	got, ok := loaded[key]
	if !ok {
		t.Fatal("expected cache entry for key")
	}
	if len(got) != 1 || got[0] != papers[0] {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	if got := s.LoadSearch(); len(got) != 0 {
		t.Errorf("expected empty cache, got %d entries", len(got))
	}
	if got := s.LoadPapers(); len(got) != 0 {
		t.Errorf("expected empty paper cache, got %d entries", len(got))
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, zap.NewNop())
	if err := os.WriteFile(filepath.Join(dir, "paper_cache.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := s.LoadPapers(); len(got) != 0 {
		t.Errorf("expected empty cache for corrupt file, got %d entries", len(got))
	}
}

func TestPaperCacheRoundTrip(t *testing.T) {
	s := newTestStore(t)

	meta := PaperMeta{
		ID:      "2403.12345v1",
		Title:   "A Paper",
		Summary: "An abstract.",
		URL:     "http://arxiv.org/pdf/2403.12345v1",
	}
	s.SavePapers(map[string]PaperMeta{PaperKey(meta.ID): meta})

	loaded := s.LoadPapers()
	if got := loaded[PaperKey(meta.ID)]; got != meta {
		t.Errorf("round-trip mismatch: %+v", got)
	}
}

func TestSaveOverwritesWholesale(t *testing.T) {
	s := newTestStore(t)

	s.SavePapers(map[string]PaperMeta{"paper_a": {ID: "a"}, "paper_b": {ID: "b"}})
	s.SavePapers(map[string]PaperMeta{"paper_c": {ID: "c"}})

	loaded := s.LoadPapers()
	if len(loaded) != 1 {
		t.Fatalf("expected 1 entry after overwrite, got %d", len(loaded))
	}
	if _, ok := loaded["paper_c"]; !ok {
		t.Error("expected only the last-written entry to survive")
	}
}
