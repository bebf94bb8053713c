package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"arxivdigest/internal/config"
	"arxivdigest/internal/record"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 21, 9, 30, 0, 0, time.UTC)
}

func newTestGenerator(t *testing.T, cfg config.Site) *Generator {
	t.Helper()
	g, err := NewGenerator(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("creating generator: %v", err)
	}
	g.now = fixedNow
	return g
}

func sampleRecords() []record.Record {
	return []record.Record{
		{Title: "Paper One", ArxivID: "2403.00001v1", Timestamp: "2024-03-05 10:00:00", Summary: "About RAG pipelines."},
		{Title: "Paper Two", ArxivID: "2403.00002v1", Timestamp: "2024-03-05 14:00:00", Summary: "About transformers."},
		{Title: "Paper Three", ArxivID: "2402.00003v1", Timestamp: "2024-02-28 09:00:00", Summary: "About embeddings."},
		{Title: "Older Paper", ArxivID: "2312.00004v1", Timestamp: "2023-12-01 09:00:00", Summary: "About attention."},
	}
}

func readPage(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

func TestGenerateWritesAllPages(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for _, name := range []string{
		"index.html",
		"2024-03-05.html", "2024-02-28.html", "2023-12-01.html",
		"2024-03.html", "2024-02.html", "2023-12.html",
		"2024.html", "2023.html",
		filepath.Join("css", "custom.css"),
		filepath.Join("js", "custom.js"),
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestDateBucketing(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{})

	records := []record.Record{
		{Title: "Bucketed Paper", ArxivID: "2403.00001v1", Timestamp: "2024-03-05 10:00:00", Summary: "s"},
	}
	if err := g.Generate(records, dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !strings.Contains(readPage(t, dir, "2024-03-05.html"), "Bucketed Paper") {
		t.Error("expected paper on its daily page")
	}
	if !strings.Contains(readPage(t, dir, "2024-03.html"), "2024-03-05.html") {
		t.Error("expected day link on month page")
	}
	if !strings.Contains(readPage(t, dir, "2024.html"), "2024-03.html") {
		t.Error("expected month link on year page")
	}
}

func TestDateBucketIsolation(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// A March paper must not leak onto February or 2023 pages.
	if strings.Contains(readPage(t, dir, "2024-02-28.html"), "Paper One") {
		t.Error("March paper leaked onto February daily page")
	}
	if strings.Contains(readPage(t, dir, "2023-12-01.html"), "Paper One") {
		t.Error("March paper leaked onto 2023 daily page")
	}
}

func TestMonthCountsPapers(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// Two papers on 2024-03-05.
	if !strings.Contains(readPage(t, dir, "2024-03.html"), "(2件)") {
		t.Error("expected day count of 2 on the month page")
	}
}

func TestIndexShowsRecentPapers(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{RecentDays: 5, RecentPapers: 10})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	index := readPage(t, dir, "index.html")
	if !strings.Contains(index, "Paper One") || !strings.Contains(index, "Paper Two") {
		t.Error("expected recent papers on the index")
	}
	if !strings.Contains(index, "2024.html") || !strings.Contains(index, "2023.html") {
		t.Error("expected year archive links on the index")
	}
	// Month breakdown only for the most recent year.
	if !strings.Contains(index, "2024-03.html") {
		t.Error("expected month links for the most recent year")
	}
	if strings.Contains(index, "2023-12.html") {
		t.Error("did not expect month links for older years")
	}
}

func TestKeywordFilter(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{FilterKeywords: []string{"rag"}})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	page := readPage(t, dir, "2024-03-05.html")
	if !strings.Contains(page, "Paper One") {
		t.Error("expected matching paper to survive the filter")
	}
	if strings.Contains(page, "Paper Two") {
		t.Error("expected non-matching paper to be filtered out")
	}
}

func TestRenderIdempotent(t *testing.T) {
	records := sampleRecords()

	dirA, dirB := t.TempDir(), t.TempDir()
	g := newTestGenerator(t, config.Site{})

	if err := g.Generate(records, dirA); err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	if err := g.Generate(records, dirB); err != nil {
		t.Fatalf("second generate failed: %v", err)
	}

	for _, name := range []string{"index.html", "2024-03-05.html", "2024-03.html", "2024.html"} {
		a := readPage(t, dirA, name)
		b := readPage(t, dirB, name)
		if a != b {
			t.Errorf("expected %s to be byte-identical across renders", name)
		}
	}
}

func TestLastUpdatedStamp(t *testing.T) {
	dir := t.TempDir()
	g := newTestGenerator(t, config.Site{})

	if err := g.Generate(sampleRecords(), dir); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(readPage(t, dir, "index.html"), "2024年03月21日 09:30") {
		t.Error("expected last-updated stamp on the index")
	}
}

func TestMatchesFilter(t *testing.T) {
	r := record.Record{Title: "Scaling LLM Inference", Summary: "we study serving", Keywords: "LLM, serving"}

	if !matchesFilter(r, nil) {
		t.Error("empty filter should match everything")
	}
	if !matchesFilter(r, []string{"llm"}) {
		t.Error("expected case-insensitive title match")
	}
	if !matchesFilter(r, []string{"SERVING"}) {
		t.Error("expected case-insensitive summary match")
	}
	if matchesFilter(r, []string{"quantum"}) {
		t.Error("expected no match for unrelated keyword")
	}
}
