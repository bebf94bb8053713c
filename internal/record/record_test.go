package record

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), t.TempDir(), zap.NewNop())
}

func TestSaveAndExists(t *testing.T) {
	s := newTestStore(t)

	r := Record{
		Title:     "A Paper",
		ArxivID:   "2403.12345v1",
		Timestamp: "2024-03-20 10:00:00",
		Summary:   "Summary text.",
	}

	if s.Exists(r.ArxivID) {
		t.Error("expected no record before save")
	}
	if err := s.Save(r); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !s.Exists(r.ArxivID) {
		t.Error("expected record after save")
	}
}

func TestSaveWritesLogCopy(t *testing.T) {
	summaryDir, logDir := t.TempDir(), t.TempDir()
	s := NewStore(summaryDir, logDir, zap.NewNop())

	r := Record{ArxivID: "2403.12345v1", Timestamp: "2024-03-20 10:00:00", Summary: "x"}
	if err := s.Save(r); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	summary, err := os.ReadFile(filepath.Join(summaryDir, "2403.12345v1_summary.json"))
	if err != nil {
		t.Fatalf("summary file missing: %v", err)
	}
	logCopy, err := os.ReadFile(filepath.Join(logDir, "2403.12345v1_log.json"))
	if err != nil {
		t.Fatalf("log copy missing: %v", err)
	}
	if string(summary) != string(logCopy) {
		t.Error("expected log copy to mirror summary file")
	}
}

func TestLoadAllSkipsMalformed(t *testing.T) {
	summaryDir := t.TempDir()
	s := NewStore(summaryDir, t.TempDir(), zap.NewNop())

	good := Record{ArxivID: "2403.00001v1", Timestamp: "2024-03-20 10:00:00", Summary: "ok"}
	if err := s.Save(good); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(summaryDir, "bad_summary.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].ArxivID != good.ArxivID {
		t.Errorf("unexpected record %+v", records[0])
	}
}

func TestLoadAllNewestFirst(t *testing.T) {
	s := newTestStore(t)
	s.Save(Record{ArxivID: "a", Timestamp: "2024-03-19 10:00:00", Summary: "old"})
	s.Save(Record{ArxivID: "b", Timestamp: "2024-03-20 10:00:00", Summary: "new"})

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 2 || records[0].ArxivID != "b" {
		t.Errorf("expected newest first, got %+v", records)
	}
}

func TestLoadAllDefaultsOptionalFields(t *testing.T) {
	summaryDir := t.TempDir()
	s := NewStore(summaryDir, t.TempDir(), zap.NewNop())

	// Older record shape without post_text or keywords.
	old := `{"title":"T","arxiv_id":"2403.00001v1","timestamp":"2024-03-20 10:00:00","summary":"s"}`
	if err := os.WriteFile(filepath.Join(summaryDir, "2403.00001v1_summary.json"), []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := s.LoadAll()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].PostText != "" || records[0].Keywords != "" {
		t.Errorf("expected optional fields defaulted, got %+v", records[0])
	}
}

func TestDate(t *testing.T) {
	r := Record{Timestamp: "2024-03-05 10:00:00"}
	if r.Date() != "2024-03-05" {
		t.Errorf("expected 2024-03-05, got %q", r.Date())
	}
	if (Record{}).Date() != "" {
		t.Error("expected empty date for empty timestamp")
	}
}

func TestBuildPostText(t *testing.T) {
	link := "https://arxiv.org/abs/2403.12345v1" // 34 runes

	short := "A short summary."
	got := BuildPostText(short, link, 280)
	if got != short+"\n\n"+link {
		t.Errorf("expected link appended, got %q", got)
	}

	// Exactly at the limit: summary + link + 2 == 280.
	exact := strings.Repeat("x", 280-len(link)-2)
	got = BuildPostText(exact, link, 280)
	if !strings.HasSuffix(got, link) {
		t.Error("expected link appended at exact boundary")
	}

	// One over the limit: link must be omitted entirely.
	over := strings.Repeat("x", 280-len(link)-1)
	got = BuildPostText(over, link, 280)
	if got != over {
		t.Errorf("expected summary unchanged on overflow, got %q", got)
	}
}

func TestBuildPostTextCountsRunes(t *testing.T) {
	link := "https://arxiv.org/abs/2403.12345v1"
	// 250 multibyte runes: fits by rune count even though the byte count
	// is far beyond the limit.
	summary := strings.Repeat("あ", 280-len(link)-2)
	got := BuildPostText(summary, link, 280)
	if !strings.HasSuffix(got, link) {
		t.Error("expected rune counting, not byte counting")
	}
}
