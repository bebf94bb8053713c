// Package record persists processed-paper records. The presence of a
// record file is the "already processed" marker for a paper.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Record is the persisted output of summarizing one paper. PostText and
// Keywords are optional; older files without them still load.
type Record struct {
	Title     string `json:"title"`
	ArxivID   string `json:"arxiv_id"`
	Timestamp string `json:"timestamp"`
	Summary   string `json:"summary"`
	PostText  string `json:"post_text,omitempty"`
	Keywords  string `json:"keywords,omitempty"`
}

// TimestampFormat is the layout used for record timestamps.
const TimestampFormat = "2006-01-02 15:04:05"

// Date returns the YYYY-MM-DD portion of the record timestamp.
func (r Record) Date() string {
	if len(r.Timestamp) < 10 {
		return ""
	}
	return r.Timestamp[:10]
}

// BuildPostText appends the reference link to the summary, separated by a
// blank line, but only when the combined length stays within maxLen runes.
// On overflow the summary is returned unmodified, never truncated.
func BuildPostText(summary, link string, maxLen int) string {
	if link == "" {
		return summary
	}
	if utf8.RuneCountInString(summary)+utf8.RuneCountInString(link)+2 <= maxLen {
		return summary + "\n\n" + link
	}
	return summary
}

// Store reads and writes record files: one summary file per paper plus a
// log copy with identical content.
type Store struct {
	summaryDir string
	logDir     string
	log        *zap.Logger
}

// NewStore creates a record store.
func NewStore(summaryDir, logDir string, log *zap.Logger) *Store {
	return &Store{summaryDir: summaryDir, logDir: logDir, log: log}
}

// Exists reports whether a record file is present for the given ID.
func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.summaryPath(id))
	return err == nil
}

// Save writes the summary file and its log copy. Re-saving overwrites.
func (s *Store) Save(r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing record %s: %w", r.ArxivID, err)
	}

	if err := os.WriteFile(s.summaryPath(r.ArxivID), data, 0o644); err != nil {
		return fmt.Errorf("writing summary file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.logDir, r.ArxivID+"_log.json"), data, 0o644); err != nil {
		return fmt.Errorf("writing log copy: %w", err)
	}
	return nil
}

// LoadAll reads every record on disk, newest timestamp first. Malformed
// files are skipped with a logged error.
func (s *Store) LoadAll() ([]Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.summaryDir, "*_summary.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning summary dir: %w", err)
	}

	var records []Record
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			s.log.Error("reading record failed, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			s.log.Error("malformed record, skipping", zap.String("path", path), zap.Error(err))
			continue
		}
		if r.ArxivID == "" {
			r.ArxivID = strings.TrimSuffix(filepath.Base(path), "_summary.json")
		}
		records = append(records, r)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp > records[j].Timestamp })
	return records, nil
}

func (s *Store) summaryPath(id string) string {
	return filepath.Join(s.summaryDir, id+"_summary.json")
}
