// Package cache persists the search-result and paper caches as JSON files.
// Reads fail open: a missing or unparseable file behaves like an empty cache.
// Writes are whole-file overwrites; a failed write is logged and dropped.
package cache

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
)

// PaperMeta is the lightweight per-paper cache entry. It is metadata
// convenience only; the summary file on disk is the processed marker.
type PaperMeta struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

// Store reads and writes cache files under a single directory.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates a cache store rooted at dir.
func NewStore(dir string, log *zap.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// SearchKey builds the search cache key from the keyword set and the since
// timestamp. Keywords are sorted so argument order does not matter.
func SearchKey(keywords []string, since time.Time) string {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Strings(sorted)
	return "search_" + strings.Join(sorted, "_") + "_" + since.UTC().Format("2006-01-02T15:04:05Z")
}

// PaperKey builds the paper cache key for an arXiv ID.
func PaperKey(id string) string {
	return "paper_" + id
}

// LoadSearch loads the search-result cache.
func (s *Store) LoadSearch() map[string][]arxiv.Paper {
	out := make(map[string][]arxiv.Paper)
	s.load("search", &out)
	return out
}

// SaveSearch overwrites the search-result cache.
func (s *Store) SaveSearch(data map[string][]arxiv.Paper) {
	s.save("search", data)
}

// LoadPapers loads the per-paper metadata cache.
func (s *Store) LoadPapers() map[string]PaperMeta {
	out := make(map[string]PaperMeta)
	s.load("paper", &out)
	return out
}

// SavePapers overwrites the per-paper metadata cache.
func (s *Store) SavePapers(data map[string]PaperMeta) {
	s.save("paper", data)
}

func (s *Store) path(kind string) string {
	return filepath.Join(s.dir, kind+"_cache.json")
}

func (s *Store) load(kind string, out any) {
	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("cache read failed, treating as empty", zap.String("kind", kind), zap.Error(err))
		}
		return
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.log.Warn("cache file unparseable, treating as empty", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Store) save(kind string, data any) {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		s.log.Error("cache serialization failed", zap.String("kind", kind), zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path(kind), buf, 0o644); err != nil {
		s.log.Error("cache write failed", zap.String("kind", kind), zap.Error(err))
	}
}
