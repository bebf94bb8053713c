// Package pipeline orchestrates the end-to-end flow: search, download,
// extract, summarize, persist, render. It owns the caches and decides what
// is skipped and what is (re)processed.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
	"arxivdigest/internal/cache"
	"arxivdigest/internal/config"
	"arxivdigest/internal/download"
	"arxivdigest/internal/extract"
	"arxivdigest/internal/llm"
	"arxivdigest/internal/record"
	"arxivdigest/internal/site"
	"arxivdigest/internal/summarize"
)

// Searcher finds candidate papers for a keyword query.
type Searcher interface {
	Search(ctx context.Context, keywords []string, maxResults int, since time.Time) ([]arxiv.Paper, error)
}

// Retriever downloads a paper's content and returns the local path.
type Retriever interface {
	Fetch(ctx context.Context, paper arxiv.Paper, force bool) (string, error)
}

// Extractor converts a downloaded file to plain text.
type Extractor interface {
	ExtractFile(path string) (string, error)
}

// Summarizer produces the summary text for one paper.
type Summarizer interface {
	Summarize(ctx context.Context, text, title, id string) (string, error)
}

// Renderer writes the static site for a record set.
type Renderer interface {
	Generate(records []record.Record, outDir string) error
}

// RunOptions are the per-run inputs.
type RunOptions struct {
	Keywords  []string
	OutputDir string
	// Force bypasses the search cache and reprocesses papers whose
	// records already exist.
	Force bool
	// Since overrides the default lookback window when non-zero.
	Since time.Time
}

// Result reports what a run did.
type Result struct {
	Found     int
	Processed []string
	Skipped   int
	Failed    int
	FromCache bool
}

// Pipeline drives one run. Collaborators sit behind small interfaces so a
// run can be exercised without the network.
type Pipeline struct {
	cfg        *config.Config
	dirs       config.Dirs
	log        *zap.Logger
	searcher   Searcher
	retriever  Retriever
	extractor  Extractor
	summarizer Summarizer
	renderer   Renderer
	cache      *cache.Store
	records    *record.Store

	now func() time.Time
}

// New wires a pipeline from configuration.
func New(cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	dirs := cfg.GetDirs()
	if err := dirs.Ensure(); err != nil {
		return nil, err
	}

	renderer, err := site.NewGenerator(cfg.Site, log)
	if err != nil {
		return nil, err
	}

	provider := llm.CreateProvider(cfg.Summarization, log)

	return &Pipeline{
		cfg:        cfg,
		dirs:       dirs,
		log:        log,
		searcher:   arxiv.NewClient(log),
		retriever:  download.New(dirs.Download, cfg.Download, log),
		extractor:  extract.New(),
		summarizer: summarize.New(provider, cfg.Summarization, cfg.Prompt.Template, log),
		renderer:   renderer,
		cache:      cache.NewStore(dirs.Cache, log),
		records:    record.NewStore(dirs.Summary, dirs.Logs, log),
		now:        time.Now,
	}, nil
}

// Run executes the full pipeline for one keyword query and renders the
// site over every record on disk, not just this run's output. A single
// paper's failure never aborts the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	since := opts.Since
	if since.IsZero() {
		since = p.now().UTC().AddDate(0, 0, -p.cfg.Search.DaysBack)
	}

	papers, fromCache, err := p.searchResults(ctx, opts.Keywords, since, opts.Force)
	if err != nil {
		return nil, err
	}

	result := &Result{Found: len(papers), FromCache: fromCache}
	paperCache := p.cache.LoadPapers()

	for _, paper := range papers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := paper.ID
		if id == "" {
			id = arxiv.ExtractID(paper.PDFURL)
		}

		if p.records.Exists(id) && !opts.Force {
			p.log.Info("already processed, skipping", zap.String("id", id))
			result.Skipped++
			continue
		}

		p.log.Info("processing paper", zap.String("id", id), zap.String("title", paper.Title))
		if err := p.processPaper(ctx, paper, id, opts); err != nil {
			p.log.Error("paper failed", zap.String("id", id), zap.Error(err))
			result.Failed++
			continue
		}

		paperCache[cache.PaperKey(id)] = cache.PaperMeta{
			ID:      id,
			Title:   paper.Title,
			Summary: paper.Abstract,
			URL:     paper.PDFURL,
		}
		p.cache.SavePapers(paperCache)
		result.Processed = append(result.Processed, id)
	}

	p.log.Info("run complete",
		zap.Int("found", result.Found),
		zap.Int("processed", len(result.Processed)),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))

	return result, p.Render(opts.OutputDir)
}

// Render regenerates the site from the full on-disk record set.
func (p *Pipeline) Render(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	records, err := p.records.LoadAll()
	if err != nil {
		return err
	}
	return p.renderer.Generate(records, outDir)
}

// searchResults returns the paper list for the query, from the search
// cache when possible. A fresh fetch replaces the cache entry wholesale.
func (p *Pipeline) searchResults(ctx context.Context, keywords []string, since time.Time, force bool) ([]arxiv.Paper, bool, error) {
	key := cache.SearchKey(keywords, since)
	searchCache := p.cache.LoadSearch()

	if cached, ok := searchCache[key]; ok && !force {
		p.log.Info("using cached search results", zap.String("key", key), zap.Int("papers", len(cached)))
		return cached, true, nil
	}

	papers, err := p.searcher.Search(ctx, keywords, p.cfg.Search.MaxResults, since)
	if err != nil {
		return nil, false, fmt.Errorf("searching: %w", err)
	}

	searchCache[key] = papers
	p.cache.SaveSearch(searchCache)
	return papers, false, nil
}

// processPaper runs the retrieve, extract, summarize, persist chain for one
// paper. Every error aborts only this paper.
func (p *Pipeline) processPaper(ctx context.Context, paper arxiv.Paper, id string, opts RunOptions) error {
	path, err := p.retriever.Fetch(ctx, paper, opts.Force)
	if err != nil {
		return fmt.Errorf("retrieving: %w", err)
	}

	text, err := p.extractor.ExtractFile(path)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("extracting: empty text from %s", path)
	}
	p.saveText(id, text)

	summary, err := p.summarizer.Summarize(ctx, text, paper.Title, id)
	if err != nil {
		return err
	}

	rec := record.Record{
		Title:     paper.Title,
		ArxivID:   id,
		Timestamp: p.now().Format(record.TimestampFormat),
		Summary:   summary,
		PostText:  record.BuildPostText(summary, arxiv.AbsURL(id), p.cfg.Post.MaxLength),
		Keywords:  strings.Join(opts.Keywords, ", "),
	}
	return p.records.Save(rec)
}

// saveText keeps the extracted text next to the downloads. Failure here is
// not a document failure; the text file is a convenience copy.
func (p *Pipeline) saveText(id, text string) {
	if p.dirs.Text == "" {
		return
	}
	path := filepath.Join(p.dirs.Text, id+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		p.log.Warn("writing extracted text failed", zap.String("path", path), zap.Error(err))
	}
}
