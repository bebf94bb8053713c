// Package download retrieves paper PDFs. A file named <id>.pdf already
// present in the download directory counts as retrieved; the courtesy
// delays around each request follow arXiv rate-limit etiquette.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
	"arxivdigest/internal/config"
)

// Downloader fetches paper content over HTTP into a local directory.
type Downloader struct {
	dir       string
	client    *http.Client
	preDelay  time.Duration
	postDelay time.Duration
	log       *zap.Logger
}

// New creates a downloader writing into dir.
func New(dir string, cfg config.Download, log *zap.Logger) *Downloader {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Downloader{
		dir:       dir,
		client:    &http.Client{Timeout: timeout},
		preDelay:  time.Duration(cfg.PreDelaySecs) * time.Second,
		postDelay: time.Duration(cfg.PostDelaySecs) * time.Second,
		log:       log,
	}
}

// Fetch downloads the paper's PDF and returns the local path. When a file
// for the paper already exists it is reused unless force is set.
func (d *Downloader) Fetch(ctx context.Context, paper arxiv.Paper, force bool) (string, error) {
	path := filepath.Join(d.dir, paper.ID+".pdf")

	if _, err := os.Stat(path); err == nil && !force {
		d.log.Info("file already downloaded, skipping", zap.String("id", paper.ID))
		return path, nil
	}

	if err := sleep(ctx, d.preDelay); err != nil {
		return "", err
	}

	d.log.Info("downloading", zap.String("id", paper.ID), zap.String("url", paper.PDFURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paper.PDFURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "arxivdigest/1.0")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", paper.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("downloading %s: HTTP %d", paper.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", paper.ID, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	d.log.Info("download complete", zap.String("path", path), zap.Int("bytes", len(body)))

	if err := sleep(ctx, d.postDelay); err != nil {
		return "", err
	}
	return path, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
