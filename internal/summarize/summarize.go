// Package summarize turns extracted paper text into a short summary via an
// LLM provider, with retry on transient API failures.
package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"arxivdigest/internal/arxiv"
	"arxivdigest/internal/config"
	"arxivdigest/internal/llm"
	"arxivdigest/internal/retry"
)

// omissionMarker replaces the middle of over-long papers so that both the
// introduction and the conclusion stay visible to the model.
const omissionMarker = "\n...(中略)...\n"

// greeting is the fixed banner prefixed to every summary.
const greeting = "C(・ω・ )つ みんなー！"

// placeholder is the substitution point in the prompt template.
const placeholder = "{text}"

// Summarizer generates paper summaries through an llm.Provider.
type Summarizer struct {
	provider llm.Provider
	cfg      config.Summarization
	template string
	log      *zap.Logger
}

// New creates a summarizer using the given provider and prompt template.
func New(provider llm.Provider, cfg config.Summarization, template string, log *zap.Logger) *Summarizer {
	return &Summarizer{provider: provider, cfg: cfg, template: template, log: log}
}

// Summarize produces the summary text for one paper: the canonical link and
// greeting banner followed by the model output. The API call is retried
// with exponential backoff before giving up.
func (s *Summarizer) Summarize(ctx context.Context, text, title, id string) (string, error) {
	if s.provider == nil {
		return "", fmt.Errorf("no LLM provider configured")
	}

	truncated := TruncateMiddle(text, s.cfg.MaxInputChars)
	prompt := strings.ReplaceAll(s.template, placeholder, truncated)
	s.log.Info("prompt built", zap.String("id", id), zap.Int("chars", utf8.RuneCountInString(prompt)))

	var output string
	attempt := 0
	err := retry.Do(ctx, retry.Config{
		MaxAttempts: s.cfg.MaxRetries,
		BaseDelay:   time.Duration(s.cfg.RetryBaseSecs) * time.Second,
	}, func() error {
		attempt++
		s.log.Info("calling LLM", zap.String("id", id), zap.Int("attempt", attempt), zap.Int("max", s.cfg.MaxRetries))

		resp, err := s.provider.Generate(ctx, prompt, s.cfg.MaxTokens)
		if err != nil {
			s.log.Warn("LLM call failed", zap.String("id", id), zap.Error(err))
			return err
		}
		output = strings.TrimSpace(resp)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", id, err)
	}

	s.log.Info("summary generated", zap.String("id", id), zap.Int("chars", utf8.RuneCountInString(output)))
	return fmt.Sprintf("%s %s%s", arxiv.AbsURL(id), greeting, output), nil
}

// TruncateMiddle reduces text to at most maxRunes runes by keeping an equal
// prefix and suffix around a single omission marker. Text at or under the
// limit is returned unchanged.
func TruncateMiddle(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	half := maxRunes / 2
	return string(runes[:half]) + omissionMarker + string(runes[len(runes)-half:])
}
