package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// extractHTML pulls the readable text out of an HTML rendering of a paper.
func extractHTML(content []byte) (string, error) {
	base, _ := url.Parse("https://arxiv.org/")
	article, err := readability.FromReader(bytes.NewReader(content), base)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return strings.TrimSpace(article.TextContent), nil
}
