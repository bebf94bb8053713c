package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns the content as-is when it is valid UTF-8, dropping
// invalid byte sequences otherwise.
func extractPlain(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	return strings.ToValidUTF8(string(content), ""), nil
}
