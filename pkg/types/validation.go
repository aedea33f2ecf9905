package types

import (
	"strings"
)

// NormalizeText trims surrounding whitespace and enforces the text length
// bound. Empty text after trimming is rejected; oversized text is
// truncated, never rejected.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return TruncateRunes(text, MaxTextLen), nil
}

// NormalizeAuthor trims the author label, substitutes the anonymous
// marker when absent, and truncates oversized labels.
func NormalizeAuthor(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return AnonymousAuthor
	}
	return TruncateRunes(author, MaxAuthorLen)
}

// NormalizeUsername trims a display name and truncates it. An empty
// result means the client sent nothing usable.
func NormalizeUsername(name string) string {
	return TruncateRunes(strings.TrimSpace(name), MaxUsernameLen)
}

// TruncateRunes bounds s to max runes, keeping multi-byte characters
// intact.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
