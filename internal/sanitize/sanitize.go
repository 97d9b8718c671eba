// Package sanitize turns free-form titles into safe file names.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxLength is the maximum length of a sanitized name in runes,
	// excluding the extension.
	MaxLength = 150
	// MaxBytes keeps name+".pdf" within the common 255-byte file name
	// limit when the title is mostly multi-byte runes.
	MaxBytes = 255 - len(".pdf")
	// Placeholder is returned when nothing usable is left of a title.
	Placeholder = "untitled"
)

// Filename maps title to a non-empty name of at most MaxLength runes and
// MaxBytes bytes that contains none of < > : " / \ | ? * or control
// characters 0-31. It is total, deterministic and idempotent.
func Filename(title string) string {
	s := strings.TrimSpace(title)
	if s == "" {
		return Placeholder
	}

	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if forbidden(r) {
			r = '_'
		}
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}

	s = trimEdges(b.String())
	if rs := []rune(s); len(rs) > MaxLength {
		s = trimEdges(string(rs[:MaxLength]))
	}
	if len(s) > MaxBytes {
		s = trimEdges(truncateBytes(s, MaxBytes))
	}
	if s == "" {
		return Placeholder
	}
	return s
}

// truncateBytes cuts s to at most n bytes on a rune boundary.
func truncateBytes(s string, n int) string {
	for i, r := range s {
		if i+utf8.RuneLen(r) > n {
			return s[:i]
		}
	}
	return s
}

func forbidden(r rune) bool {
	if r < 0x20 {
		return true
	}
	switch r {
	case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
		return true
	}
	return false
}

// trimEdges strips underscores and whitespace from both ends. Stripping
// whitespace too keeps Filename a fixed point of itself.
func trimEdges(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	})
}
