package service

import "unicode"

const ellipsis = "..."

// GenerateSnippet returns an excerpt of content around the first
// case-insensitive occurrence of keyword, with up to window runes of context
// on each side. Without a match it returns the leading 2*window runes.
// Truncated ends are marked with "...". Offsets are counted in runes.
func GenerateSnippet(content, keyword string, window int) string {
	if content == "" || keyword == "" {
		return ""
	}
	if window < 0 {
		window = 0
	}

	text := []rune(content)
	kw := []rune(keyword)

	i := indexFold(text, kw)
	if i < 0 {
		if len(text) <= 2*window {
			return content
		}
		return string(text[:2*window]) + ellipsis
	}

	start := max(0, i-window)
	end := min(len(text), i+len(kw)+window)

	snippet := string(text[start:end])
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(text) {
		snippet += ellipsis
	}
	return snippet
}

// indexFold returns the rune index of the first case-insensitive occurrence
// of sub in s, or -1.
func indexFold(s, sub []rune) int {
	if len(sub) > len(s) {
		return -1
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j, r := range sub {
			if unicode.ToLower(s[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
