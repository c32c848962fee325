// Package textchunk splits long text into translation-safe segments without
// breaking sentences.
package textchunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into sentences at whitespace following '.', '!' or '?'
// and greedily packs them into segments of at most maxChars runes, joined by
// single spaces. A sentence longer than maxChars becomes its own segment.
// A non-positive maxChars disables the budget.
func Split(text string, maxChars int) []string {
	sentences := Sentences(text)
	if len(sentences) == 0 {
		return nil
	}
	if maxChars <= 0 {
		return []string{strings.Join(sentences, " ")}
	}

	var (
		segments []string
		current  strings.Builder
		size     int
	)
	for _, sentence := range sentences {
		n := utf8.RuneCountInString(sentence)
		if size > 0 && size+1+n <= maxChars {
			current.WriteByte(' ')
			current.WriteString(sentence)
			size += 1 + n
			continue
		}
		if size > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
		current.WriteString(sentence)
		size = n
	}
	if size > 0 {
		segments = append(segments, current.String())
	}
	return segments
}

// Sentences returns the sentences of text in order. Whitespace runs that do
// not follow terminal punctuation are preserved inside a sentence.
func Sentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	start := 0
	prev := rune(0)
	for i, r := range text {
		if unicode.IsSpace(r) && isTerminal(prev) {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = i
		}
		prev = r
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
