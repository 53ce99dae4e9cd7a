package retrieval

import (
	"strings"
	"unicode/utf8"
)

// separators are tried in order; the empty separator hard-cuts by rune count.
var separators = []string{"\n\n", "\n", " ", ""}

// Split breaks text into chunks of at most size runes, preferring paragraph,
// then line, then word boundaries. Consecutive chunks share up to overlap
// runes of trailing context.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var out []string
	for _, c := range splitText(text, size, overlap, separators) {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func splitText(text string, size, overlap int, seps []string) []string {
	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		return window(text, size, overlap)
	}

	var chunks, pending []string
	for _, part := range strings.Split(text, sep) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if utf8.RuneCountInString(part) > size {
			chunks = append(chunks, merge(pending, sep, size, overlap)...)
			pending = nil
			chunks = append(chunks, splitText(part, size, overlap, rest)...)
			continue
		}
		pending = append(pending, part)
	}
	return append(chunks, merge(pending, sep, size, overlap)...)
}

func pickSeparator(text string, seps []string) (string, []string) {
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			return s, seps[i+1:]
		}
	}
	return "", nil
}

// merge packs parts (each at most size runes) into chunks joined by sep.
func merge(parts []string, sep string, size, overlap int) []string {
	var chunks, cur []string
	curLen := 0
	sepLen := utf8.RuneCountInString(sep)

	for _, p := range parts {
		pLen := utf8.RuneCountInString(p)
		if len(cur) > 0 && curLen+sepLen+pLen > size {
			chunks = append(chunks, strings.Join(cur, sep))
			// Drop from the front until the tail fits the overlap budget
			// and leaves room for p.
			for len(cur) > 0 && (curLen > overlap || curLen+sepLen+pLen > size) {
				curLen -= utf8.RuneCountInString(cur[0])
				if len(cur) > 1 {
					curLen -= sepLen
				}
				cur = cur[1:]
			}
		}
		if len(cur) > 0 {
			curLen += sepLen
		}
		cur = append(cur, p)
		curLen += pLen
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, sep))
	}
	return chunks
}

func window(text string, size, overlap int) []string {
	runes := []rune(text)
	step := size - overlap
	var out []string
	for i := 0; i < len(runes); i += step {
		end := min(i+size, len(runes))
		out = append(out, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
