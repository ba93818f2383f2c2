package main

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// ScrollAnchor selects which end of the content the output pane is pinned to.
type ScrollAnchor int

const (
	AnchorTop ScrollAnchor = iota
	AnchorBottom
)

func (a ScrollAnchor) String() string {
	if a == AnchorTop {
		return "top"
	}
	return "bottom"
}

const (
	continuationMarker = "↪ "
	ellipsis           = "…"
)

// RenderedLine is one screen row produced by FitText.
type RenderedLine struct {
	Text         string
	Continuation bool // wrapped remainder of the previous line
	Truncated    bool // ellipsis appended
}

// Width returns the number of screen columns the line occupies including
// its continuation marker.
func (l RenderedLine) Width() int {
	n := utf8.RuneCountInString(l.Text)
	if l.Continuation {
		n += utf8.RuneCountInString(continuationMarker)
	}
	return n
}

// String renders the line with its markers and no styling.
func (l RenderedLine) String() string {
	if l.Continuation {
		return continuationMarker + l.Text
	}
	return l.Text
}

// FitText windows content into at most rows lines of at most cols columns.
// Only the part of content that is actually displayed is scanned.
func FitText(content string, rows, cols int, anchor ScrollAnchor, offset int, wrap bool) []RenderedLine {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	if offset < 0 {
		offset = 0
	}

	body, ok := completedLines(content)
	if !ok {
		return nil
	}

	lines := forwardLines(body)
	if anchor == AnchorBottom {
		lines = reverseLines(body)
	}

	out := make([]RenderedLine, 0, rows)
	skipped := 0
	for line := range lines {
		if skipped < offset {
			skipped++
			continue
		}
		if wrap {
			out = appendWrapped(out, line, cols, rows, anchor == AnchorBottom)
		} else {
			out = append(out, truncateLine(line, cols))
		}
		if len(out) >= rows {
			break
		}
	}

	if anchor == AnchorBottom {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// completedLines drops the fragment after the last line terminator. ok is
// false when content holds no terminator at all.
func completedLines(content string) (string, bool) {
	idx := strings.LastIndexAny(content, "\r\n")
	if idx == -1 {
		return "", false
	}
	if content[idx] == '\n' && idx > 0 && content[idx-1] == '\r' {
		idx--
	}
	return content[:idx], true
}

// forwardLines yields the lines of body from first to last. Each of "\n",
// "\r" and "\r\n" ends a line.
func forwardLines(body string) iter.Seq[string] {
	return func(yield func(string) bool) {
		rest := body
		for {
			idx := strings.IndexAny(rest, "\r\n")
			if idx == -1 {
				yield(rest)
				return
			}
			if !yield(rest[:idx]) {
				return
			}
			if rest[idx] == '\r' && idx+1 < len(rest) && rest[idx+1] == '\n' {
				idx++
			}
			rest = rest[idx+1:]
		}
	}
}

// reverseLines yields the same lines as forwardLines in reverse order,
// scanning body backwards.
func reverseLines(body string) iter.Seq[string] {
	return func(yield func(string) bool) {
		end := len(body)
		for {
			idx := strings.LastIndexAny(body[:end], "\r\n")
			if idx == -1 {
				yield(body[:end])
				return
			}
			if !yield(body[idx+1 : end]) {
				return
			}
			if body[idx] == '\n' && idx > 0 && body[idx-1] == '\r' {
				idx--
			}
			end = idx
		}
	}
}

func truncateLine(line string, cols int) RenderedLine {
	if utf8.RuneCountInString(line) <= cols {
		return RenderedLine{Text: line}
	}
	return RenderedLine{Text: takeRunes(line, cols-1) + ellipsis, Truncated: true}
}

func appendWrapped(out []RenderedLine, line string, cols, rows int, reversed bool) []RenderedLine {
	rest := cols - utf8.RuneCountInString(continuationMarker)
	if rest < 0 {
		rest = 0
	}
	chunks := Chunk(line, cols, rest)

	if !reversed {
		for i, c := range chunks {
			if len(out) >= rows {
				break
			}
			if i == 0 {
				out = append(out, RenderedLine{Text: c})
				continue
			}
			out = append(out, RenderedLine{Text: takeRunes(c, rest), Continuation: true})
		}
		return out
	}

	for i := len(chunks) - 1; i >= 0 && len(out) < rows; i-- {
		if i == 0 {
			out = append(out, RenderedLine{Text: chunks[0]})
			continue
		}
		out = append(out, RenderedLine{Text: takeRunes(chunks[i], rest), Continuation: true})
	}
	return out
}

// Chunk splits s into a first piece of first runes followed by pieces of
// rest runes. rest == 0 leaves everything after the first piece in one
// remainder; first == 0 starts with rest-sized pieces. The pieces always
// concatenate back to s and Chunk("", ...) is [""].
func Chunk(s string, first, rest int) []string {
	if first < 0 {
		first = 0
	}
	if rest < 0 {
		rest = 0
	}

	var pieces []string
	start, n := 0, 0
	for i := range s {
		if n > 0 && isChunkBoundary(n, first, rest) {
			pieces = append(pieces, s[start:i])
			start = i
		}
		n++
	}
	return append(pieces, s[start:])
}

func isChunkBoundary(n, first, rest int) bool {
	if n < first {
		return false
	}
	if n == first {
		return true
	}
	return rest > 0 && (n-first)%rest == 0
}

func takeRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
