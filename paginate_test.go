package main

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name        string
		s           string
		first, rest int
		want        []string
	}{
		{"first then rest", "abcdefghij", 4, 2, []string{"abcd", "ef", "gh", "ij"}},
		{"short tail", "123456789", 4, 2, []string{"1234", "56", "78", "9"}},
		{"shorter than first", "abc", 4, 2, []string{"abc"}},
		{"exactly first", "abcd", 4, 2, []string{"abcd"}},
		{"one past first", "abcde", 4, 2, []string{"abcd", "e"}},
		{"empty", "", 4, 2, []string{""}},
		{"zero rest", "123456789", 4, 0, []string{"1234", "56789"}},
		{"zero first", "123456789", 0, 2, []string{"12", "34", "56", "78", "9"}},
		{"both zero", "123456789", 0, 0, []string{"123456789"}},
		{"negative sizes", "123456789", -3, -1, []string{"123456789"}},
		{"multibyte", "äöüßé", 2, 2, []string{"äö", "üß", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Chunk(tt.s, tt.first, tt.rest)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Chunk(%q, %d, %d) = %q, want %q", tt.s, tt.first, tt.rest, got, tt.want)
			}
		})
	}
}

func TestChunkConcatenatesToInput(t *testing.T) {
	inputs := []string{"", "a", "hello world", "naïve café ↪ ünïcode", strings.Repeat("xyz", 33)}
	for _, s := range inputs {
		for first := 0; first <= 7; first++ {
			for rest := 0; rest <= 5; rest++ {
				pieces := Chunk(s, first, rest)
				if got := strings.Join(pieces, ""); got != s {
					t.Fatalf("Chunk(%q, %d, %d) joined = %q", s, first, rest, got)
				}
				if s == "" && len(pieces) != 1 {
					t.Fatalf("Chunk(\"\", %d, %d) = %q, want one empty piece", first, rest, pieces)
				}
			}
		}
	}
}

func lineTexts(lines []RenderedLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out
}

func TestFitTextAnchoring(t *testing.T) {
	content := "line1\nline2\nline3\n"

	tests := []struct {
		name   string
		rows   int
		anchor ScrollAnchor
		offset int
		want   []string
	}{
		{"bottom", 2, AnchorBottom, 0, []string{"line2", "line3"}},
		{"bottom offset", 2, AnchorBottom, 1, []string{"line1", "line2"}},
		{"top", 2, AnchorTop, 0, []string{"line1", "line2"}},
		{"top offset", 2, AnchorTop, 1, []string{"line2", "line3"}},
		{"offset past end", 2, AnchorTop, 10, []string{}},
		{"more rows than lines", 10, AnchorBottom, 0, []string{"line1", "line2", "line3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lineTexts(FitText(content, tt.rows, 80, tt.anchor, tt.offset, false))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FitText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFitTextDropsTrailingFragment(t *testing.T) {
	got := lineTexts(FitText("done\nhalf-writ", 5, 80, AnchorBottom, 0, false))
	if want := []string{"done"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("FitText = %q, want %q", got, want)
	}

	if got := FitText("no terminator yet", 5, 80, AnchorTop, 0, false); len(got) != 0 {
		t.Fatalf("expected no lines without a terminator, got %q", lineTexts(got))
	}
}

func TestFitTextLineBreaks(t *testing.T) {
	content := "a\r\nprogress 10%\rprogress 90%\rb\n\nc\n"
	want := []string{"a", "progress 10%", "progress 90%", "b", "", "c"}

	top := lineTexts(FitText(content, 10, 80, AnchorTop, 0, false))
	if !reflect.DeepEqual(top, want) {
		t.Fatalf("top = %q, want %q", top, want)
	}
	bottom := lineTexts(FitText(content, 10, 80, AnchorBottom, 0, false))
	if !reflect.DeepEqual(bottom, want) {
		t.Fatalf("bottom = %q, want %q", bottom, want)
	}
}

func TestFitTextTruncation(t *testing.T) {
	content := "short\nexactly10!\nthis line is much too long\n"
	lines := FitText(content, 10, 10, AnchorTop, 0, false)

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	for _, l := range lines {
		if w := utf8.RuneCountInString(l.Text); w > 10 {
			t.Fatalf("line %q has %d columns, want <= 10", l.Text, w)
		}
	}
	if lines[1].Truncated || lines[1].Text != "exactly10!" {
		t.Fatalf("line of exactly cols should be kept, got %+v", lines[1])
	}
	last := lines[2]
	if !last.Truncated || !strings.HasSuffix(last.Text, ellipsis) {
		t.Fatalf("long line should end in an ellipsis, got %+v", last)
	}
	if last.Text != "this line…" {
		t.Fatalf("unexpected truncation %q", last.Text)
	}
}

func TestFitTextWrap(t *testing.T) {
	content := "abcdefghij\nxy\n"

	top := FitText(content, 10, 4, AnchorTop, 0, true)
	if got, want := lineTexts(top), []string{"abcd", "↪ ef", "↪ gh", "↪ ij", "xy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("wrap top = %q, want %q", got, want)
	}
	for _, l := range top {
		if l.Width() > 4 {
			t.Fatalf("wrapped line %q wider than viewport", l.String())
		}
	}

	bottom := FitText(content, 3, 4, AnchorBottom, 0, true)
	if got, want := lineTexts(bottom), []string{"↪ gh", "↪ ij", "xy"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("wrap bottom = %q, want %q", got, want)
	}
	if !bottom[0].Continuation || bottom[2].Continuation {
		t.Fatalf("continuation marks wrong: %+v", bottom)
	}
}

func TestFitTextDegenerateViewport(t *testing.T) {
	content := "a\nb\n"
	if got := FitText(content, 0, 10, AnchorTop, 0, false); len(got) != 0 {
		t.Fatalf("rows=0 should render nothing, got %q", lineTexts(got))
	}
	if got := FitText(content, 5, 0, AnchorBottom, 0, true); len(got) != 0 {
		t.Fatalf("cols=0 should render nothing, got %q", lineTexts(got))
	}
	if got := FitText("", 5, 5, AnchorBottom, 0, false); len(got) != 0 {
		t.Fatalf("empty content should render nothing, got %q", lineTexts(got))
	}
}

func TestFitTextBoundedOnLargeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200000; i++ {
		b.WriteString("a fairly ordinary log line with some payload in it\n")
	}
	content := b.String()

	for _, anchor := range []ScrollAnchor{AnchorTop, AnchorBottom} {
		for _, wrap := range []bool{false, true} {
			lines := FitText(content, 20, 16, anchor, 0, wrap)
			if len(lines) != 20 {
				t.Fatalf("anchor=%s wrap=%v: got %d lines, want 20", anchor, wrap, len(lines))
			}
		}
	}

	allocs := testing.AllocsPerRun(20, func() {
		FitText(content, 20, 16, AnchorBottom, 0, true)
	})
	if allocs > 100 {
		t.Fatalf("FitText allocated %.0f times per run on a %d byte input", allocs, len(content))
	}
}

func TestLineIteratorsStopEarly(t *testing.T) {
	body := strings.Repeat("x\n", 1000) + "x"

	visited := 0
	for range forwardLines(body) {
		visited++
		if visited == 3 {
			break
		}
	}
	if visited != 3 {
		t.Fatalf("forward iterator visited %d lines, want 3", visited)
	}

	visited = 0
	for range reverseLines(body) {
		visited++
		if visited == 3 {
			break
		}
	}
	if visited != 3 {
		t.Fatalf("reverse iterator visited %d lines, want 3", visited)
	}
}
