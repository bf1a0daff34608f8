package ui

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/verses"
)

const (
	gutterWidth     = 7
	minContentWidth = 10
)

// wordSpan locates a rendered word for hit testing.
type wordSpan struct {
	line  int
	start int // first column
	end   int // one past the last column
	flat  int
}

// layout is rendered verse text with the position of every word.
type layout struct {
	content    string
	spans      []wordSpan // ordered by line, then column
	verseLines []int      // first line of each verse
	lines      int
}

type renderOptions struct {
	width       int
	active      int // -1 when no word is spoken
	cursor      int // -1 to hide
	policy      verses.StripPolicy
	translation bool
	spacing     int // blank lines after every line
	styles      styles
}

// spacingFor maps the text size setting to blank lines between lines.
func spacingFor(textSize float64) int {
	return max(0, int(math.Round(textSize))-1)
}

func renderVerses(data []leyning.VerseData, index *verses.WordIndex, o renderOptions) layout {
	width := max(minContentWidth, o.width-gutterWidth)
	blank := strings.Repeat(" ", gutterWidth)

	var (
		l     layout
		lines []string
		line  strings.Builder
		col   int
	)

	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		col = 0
		for range o.spacing {
			lines = append(lines, "")
		}
	}

	for i, v := range data {
		l.verseLines = append(l.verseLines, len(lines))
		line.WriteString(o.styles.gutter.Render(fmt.Sprintf("%*s ", gutterWidth-1, verses.Key(v.ChapterVerse))))

		start, _ := index.VerseRange(i)
		for j, w := range v.Words {
			text := verses.Strip(w, o.policy)
			wd := runewidth.StringWidth(text)
			if col > 0 && col+1+wd > width {
				flush()
				line.WriteString(blank)
			}
			if col > 0 {
				line.WriteString(" ")
				col++
			}

			flat := start + j
			l.spans = append(l.spans, wordSpan{
				line:  len(lines),
				start: gutterWidth + col,
				end:   gutterWidth + col + wd,
				flat:  flat,
			})
			line.WriteString(o.wordStyle(flat).Render(text))
			col += wd
		}
		flush()

		if o.translation && v.Translation != nil {
			for _, tl := range strings.Split(wordwrap.String(*v.Translation, width), "\n") {
				line.WriteString(blank)
				line.WriteString(o.styles.translation.Render(tl))
				flush()
			}
		}
	}

	l.content = strings.Join(lines, "\n")
	l.lines = len(lines)
	return l
}

func (o renderOptions) wordStyle(flat int) lipgloss.Style {
	switch {
	case flat == o.active && flat == o.cursor:
		return o.styles.active.Underline(true)
	case flat == o.active:
		return o.styles.active
	case flat == o.cursor:
		return o.styles.cursor
	default:
		return o.styles.word
	}
}

// wordAt returns the word rendered at a line and column.
func (l layout) wordAt(line, col int) (int, bool) {
	i := sort.Search(len(l.spans), func(i int) bool {
		s := l.spans[i]
		return s.line > line || (s.line == line && s.end > col)
	})
	if i == len(l.spans) {
		return 0, false
	}
	s := l.spans[i]
	if s.line != line || col < s.start {
		return 0, false
	}
	return s.flat, true
}

// lineOf returns the line a word is rendered on.
func (l layout) lineOf(flat int) int {
	if flat < 0 || flat >= len(l.spans) {
		return 0
	}
	return l.spans[flat].line
}
