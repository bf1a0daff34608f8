// Package verses expands chapter/verse ranges into located verses, joins
// them with their words and maps between flat and per-verse word indices.
package verses

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leyningapp/leyn/leyning"
)

// ParseChapterVerse parses a 1-indexed "ch:v" string into a 0-indexed pair.
func ParseChapterVerse(s string) (leyning.ChapterVerse, error) {
	ch, v, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return leyning.ChapterVerse{}, fmt.Errorf("%q: missing ':': %w", s, leyning.ErrInvalidRange)
	}
	c, err := strconv.Atoi(ch)
	if err != nil || c < 1 {
		return leyning.ChapterVerse{}, fmt.Errorf("%q: bad chapter: %w", s, leyning.ErrInvalidRange)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return leyning.ChapterVerse{}, fmt.Errorf("%q: bad verse: %w", s, leyning.ErrInvalidRange)
	}
	return leyning.ChapterVerse{Chapter: c - 1, Verse: n - 1}, nil
}

// ParseRange builds an AliyahRange from 1-indexed begin and end strings.
func ParseRange(book leyning.BookID, begin, end string) (leyning.AliyahRange, error) {
	b, err := ParseChapterVerse(begin)
	if err != nil {
		return leyning.AliyahRange{}, fmt.Errorf("%s begin: %w", book, err)
	}
	e, err := ParseChapterVerse(end)
	if err != nil {
		return leyning.AliyahRange{}, fmt.Errorf("%s end: %w", book, err)
	}
	return leyning.AliyahRange{Book: book, Begin: b, End: e}, nil
}

// Key returns the "ch:v" key of a verse as used by per-verse label tables
// and manifests.
func Key(cv leyning.ChapterVerse) string {
	return cv.String()
}
