package verses

import (
	"fmt"

	"github.com/leyningapp/leyn/leyning"
)

// Versification maps each book to its verse count per chapter. Chapters are
// 0-indexed.
type Versification map[leyning.BookID][]int

// VersificationFromText derives verse counts from a loaded book.
func VersificationFromText(text leyning.BookText) []int {
	counts := make([]int, len(text))
	for c, chapter := range text {
		counts[c] = len(chapter)
	}
	return counts
}

// Extract expands an inclusive range into one locator per verse, in
// chapter/verse order. The last locator is marked Closing.
func Extract(r leyning.AliyahRange, v Versification) ([]leyning.VerseLocator, error) {
	counts, ok := v[r.Book]
	if !ok {
		return nil, fmt.Errorf("unknown book %q: %w", r.Book, leyning.ErrInvalidRange)
	}
	if err := checkRange(r, counts); err != nil {
		return nil, err
	}

	var out []leyning.VerseLocator
	for c := r.Begin.Chapter; c <= r.End.Chapter; c++ {
		first, last := 0, counts[c]-1
		if c == r.Begin.Chapter {
			first = r.Begin.Verse
		}
		if c == r.End.Chapter {
			last = r.End.Verse
		}
		for v := first; v <= last; v++ {
			out = append(out, leyning.VerseLocator{
				Book:         r.Book,
				ChapterVerse: leyning.ChapterVerse{Chapter: c, Verse: v},
			})
		}
	}

	out[len(out)-1].Closing = true
	return out, nil
}

// ExtractAll expands each range in order and concatenates the results. Each
// range contributes its own closing verse.
func ExtractAll(ranges []leyning.AliyahRange, v Versification) ([]leyning.VerseLocator, error) {
	var out []leyning.VerseLocator
	for _, r := range ranges {
		locs, err := Extract(r, v)
		if err != nil {
			return nil, err
		}
		out = append(out, locs...)
	}
	return out, nil
}

func checkRange(r leyning.AliyahRange, counts []int) error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%s %s-%s: %s: %w", r.Book, r.Begin, r.End, fmt.Sprintf(format, args...), leyning.ErrInvalidRange)
	}

	if r.Begin.Chapter < 0 || r.Begin.Verse < 0 || r.End.Chapter < 0 || r.End.Verse < 0 {
		return fail("negative index")
	}
	if r.End.Less(r.Begin) {
		return fail("begin after end")
	}
	if r.End.Chapter >= len(counts) {
		return fail("book has %d chapters", len(counts))
	}
	if n := counts[r.Begin.Chapter]; r.Begin.Verse >= n {
		return fail("chapter %d has %d verses", r.Begin.Chapter+1, n)
	}
	if n := counts[r.End.Chapter]; r.End.Verse >= n {
		return fail("chapter %d has %d verses", r.End.Chapter+1, n)
	}
	return nil
}
