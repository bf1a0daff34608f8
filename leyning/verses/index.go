package verses

import (
	"fmt"
	"sort"

	"github.com/leyningapp/leyn/leyning"
)

// WordIndex maps between flat word positions and (verse, word) pairs.
type WordIndex struct {
	// starts[i] is the flat index of verse i's first word; the final entry
	// is the total word count.
	starts []int
}

// NewWordIndex precomputes cumulative word offsets.
func NewWordIndex(data []leyning.VerseData) *WordIndex {
	starts := make([]int, len(data)+1)
	for i, v := range data {
		starts[i+1] = starts[i] + len(v.Words)
	}
	return &WordIndex{starts: starts}
}

// NewWordIndexFromCounts builds an index from per-verse word counts.
func NewWordIndexFromCounts(counts []int) *WordIndex {
	starts := make([]int, len(counts)+1)
	for i, n := range counts {
		starts[i+1] = starts[i] + n
	}
	return &WordIndex{starts: starts}
}

// Len returns the total number of words.
func (w *WordIndex) Len() int {
	return w.starts[len(w.starts)-1]
}

// Verses returns the number of verses.
func (w *WordIndex) Verses() int {
	return len(w.starts) - 1
}

// VerseAndWordAt locates the verse containing a flat word position.
func (w *WordIndex) VerseAndWordAt(flat int) (verse, word int, err error) {
	if flat < 0 || flat >= w.Len() {
		return 0, 0, fmt.Errorf("flat index %d of %d: %w", flat, w.Len(), leyning.ErrInvalidWordIndex)
	}
	// Rightmost start <= flat skips empty verses.
	verse = sort.Search(w.Verses(), func(i int) bool { return w.starts[i+1] > flat })
	return verse, flat - w.starts[verse], nil
}

// FlatIndexOf returns the flat position of a word within a verse.
func (w *WordIndex) FlatIndexOf(verse, word int) (int, error) {
	if verse < 0 || verse >= w.Verses() {
		return 0, fmt.Errorf("verse %d of %d: %w", verse, w.Verses(), leyning.ErrInvalidWordIndex)
	}
	if word < 0 || word >= w.starts[verse+1]-w.starts[verse] {
		return 0, fmt.Errorf("word %d of verse %d: %w", word, verse, leyning.ErrInvalidWordIndex)
	}
	return w.starts[verse] + word, nil
}

// VerseRange returns the half-open flat range [start, end) of a verse.
func (w *WordIndex) VerseRange(verse int) (start, end int) {
	if verse < 0 || verse >= w.Verses() {
		return 0, 0
	}
	return w.starts[verse], w.starts[verse+1]
}

// WordCount returns the number of words in a verse.
func (w *WordIndex) WordCount(verse int) int {
	start, end := w.VerseRange(verse)
	return end - start
}
