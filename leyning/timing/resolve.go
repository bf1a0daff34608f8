// Package timing fetches per-word timing labels and maps audio positions to
// the word being spoken.
package timing

import (
	"fmt"
	"math"
	"sort"

	"github.com/leyningapp/leyn/leyning"
)

// Resolve returns the displayed word index spoken at t seconds: the rightmost
// label <= t, minus offset. Ties resolve to the last equal label. The boolean
// is false when inactive is set or the index falls before the first word.
func Resolve(t float64, labels []float64, offset int, inactive bool) (int, bool) {
	if inactive {
		return 0, false
	}
	i := sort.Search(len(labels), func(i int) bool { return labels[i] > t }) - 1 - offset
	if i < 0 {
		return 0, false
	}
	return i, true
}

// LabelIndexFor returns the label index of a displayed word.
func LabelIndexFor(displayed, offset int) int {
	return displayed + offset
}

// Validate checks that labels are finite and non-decreasing.
func Validate(labels []float64) error {
	for i, l := range labels {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			return fmt.Errorf("label %d is %v: %w", i, l, leyning.ErrUnsortedLabels)
		}
		if i > 0 && l < labels[i-1] {
			return fmt.Errorf("label %d (%v) < label %d (%v): %w", i, l, i-1, labels[i-1], leyning.ErrUnsortedLabels)
		}
	}
	return nil
}
