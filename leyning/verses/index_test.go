package verses

import (
	"errors"
	"testing"

	"github.com/leyningapp/leyn/leyning"
)

func verseData(counts ...int) []leyning.VerseData {
	out := make([]leyning.VerseData, len(counts))
	for i, n := range counts {
		out[i].Words = make([]string, n)
	}
	return out
}

func TestWordIndexRoundTrip(t *testing.T) {
	idx := NewWordIndex(verseData(3, 0, 5, 1, 4))

	if idx.Len() != 13 {
		t.Fatalf("Len() = %d, want 13", idx.Len())
	}

	for v := 0; v < idx.Verses(); v++ {
		for w := 0; w < idx.WordCount(v); w++ {
			flat, err := idx.FlatIndexOf(v, w)
			if err != nil {
				t.Fatalf("FlatIndexOf(%d, %d) error = %v", v, w, err)
			}
			gv, gw, err := idx.VerseAndWordAt(flat)
			if err != nil {
				t.Fatalf("VerseAndWordAt(%d) error = %v", flat, err)
			}
			if gv != v || gw != w {
				t.Errorf("VerseAndWordAt(FlatIndexOf(%d, %d)) = (%d, %d)", v, w, gv, gw)
			}
		}
	}

	for i := 0; i < idx.Len(); i++ {
		v, w, _ := idx.VerseAndWordAt(i)
		if flat, _ := idx.FlatIndexOf(v, w); flat != i {
			t.Errorf("FlatIndexOf(VerseAndWordAt(%d)) = %d", i, flat)
		}
	}
}

func TestWordIndexLookups(t *testing.T) {
	idx := NewWordIndexFromCounts([]int{3, 0, 5})

	tests := []struct {
		flat        int
		verse, word int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 2, 0},
		{7, 2, 4},
	}

	for _, tt := range tests {
		v, w, err := idx.VerseAndWordAt(tt.flat)
		if err != nil {
			t.Fatalf("VerseAndWordAt(%d) error = %v", tt.flat, err)
		}
		if v != tt.verse || w != tt.word {
			t.Errorf("VerseAndWordAt(%d) = (%d, %d), want (%d, %d)", tt.flat, v, w, tt.verse, tt.word)
		}
	}

	if start, end := idx.VerseRange(2); start != 3 || end != 8 {
		t.Errorf("VerseRange(2) = (%d, %d), want (3, 8)", start, end)
	}
}

func TestWordIndexBounds(t *testing.T) {
	idx := NewWordIndexFromCounts([]int{2, 2})

	for _, flat := range []int{-1, 4, 100} {
		if _, _, err := idx.VerseAndWordAt(flat); !errors.Is(err, leyning.ErrInvalidWordIndex) {
			t.Errorf("VerseAndWordAt(%d) error = %v, want ErrInvalidWordIndex", flat, err)
		}
	}

	bad := [][2]int{{-1, 0}, {2, 0}, {0, 2}, {1, -1}}
	for _, p := range bad {
		if _, err := idx.FlatIndexOf(p[0], p[1]); !errors.Is(err, leyning.ErrInvalidWordIndex) {
			t.Errorf("FlatIndexOf(%d, %d) error = %v, want ErrInvalidWordIndex", p[0], p[1], err)
		}
	}
}
