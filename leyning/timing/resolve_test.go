package timing

import (
	"errors"
	"math"
	"testing"

	"github.com/leyningapp/leyn/leyning"
)

func TestResolve(t *testing.T) {
	labels := []float64{0.0, 1.2, 1.2, 3.5}

	tests := []struct {
		name     string
		t        float64
		offset   int
		inactive bool
		want     int
		wantOK   bool
	}{
		{"tie resolves rightmost", 1.2, 0, false, 2, true},
		{"floor between labels", 2.0, 0, false, 2, true},
		{"before first label", -1, 0, false, 0, false},
		{"at zero", 0, 0, false, 0, true},
		{"just before tie", 1.1999, 0, false, 0, true},
		{"after last label", 10, 0, false, 3, true},
		{"exactly last", 3.5, 0, false, 3, true},
		{"inactive", 2.0, 0, true, 0, false},
		{"offset shifts", 3.5, 2, false, 1, true},
		{"offset before displayed start", 1.0, 2, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.t, labels, tt.offset, tt.inactive)
			if ok != tt.wantOK || (ok && got != tt.want) {
				t.Errorf("Resolve(%v) = (%d, %v), want (%d, %v)", tt.t, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveEmpty(t *testing.T) {
	if _, ok := Resolve(1, nil, 0, false); ok {
		t.Error("Resolve on empty labels should report none")
	}
}

// Displayed word w of a maftir maps to label w+k, and resolving that label's
// time maps back to w.
func TestMaftirOffsetRoundTrip(t *testing.T) {
	const offset = 120
	labels := make([]float64, 200)
	for i := range labels {
		labels[i] = float64(i) * 0.4
	}

	idx := LabelIndexFor(0, offset)
	if idx != 120 {
		t.Fatalf("LabelIndexFor(0, 120) = %d, want 120", idx)
	}

	for w := 0; w < 80; w++ {
		got, ok := Resolve(labels[LabelIndexFor(w, offset)], labels, offset, false)
		if !ok || got != w {
			t.Errorf("Resolve(labels[%d]) = (%d, %v), want (%d, true)", w+offset, got, ok, w)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		labels  []float64
		wantErr bool
	}{
		{"empty", nil, false},
		{"ties allowed", []float64{0, 1.2, 1.2, 3.5}, false},
		{"decreasing", []float64{0, 2, 1}, true},
		{"nan", []float64{0, math.NaN()}, true},
		{"inf", []float64{0, math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.labels)
			if tt.wantErr && !errors.Is(err, leyning.ErrUnsortedLabels) {
				t.Errorf("Validate() error = %v, want ErrUnsortedLabels", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}
