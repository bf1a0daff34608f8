package timing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leyningapp/leyn/leyning"
)

type fakeContent struct {
	tables map[string]leyning.LabelTable
	calls  atomic.Int32
	delay  time.Duration
}

func (f *fakeContent) BookText(context.Context, leyning.BookID) (leyning.BookText, error) {
	return nil, leyning.ErrContentUnavailable
}

func (f *fakeContent) Translation(context.Context, leyning.BookID) (leyning.BookTranslation, error) {
	return nil, leyning.ErrContentUnavailable
}

func (f *fakeContent) TimingLabels(ctx context.Context, name string) (leyning.LabelTable, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table, ok := f.tables[name]
	if !ok {
		return nil, leyning.ErrContentUnavailable
	}
	return table, nil
}

func TestLabelStore(t *testing.T) {
	content := &fakeContent{tables: map[string]leyning.LabelTable{
		"Genesis": {
			"1:1": {0, 0.8, 1.9},
			"1:2": {0, 0.4, 0.3},
		},
	}}
	store := NewLabelStore(content, 8)
	ctx := context.Background()

	labels, err := store.LabelsFor(ctx, LabelUnit{File: "Genesis", Key: "1:1"})
	if err != nil {
		t.Fatalf("LabelsFor() error = %v", err)
	}
	if len(labels) != 3 || labels[2] != 1.9 {
		t.Errorf("LabelsFor() = %v", labels)
	}

	// Cached.
	if _, err := store.LabelsFor(ctx, LabelUnit{File: "Genesis", Key: "1:1"}); err != nil {
		t.Fatal(err)
	}
	if n := content.calls.Load(); n != 1 {
		t.Errorf("content fetched %d times, want 1", n)
	}

	tests := []struct {
		name string
		unit LabelUnit
		want error
	}{
		{"missing key", LabelUnit{File: "Genesis", Key: "9:9"}, leyning.ErrContentUnavailable},
		{"missing file", LabelUnit{File: "Exodus", Key: "1:1"}, leyning.ErrContentUnavailable},
		{"decreasing", LabelUnit{File: "Genesis", Key: "1:2"}, leyning.ErrUnsortedLabels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.LabelsFor(ctx, tt.unit); !errors.Is(err, tt.want) {
				t.Errorf("LabelsFor(%v) error = %v, want %v", tt.unit, err, tt.want)
			}
		})
	}
}

func TestLabelStoreDeduplicates(t *testing.T) {
	content := &fakeContent{
		tables: map[string]leyning.LabelTable{"Noach": {"7": {0, 1, 2}}},
		delay:  50 * time.Millisecond,
	}
	store := NewLabelStore(content, 8)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.LabelsFor(context.Background(), LabelUnit{File: "Noach", Key: "7"}); err != nil {
				t.Errorf("LabelsFor() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := content.calls.Load(); n != 1 {
		t.Errorf("content fetched %d times, want 1", n)
	}
}

func TestLabelStoreCancelledCallerDoesNotFailOthers(t *testing.T) {
	content := &fakeContent{
		tables: map[string]leyning.LabelTable{"Noach": {"7": {0, 1, 2}}},
		delay:  60 * time.Millisecond,
	}
	store := NewLabelStore(content, 8)
	unit := LabelUnit{File: "Noach", Key: "7"}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := store.LabelsFor(ctx, unit)
		first <- err
	}()

	time.Sleep(10 * time.Millisecond)
	second := make(chan error, 1)
	var labels []float64
	go func() {
		var err error
		labels, err = store.LabelsFor(context.Background(), unit)
		second <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
	if err := <-second; err != nil {
		t.Fatalf("live caller error = %v", err)
	}
	if len(labels) != 3 {
		t.Errorf("live caller labels = %v", labels)
	}
	if n := content.calls.Load(); n != 1 {
		t.Errorf("content fetched %d times, want 1", n)
	}
}
