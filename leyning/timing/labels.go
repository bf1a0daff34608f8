package timing

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/leyningapp/leyn/internal/cache"
	"github.com/leyningapp/leyn/leyning"
)

// LabelUnit identifies one labels array: the labels file and the unit key
// inside it.
type LabelUnit struct {
	File string
	Key  string
}

func (u LabelUnit) String() string {
	return u.File + "/" + u.Key
}

// LabelStore lazily fetches and caches timing labels for one reading session.
type LabelStore struct {
	content leyning.ContentStore
	cache   *cache.LRU[LabelUnit, []float64]
	group   singleflight.Group
}

// NewLabelStore creates a store holding at most entries label arrays.
func NewLabelStore(content leyning.ContentStore, entries int) *LabelStore {
	return &LabelStore{
		content: content,
		cache:   cache.NewLRU[LabelUnit, []float64](entries),
	}
}

// LabelsFor returns the labels of a unit. Concurrent calls for the same unit
// share one fetch. A unit missing from its file yields ErrContentUnavailable.
func (s *LabelStore) LabelsFor(ctx context.Context, unit LabelUnit) ([]float64, error) {
	if labels, ok := s.cache.Get(unit); ok {
		return labels, nil
	}

	// The fetch outlives any single caller; each caller waits on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(unit.String(), func() (interface{}, error) {
		table, err := s.content.TimingLabels(fetchCtx, unit.File)
		if err != nil {
			return nil, fmt.Errorf("labels %s: %w", unit.File, err)
		}
		labels, ok := table[unit.Key]
		if !ok {
			return nil, fmt.Errorf("labels %s: %w", unit, leyning.ErrContentUnavailable)
		}
		if err := Validate(labels); err != nil {
			return nil, fmt.Errorf("labels %s: %w", unit, err)
		}
		s.cache.Put(unit, labels)
		return labels, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		log.Debug("shared label fetch", "unit", unit)
	}
	return res.Val.([]float64), nil
}

// Stats returns the label cache statistics.
func (s *LabelStore) Stats() cache.Stats {
	return s.cache.Stats()
}
