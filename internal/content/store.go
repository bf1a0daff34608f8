// Package content provides ContentStore implementations backed by a local
// data directory or an HTTP mirror of one.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
	"github.com/leyningapp/leyn/internal/cache"
	"github.com/leyningapp/leyn/leyning"
	"golang.org/x/sync/singleflight"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// backend fetches raw files by slash-separated path relative to the data
// root. A missing file returns an error wrapping ErrContentUnavailable.
type backend interface {
	fetch(ctx context.Context, rel string) ([]byte, error)
	close() error
}

// Store decodes and caches corpora fetched from a backend. Files may be
// plain JSON or zstd-compressed JSON.
type Store struct {
	backend backend
	decoder *zstd.Decoder
	group   singleflight.Group

	text         *cache.LRU[leyning.BookID, leyning.BookText]
	translations *cache.LRU[leyning.BookID, leyning.BookTranslation]
	labels       *cache.LRU[string, leyning.LabelTable]
}

var _ leyning.ContentStore = (*Store)(nil)

func newStore(b backend, entries int) (*Store, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{
		backend:      b,
		decoder:      dec,
		text:         cache.NewLRU[leyning.BookID, leyning.BookText](entries),
		translations: cache.NewLRU[leyning.BookID, leyning.BookTranslation](entries),
		labels:       cache.NewLRU[string, leyning.LabelTable](entries),
	}, nil
}

// BookText implements leyning.ContentStore.
func (s *Store) BookText(ctx context.Context, book leyning.BookID) (leyning.BookText, error) {
	return load(ctx, s, s.text, book, path.Join("text", string(book)+".json"), func(data []byte) (leyning.BookText, error) {
		var text leyning.BookText
		err := json.Unmarshal(data, &text)
		return text, err
	})
}

// Translation implements leyning.ContentStore.
func (s *Store) Translation(ctx context.Context, book leyning.BookID) (leyning.BookTranslation, error) {
	return load(ctx, s, s.translations, book, path.Join("translation", string(book)+".json"), func(data []byte) (leyning.BookTranslation, error) {
		var doc struct {
			Text leyning.BookTranslation `json:"text"`
		}
		err := json.Unmarshal(data, &doc)
		return doc.Text, err
	})
}

// TimingLabels implements leyning.ContentStore.
func (s *Store) TimingLabels(ctx context.Context, name string) (leyning.LabelTable, error) {
	return load(ctx, s, s.labels, name, path.Join("labels", name+".json"), func(data []byte) (leyning.LabelTable, error) {
		var table leyning.LabelTable
		err := json.Unmarshal(data, &table)
		return table, err
	})
}

// Close releases the backend and the decoder.
func (s *Store) Close() error {
	s.decoder.Close()
	return s.backend.close()
}

// load returns a cached value or fetches, decompresses and decodes rel.
// Concurrent loads of one file share a fetch.
func load[K comparable, V any](ctx context.Context, s *Store, lru *cache.LRU[K, V], key K, rel string, decode func([]byte) (V, error)) (V, error) {
	if v, ok := lru.Get(key); ok {
		return v, nil
	}

	res, err, shared := s.group.Do(rel, func() (interface{}, error) {
		data, err := s.backend.fetch(ctx, rel)
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(data, zstdMagic) {
			data, err = s.decoder.DecodeAll(data, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress %s: %w", rel, err)
			}
		}
		v, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", rel, err)
		}
		lru.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		if !errors.Is(err, leyning.ErrContentUnavailable) {
			log.Warn("content fetch failed", "file", rel, "err", err)
		}
		return zero, err
	}

	log.Debug("content loaded", "file", rel, "shared", shared)
	return res.(V), nil
}
