package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/leyningapp/leyn/leyning"
)

type fileBackend struct {
	root string
}

// NewFileStore returns a Store reading from a local data directory. A
// compressed "<name>.json.zst" takes precedence over "<name>.json".
func NewFileStore(root string, entries int) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data directory %s is not a directory", root)
	}
	return newStore(&fileBackend{root: root}, entries)
}

func (b *fileBackend) fetch(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := filepath.Join(b.root, filepath.FromSlash(rel))
	for _, candidate := range []string{p + ".zst", p} {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", leyning.ErrContentUnavailable, rel)
}

func (b *fileBackend) close() error { return nil }
