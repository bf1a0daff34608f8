package content

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/leyningapp/leyn/leyning"
)

const genesisText = `[[["בְּרֵאשִׁ֖ית","בָּרָ֣א"],["וְהָאָ֗רֶץ"]]]`

const genesisLabels = `{"1:1":[0,0.8],"1:2":[0]}`

func compress(t *testing.T, data string) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll([]byte(data), nil)
}

func writeFile(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "text/Genesis.json", []byte(genesisText))
	writeFile(t, root, "labels/Genesis.json.zst", compress(t, genesisLabels))
	writeFile(t, root, "translation/Genesis.json", []byte(`{"text":[["In the beginning","Now the earth"]]}`))

	store, err := NewFileStore(root, 4)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	text, err := store.BookText(ctx, "Genesis")
	if err != nil {
		t.Fatalf("BookText() error = %v", err)
	}
	if len(text) != 1 || len(text[0]) != 2 || text[0][0][1] != "בָּרָ֣א" {
		t.Errorf("BookText() = %v", text)
	}

	labels, err := store.TimingLabels(ctx, "Genesis")
	if err != nil {
		t.Fatalf("TimingLabels() error = %v", err)
	}
	if got := labels["1:1"]; len(got) != 2 || got[1] != 0.8 {
		t.Errorf("labels[1:1] = %v", got)
	}

	tr, err := store.Translation(ctx, "Genesis")
	if err != nil {
		t.Fatalf("Translation() error = %v", err)
	}
	if tr[0][1] != "Now the earth" {
		t.Errorf("Translation() = %v", tr)
	}

	// Cached: removing the file does not affect later reads.
	if err := os.Remove(filepath.Join(root, "text", "Genesis.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.BookText(ctx, "Genesis"); err != nil {
		t.Errorf("cached BookText() error = %v", err)
	}

	if _, err := store.Translation(ctx, "Exodus"); !errors.Is(err, leyning.ErrContentUnavailable) {
		t.Errorf("Translation(Exodus) error = %v, want ErrContentUnavailable", err)
	}
}

func TestFileStoreMissingRoot(t *testing.T) {
	if _, err := NewFileStore(filepath.Join(t.TempDir(), "missing"), 4); err == nil {
		t.Error("NewFileStore() on a missing directory should fail")
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "text/Genesis.json", []byte(`{"not":"text"`))

	store, err := NewFileStore(root, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	_, err = store.BookText(context.Background(), "Genesis")
	if err == nil || errors.Is(err, leyning.ErrContentUnavailable) {
		t.Errorf("BookText() error = %v, want a decode error", err)
	}
}

func TestHTTPStore(t *testing.T) {
	var requests atomic.Int32
	compressed := compress(t, genesisLabels)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("User-Agent") == "" {
			t.Error("request without User-Agent")
		}
		switch r.URL.Path {
		case "/data/text/Genesis.json":
			w.Write([]byte(genesisText))
		case "/data/labels/Genesis.json":
			w.Write(compressed)
		case "/data/text/Broken.json":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := leyning.DefaultCacheConfig()
	cfg.DiskDir = t.TempDir()
	cfg.FetchRate = 100

	store, err := NewHTTPStore(srv.URL+"/data/", cfg)
	if err != nil {
		t.Fatalf("NewHTTPStore() error = %v", err)
	}
	ctx := context.Background()

	if _, err := store.BookText(ctx, "Genesis"); err != nil {
		t.Fatalf("BookText() error = %v", err)
	}
	labels, err := store.TimingLabels(ctx, "Genesis")
	if err != nil {
		t.Fatalf("TimingLabels() error = %v", err)
	}
	if len(labels["1:1"]) != 2 {
		t.Errorf("labels = %v", labels)
	}
	if _, err := store.Translation(ctx, "Genesis"); !errors.Is(err, leyning.ErrContentUnavailable) {
		t.Errorf("Translation() error = %v, want ErrContentUnavailable", err)
	}
	if _, err := store.BookText(ctx, "Broken"); err == nil || errors.Is(err, leyning.ErrContentUnavailable) {
		t.Errorf("BookText(Broken) error = %v, want a server error", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A new store on the same disk cache does not refetch.
	before := requests.Load()
	store, err = NewHTTPStore(srv.URL+"/data", cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	if _, err := store.BookText(ctx, "Genesis"); err != nil {
		t.Fatalf("BookText() from disk cache error = %v", err)
	}
	if n := requests.Load() - before; n != 0 {
		t.Errorf("disk-cached document refetched %d times", n)
	}
}
