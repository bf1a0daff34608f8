package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
triennial: false
maftir_offsets:
  Bereshit: 120
  Noach: 0
units:
  Bereshit:
    "1": {file: audio/bereshit/1.mp3}
    "7": {file: audio/bereshit/7.mp3}
  Genesis:
    "1:1": {file: audio/bereshit/1.mp3, start: 0, end: 6.5}
    "1:5": {file: audio/bereshit/1.mp3, start: 30.25, end: 38}
    "1:5/closing": {file: audio/bereshit/1-closing.mp3}
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample), "/data")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	src, ok := m.Source("Genesis", "1:5")
	if !ok {
		t.Fatal("Source(Genesis, 1:5) not found")
	}
	if src.Path != filepath.Join("/data", "audio", "bereshit", "1.mp3") || src.ClipStart != 30.25 || src.ClipEnd != 38 || src.Closing {
		t.Errorf("Source() = %+v", src)
	}

	closing, ok := m.VerseSource("Genesis", "1:5", true)
	if !ok || !closing.Closing || closing.ClipEnd != 0 {
		t.Errorf("VerseSource(closing) = %+v, %v", closing, ok)
	}
	plain, ok := m.VerseSource("Genesis", "1:1", true)
	if !ok || plain.Closing {
		t.Errorf("VerseSource without closing variant = %+v, %v", plain, ok)
	}

	if _, ok := m.Source("Noach", "1"); ok {
		t.Error("Source(Noach, 1) should be missing")
	}

	tests := []struct {
		reading string
		want    int
	}{
		{"Bereshit", 120},
		{"Noach", 0},
		{"Vezot Haberakhah", 0},
	}
	for _, tt := range tests {
		if got := m.MaftirOffset(tt.reading); got != tt.want {
			t.Errorf("MaftirOffset(%q) = %d, want %d", tt.reading, got, tt.want)
		}
	}

	if m.HasTriennial() {
		t.Error("HasTriennial() = true")
	}
	if m.Units() != 2 {
		t.Errorf("Units() = %d, want 2", m.Units())
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "units: [1, 2"},
		{"missing file", `units: {Genesis: {"1:1": {start: 1}}}`},
		{"end before start", `units: {Genesis: {"1:1": {file: a.mp3, start: 5, end: 2}}}`},
		{"negative start", `units: {Genesis: {"1:1": {file: a.mp3, start: -1}}}`},
		{"negative offset", `maftir_offsets: {Bereshit: -3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc), "/"); err == nil {
				t.Error("Parse() should fail")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	src, _ := m.Source("Bereshit", "7")
	if want := filepath.Join(dir, "audio", "bereshit", "7.mp3"); src.Path != want {
		t.Errorf("Path = %q, want %q", src.Path, want)
	}
}
