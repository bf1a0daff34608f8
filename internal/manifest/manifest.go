// Package manifest loads the audio manifest: which recording, or which clip
// of a recording, plays each aliyah and verse.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leyningapp/leyn/leyning"
	"gopkg.in/yaml.v3"
)

// ClosingSuffix marks the key of a verse's closing variant, recorded with
// the end-of-aliyah cadence.
const ClosingSuffix = "/closing"

// ClosingKey returns the closing-variant key for a verse key.
func ClosingKey(key string) string {
	return key + ClosingSuffix
}

// Entry is one recording or clip.
type Entry struct {
	File  string  `yaml:"file"`
	Start float64 `yaml:"start,omitempty"`
	End   float64 `yaml:"end,omitempty"`
}

type document struct {
	Triennial     bool                        `yaml:"triennial"`
	MaftirOffsets map[string]int              `yaml:"maftir_offsets"`
	Units         map[string]map[string]Entry `yaml:"units"`
}

// Manifest implements leyning.AudioManifest.
type Manifest struct {
	base string
	doc  document
}

var _ leyning.AudioManifest = (*Manifest)(nil)

// Load reads a manifest file. Relative file paths resolve against the
// manifest's directory.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes a manifest, resolving relative paths against base.
func Parse(data []byte, base string) (*Manifest, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	for unit, entries := range doc.Units {
		for key, e := range entries {
			if err := e.validate(); err != nil {
				return nil, fmt.Errorf("manifest entry %s/%s: %w", unit, key, err)
			}
		}
	}
	for reading, offset := range doc.MaftirOffsets {
		if offset < 0 {
			return nil, fmt.Errorf("maftir offset for %s is negative: %d", reading, offset)
		}
	}

	return &Manifest{base: base, doc: doc}, nil
}

func (e Entry) validate() error {
	switch {
	case e.File == "":
		return fmt.Errorf("missing file")
	case e.Start < 0:
		return fmt.Errorf("negative start %v", e.Start)
	case e.End != 0 && e.End <= e.Start:
		return fmt.Errorf("end %v not after start %v", e.End, e.Start)
	}
	return nil
}

// Source implements leyning.AudioManifest.
func (m *Manifest) Source(unit, key string) (leyning.Source, bool) {
	e, ok := m.doc.Units[unit][key]
	if !ok {
		return leyning.Source{}, false
	}

	path := e.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(m.base, filepath.FromSlash(path))
	}
	return leyning.Source{
		Path:      path,
		ClipStart: e.Start,
		ClipEnd:   e.End,
		Closing:   strings.HasSuffix(key, ClosingSuffix),
	}, true
}

// VerseSource returns a verse's recording, preferring the closing variant
// for the last verse of an aliyah.
func (m *Manifest) VerseSource(unit, key string, closing bool) (leyning.Source, bool) {
	if closing {
		if src, ok := m.Source(unit, ClosingKey(key)); ok {
			return src, true
		}
	}
	return m.Source(unit, key)
}

// MaftirOffset implements leyning.AudioManifest.
func (m *Manifest) MaftirOffset(reading string) int {
	return m.doc.MaftirOffsets[reading]
}

// HasTriennial implements leyning.AudioManifest.
func (m *Manifest) HasTriennial() bool {
	return m.doc.Triennial
}

// Units returns the number of units with recordings.
func (m *Manifest) Units() int {
	return len(m.doc.Units)
}
