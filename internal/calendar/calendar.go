// Package calendar implements the liturgical calendar oracle from a
// readings file listing named readings and the dates they fall on.
package calendar

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/verses"
	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"
)

// DateLayout is the format of dates in the readings file and of date
// reading ids.
const DateLayout = "2006-01-02"

type aliyotDoc map[string][]string

type readingDoc struct {
	ID        string            `yaml:"id"`
	Name      string            `yaml:"name"`
	Kind      string            `yaml:"kind"`
	Parshiot  []string          `yaml:"parshiot"`
	Summary   string            `yaml:"summary"`
	Aliyot    aliyotDoc         `yaml:"aliyot"`
	Haftarah  []string          `yaml:"haftarah"`
	NoAudio   map[string]string `yaml:"no_audio"`
	Triennial []aliyotDoc       `yaml:"triennial"`
}

type dateDoc struct {
	Date     string   `yaml:"date"`
	Readings []string `yaml:"readings"`
	IL       []string `yaml:"il"`
	Cycle    int      `yaml:"cycle"`
}

type document struct {
	Readings []readingDoc `yaml:"readings"`
	Dates    []dateDoc    `yaml:"dates"`
}

type entry struct {
	spec      *leyning.ReadingSpec
	triennial []map[leyning.AliyahSelector][]leyning.AliyahRange
}

type dateEntry struct {
	readings []string
	il       []string
	cycle    int
}

// Option configures a Calendar.
type Option func(*Calendar)

// WithCycle sets the triennial cycle year (1-3) used for readings looked up
// by name.
func WithCycle(year int) Option {
	return func(c *Calendar) {
		if year >= 1 && year <= 3 {
			c.cycle = year
		}
	}
}

// Calendar implements leyning.Oracle.
type Calendar struct {
	readings map[string]*entry
	lower    map[string]string
	names    []string
	dates    map[string]dateEntry
	cycle    int
}

var _ leyning.Oracle = (*Calendar)(nil)

// Load reads a readings file.
func Load(path string, opts ...Option) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read readings: %w", err)
	}
	return Parse(data, opts...)
}

// Parse decodes a readings document.
func Parse(data []byte, opts ...Option) (*Calendar, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse readings: %w", err)
	}

	c := &Calendar{
		readings: make(map[string]*entry, len(doc.Readings)),
		lower:    make(map[string]string, len(doc.Readings)),
		dates:    make(map[string]dateEntry, len(doc.Dates)),
		cycle:    1,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, rd := range doc.Readings {
		e, err := rd.entry()
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", rd.ID, err)
		}
		if _, dup := c.readings[e.spec.ID]; dup {
			return nil, fmt.Errorf("duplicate reading %q", e.spec.ID)
		}
		c.readings[e.spec.ID] = e
		c.lower[strings.ToLower(e.spec.ID)] = e.spec.ID
		if e.spec.Name != e.spec.ID {
			c.lower[strings.ToLower(e.spec.Name)] = e.spec.ID
		}
		c.names = append(c.names, e.spec.ID)
	}
	sort.Strings(c.names)

	for _, dd := range doc.Dates {
		if _, err := time.Parse(DateLayout, dd.Date); err != nil {
			return nil, fmt.Errorf("date %q: %w", dd.Date, err)
		}
		if dd.Cycle < 0 || dd.Cycle > 3 {
			return nil, fmt.Errorf("date %s: invalid triennial cycle %d", dd.Date, dd.Cycle)
		}
		for _, id := range append(append([]string(nil), dd.Readings...), dd.IL...) {
			if _, ok := c.readings[id]; !ok {
				return nil, fmt.Errorf("date %s: unknown reading %q", dd.Date, id)
			}
		}
		c.dates[dd.Date] = dateEntry{readings: dd.Readings, il: dd.IL, cycle: dd.Cycle}
	}

	log.Debug("calendar loaded", "readings", len(c.readings), "dates", len(c.dates))
	return c, nil
}

func (rd readingDoc) entry() (*entry, error) {
	if rd.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	name := rd.Name
	if name == "" {
		name = rd.ID
	}

	kind := leyning.ReadingKind(rd.Kind)
	switch kind {
	case leyning.KindShabbat, leyning.KindChag, leyning.KindWeekday, leyning.KindMincha, leyning.KindTrope:
	case "":
		kind = leyning.KindShabbat
	default:
		return nil, fmt.Errorf("unknown kind %q", rd.Kind)
	}

	aliyot, err := parseAliyot(rd.Aliyot)
	if err != nil {
		return nil, err
	}
	haftarah, err := parseRanges(rd.Haftarah)
	if err != nil {
		return nil, fmt.Errorf("haftarah: %w", err)
	}

	var noAudio map[leyning.AliyahSelector]string
	if len(rd.NoAudio) > 0 {
		noAudio = make(map[leyning.AliyahSelector]string, len(rd.NoAudio))
		for sel, reason := range rd.NoAudio {
			noAudio[leyning.AliyahSelector(sel)] = reason
		}
	}

	e := &entry{spec: &leyning.ReadingSpec{
		ID:       rd.ID,
		Name:     name,
		Kind:     kind,
		Parshiot: rd.Parshiot,
		Aliyot:   aliyot,
		Haftarah: haftarah,
		Summary:  rd.Summary,
		NoAudio:  noAudio,
	}}
	for i, year := range rd.Triennial {
		tri, err := parseAliyot(year)
		if err != nil {
			return nil, fmt.Errorf("triennial year %d: %w", i+1, err)
		}
		e.triennial = append(e.triennial, tri)
	}
	return e, nil
}

func parseAliyot(doc aliyotDoc) (map[leyning.AliyahSelector][]leyning.AliyahRange, error) {
	aliyot := make(map[leyning.AliyahSelector][]leyning.AliyahRange, len(doc))
	for key, specs := range doc {
		sel := leyning.AliyahSelector(strings.ToUpper(key))
		if !sel.Valid() || sel == leyning.Haftarah {
			return nil, fmt.Errorf("invalid aliyah %q", key)
		}
		ranges, err := parseRanges(specs)
		if err != nil {
			return nil, fmt.Errorf("aliyah %s: %w", key, err)
		}
		aliyot[sel] = ranges
	}
	return aliyot, nil
}

func parseRanges(specs []string) ([]leyning.AliyahRange, error) {
	ranges := make([]leyning.AliyahRange, 0, len(specs))
	for _, s := range specs {
		r, err := ParseRangeSpec(s)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	return ranges, nil
}

// ParseRangeSpec parses "Book c:v-c:v", e.g. "II Kings 4:1-4:37". A bare
// "Book c:v" is a single verse.
func ParseRangeSpec(s string) (leyning.AliyahRange, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndexByte(s, ' ')
	if i <= 0 {
		return leyning.AliyahRange{}, fmt.Errorf("%w: %q has no book", leyning.ErrInvalidRange, s)
	}
	book, span := leyning.BookID(strings.TrimSpace(s[:i])), s[i+1:]

	begin, end, found := strings.Cut(span, "-")
	if !found {
		end = begin
	}
	return verses.ParseRange(book, begin, end)
}

// Reading implements leyning.Oracle. id is a reading id or name, matched
// case-insensitively and then fuzzily, or a date in DateLayout.
func (c *Calendar) Reading(ctx context.Context, id string, scheme leyning.Scheme) (*leyning.ReadingSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if date, err := time.Parse(DateLayout, id); err == nil {
		specs, err := c.ReadingsOn(ctx, date, scheme)
		if err != nil {
			return nil, err
		}
		if len(specs) == 0 {
			return nil, fmt.Errorf("%w: nothing is read on %s", leyning.ErrReadingNotFound, id)
		}
		return specs[0], nil
	}

	key, ok := c.resolve(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", leyning.ErrReadingNotFound, id)
	}
	return c.build(key, scheme, c.cycle), nil
}

// resolve maps a user-supplied name to a reading id.
func (c *Calendar) resolve(id string) (string, bool) {
	if _, ok := c.readings[id]; ok {
		return id, true
	}
	if key, ok := c.lower[strings.ToLower(strings.TrimSpace(id))]; ok {
		return key, true
	}

	matches := fuzzy.Find(id, c.names)
	if len(matches) == 0 {
		return "", false
	}
	log.Debug("fuzzy reading match", "query", id, "match", matches[0].Str, "score", matches[0].Score)
	return matches[0].Str, true
}

// ReadingsOn implements leyning.Oracle.
func (c *Calendar) ReadingsOn(ctx context.Context, date time.Time, scheme leyning.Scheme) ([]*leyning.ReadingSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	de, ok := c.dates[date.Format(DateLayout)]
	if !ok {
		return nil, nil
	}
	ids := de.readings
	if scheme.IL && len(de.il) > 0 {
		ids = de.il
	}
	cycle := de.cycle
	if cycle == 0 {
		cycle = c.cycle
	}

	specs := make([]*leyning.ReadingSpec, 0, len(ids))
	for _, id := range ids {
		specs = append(specs, c.build(id, scheme, cycle))
	}
	return specs, nil
}

// build copies a reading, substituting triennial aliyot when requested and
// available.
func (c *Calendar) build(id string, scheme leyning.Scheme, cycle int) *leyning.ReadingSpec {
	e := c.readings[id]
	spec := *e.spec

	if scheme.Tri && e.spec.Kind == leyning.KindShabbat && len(e.triennial) > 0 {
		year := (cycle - 1) % len(e.triennial)
		spec.Aliyot = e.triennial[year]
		spec.Triennial = true
	}
	return &spec
}

// Names implements leyning.Oracle.
func (c *Calendar) Names() []string {
	return append([]string(nil), c.names...)
}

// Dates returns every date with a reading, in order.
func (c *Calendar) Dates() []time.Time {
	dates := make([]time.Time, 0, len(c.dates))
	for d := range c.dates {
		t, _ := time.Parse(DateLayout, d)
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
