// Package leyning provides the verse extraction and audio synchronization
// engine for reading along with chanted liturgical readings.
package leyning

import (
	"fmt"
	"time"
)

// BookID names a source book, e.g. "Genesis" or "II Kings".
type BookID string

// ChapterVerse is a 0-indexed chapter/verse pair.
type ChapterVerse struct {
	Chapter int
	Verse   int
}

// Less reports whether cv sorts before other in (chapter, verse) order.
func (cv ChapterVerse) Less(other ChapterVerse) bool {
	if cv.Chapter != other.Chapter {
		return cv.Chapter < other.Chapter
	}
	return cv.Verse < other.Verse
}

// String returns the 1-indexed "chapter:verse" form used by source data.
func (cv ChapterVerse) String() string {
	return fmt.Sprintf("%d:%d", cv.Chapter+1, cv.Verse+1)
}

// AliyahRange is an inclusive span of verses within a single book.
type AliyahRange struct {
	Book  BookID
	Begin ChapterVerse
	End   ChapterVerse
}

// AliyahSelector picks one portion of a reading.
type AliyahSelector string

// Standard selectors. Aliyot 1 through 7 use their number.
const (
	Maftir   AliyahSelector = "M"
	Haftarah AliyahSelector = "H"
)

// Aliyah returns the selector for the numbered aliyah n (1-7).
func Aliyah(n int) AliyahSelector {
	return AliyahSelector(fmt.Sprintf("%d", n))
}

// Valid reports whether s is one of 1-7, M or H.
func (s AliyahSelector) Valid() bool {
	switch s {
	case "1", "2", "3", "4", "5", "6", "7", Maftir, Haftarah:
		return true
	}
	return false
}

// DataKey returns the selector used to index recordings and labels. The
// maftir is stored inside the 7th aliyah's files.
func (s AliyahSelector) DataKey() AliyahSelector {
	if s == Maftir {
		return "7"
	}
	return s
}

// ReadingKind classifies a reading.
type ReadingKind string

// Reading kinds.
const (
	KindShabbat ReadingKind = "shabbat"
	KindChag    ReadingKind = "chag"
	KindWeekday ReadingKind = "weekday"
	KindMincha  ReadingKind = "mincha"
	KindTrope   ReadingKind = "trope"
)

// ReadingSpec is what the calendar oracle returns for a date or named unit.
type ReadingSpec struct {
	ID       string
	Name     string
	Kind     ReadingKind
	Parshiot []string
	Aliyot   map[AliyahSelector][]AliyahRange
	Haftarah []AliyahRange
	Summary  string

	// NoAudio holds the reason an aliyah has no canonical recording.
	NoAudio map[AliyahSelector]string

	// Triennial is set when the aliyot come from the triennial cycle.
	Triennial bool
}

// Ranges returns the verse ranges for the selected portion.
func (r *ReadingSpec) Ranges(sel AliyahSelector) ([]AliyahRange, error) {
	if sel == Haftarah {
		if len(r.Haftarah) == 0 {
			return nil, fmt.Errorf("%s has no haftarah: %w", r.Name, ErrUnknownAliyah)
		}
		return r.Haftarah, nil
	}
	ranges, ok := r.Aliyot[sel]
	if !ok || len(ranges) == 0 {
		return nil, fmt.Errorf("%s has no aliyah %q: %w", r.Name, sel, ErrUnknownAliyah)
	}
	return ranges, nil
}

// Parsha returns the single parsha of the reading, or "" when the reading
// is a holiday or a combined double parsha.
func (r *ReadingSpec) Parsha() string {
	if len(r.Parshiot) == 1 {
		return r.Parshiot[0]
	}
	return ""
}

// VerseLocator identifies one verse of an expanded range.
type VerseLocator struct {
	Book         BookID
	ChapterVerse ChapterVerse

	// Closing is set on the last verse of its range.
	Closing bool
}

// VerseData is a located verse with its words and optional translation.
type VerseData struct {
	VerseLocator
	Words       []string
	Translation *string
}

// AudioMode selects how recordings are split into tracks.
type AudioMode string

const (
	// ModeAliyah plays one continuous recording per aliyah data file.
	ModeAliyah AudioMode = "aliyah"
	// ModeVerse plays one track per verse with zero-based labels per verse.
	ModeVerse AudioMode = "verse"
)

// Source is one loadable audio track.
type Source struct {
	Path string

	// ClipStart and ClipEnd bound the track inside Path, in seconds.
	// A zero ClipEnd plays to the end of the file.
	ClipStart float64
	ClipEnd   float64

	// Closing marks a closing-verse recording variant.
	Closing bool
}

// Duration returns the clip length, or 0 when it runs to end of file.
func (s Source) Duration() time.Duration {
	if s.ClipEnd <= s.ClipStart {
		return 0
	}
	return time.Duration((s.ClipEnd - s.ClipStart) * float64(time.Second))
}

// Scheme selects the calendar variant used to resolve readings.
type Scheme struct {
	IL  bool // Israel rather than diaspora holiday scheme
	Tri bool // triennial rather than annual cycle
}
