package reading

import (
	"fmt"
	"sync"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
	"github.com/leyningapp/leyn/leyning/timing"
	"github.com/leyningapp/leyn/leyning/verses"
)

// Session is one assembled reading: its verses, word index and, when
// synchronized audio exists, the controller playing it.
type Session struct {
	Spec   *leyning.ReadingSpec
	Aliyah leyning.AliyahSelector
	Verses []leyning.VerseData
	Index  *verses.WordIndex
	Mode   leyning.AudioMode

	// Offset is added to a displayed word index to index the labels of a
	// recording shared with another aliyah.
	Offset int

	HasAudio      bool
	NoAudioReason string

	controller  *audio.Controller
	tracker     *timing.Tracker
	labels      [][]float64
	trackStarts []int

	closeOnce sync.Once
	closeErr  error
}

// Controller returns the audio controller, or nil without audio.
func (s *Session) Controller() *audio.Controller {
	return s.controller
}

// Tracker returns the active-word tracker, or nil without audio.
func (s *Session) Tracker() *timing.Tracker {
	return s.tracker
}

// ActiveWord returns the flat index of the word being spoken. The boolean
// is false when playback is inactive or before the first word.
func (s *Session) ActiveWord() (int, bool) {
	if s.controller == nil {
		return 0, false
	}
	snap := s.controller.Snapshot()
	if snap.Track < 0 || snap.Track >= len(s.labels) {
		return 0, false
	}

	offset := 0
	if s.Mode == leyning.ModeAliyah {
		offset = s.Offset
	}
	i, ok := timing.Resolve(snap.Position, s.labels[snap.Track], offset, snap.Inactive())
	if !ok {
		return 0, false
	}

	flat := s.trackStarts[snap.Track] + i
	last := s.Index.Len() - 1
	if s.Mode == leyning.ModeVerse {
		_, end := s.Index.VerseRange(snap.Track)
		last = end - 1
	}
	if flat > last {
		flat = last
	}
	if flat < 0 {
		return 0, false
	}
	return flat, true
}

// SeekToWord starts playback at a displayed word.
func (s *Session) SeekToWord(flat int) error {
	verse, word, err := s.Index.VerseAndWordAt(flat)
	if err != nil {
		return err
	}
	if s.controller == nil {
		return leyning.ErrNoSource
	}

	if s.Mode == leyning.ModeVerse {
		return s.controller.SeekTo(verse, s.labels[verse][word])
	}

	i := timing.LabelIndexFor(flat, s.Offset)
	labels := s.labels[0]
	if i >= len(labels) {
		return fmt.Errorf("label %d of %d: %w", i, len(labels), leyning.ErrInvalidWordIndex)
	}
	return s.controller.SeekTo(0, labels[i])
}

// TogglePlayback pauses or resumes. From the inactive state it starts at
// the first word.
func (s *Session) TogglePlayback() error {
	if s.controller == nil {
		return leyning.ErrNoSource
	}
	if s.controller.Snapshot().Inactive() && s.Index.Len() > 0 {
		return s.SeekToWord(0)
	}
	s.controller.Toggle()
	return nil
}

// SetSpeed changes the playback rate.
func (s *Session) SetSpeed(rate float64) error {
	if s.controller == nil {
		return leyning.ErrNoSource
	}
	return s.controller.SetSpeed(rate)
}

// Close stops the tracker and releases all decoders.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.tracker != nil {
			s.tracker.Stop()
		}
		if s.controller != nil {
			s.closeErr = s.controller.Close()
		}
	})
	return s.closeErr
}
