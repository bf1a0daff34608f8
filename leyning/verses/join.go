package verses

import (
	"fmt"

	"github.com/leyningapp/leyn/leyning"
)

// TextLookup returns the words of a verse.
type TextLookup interface {
	Words(book leyning.BookID, cv leyning.ChapterVerse) ([]string, bool)
}

// TranslationLookup returns the translation of a verse.
type TranslationLookup interface {
	Translation(book leyning.BookID, cv leyning.ChapterVerse) (string, bool)
}

// Join attaches words and translations to each locator. A nil translations
// lookup, or one without an entry for a verse, leaves Translation nil.
func Join(locs []leyning.VerseLocator, text TextLookup, translations TranslationLookup) ([]leyning.VerseData, error) {
	out := make([]leyning.VerseData, len(locs))
	for i, loc := range locs {
		words, ok := text.Words(loc.Book, loc.ChapterVerse)
		if !ok {
			return nil, fmt.Errorf("%s %s: %w", loc.Book, loc.ChapterVerse, leyning.ErrContentUnavailable)
		}
		out[i] = leyning.VerseData{VerseLocator: loc, Words: words}
		if translations == nil {
			continue
		}
		if tr, ok := translations.Translation(loc.Book, loc.ChapterVerse); ok {
			out[i].Translation = &tr
		}
	}
	return out, nil
}

// Library holds loaded books and translations. It satisfies both lookups.
type Library struct {
	Text         map[leyning.BookID]leyning.BookText
	Translations map[leyning.BookID]leyning.BookTranslation
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		Text:         make(map[leyning.BookID]leyning.BookText),
		Translations: make(map[leyning.BookID]leyning.BookTranslation),
	}
}

// Words implements TextLookup.
func (l *Library) Words(book leyning.BookID, cv leyning.ChapterVerse) ([]string, bool) {
	text, ok := l.Text[book]
	if !ok || cv.Chapter >= len(text) || cv.Verse >= len(text[cv.Chapter]) {
		return nil, false
	}
	return text[cv.Chapter][cv.Verse], true
}

// Translation implements TranslationLookup.
func (l *Library) Translation(book leyning.BookID, cv leyning.ChapterVerse) (string, bool) {
	tr, ok := l.Translations[book]
	if !ok || cv.Chapter >= len(tr) || cv.Verse >= len(tr[cv.Chapter]) {
		return "", false
	}
	return tr[cv.Chapter][cv.Verse], true
}

// Versification returns the verse counts of every loaded book.
func (l *Library) Versification() Versification {
	v := make(Versification, len(l.Text))
	for book, text := range l.Text {
		v[book] = VersificationFromText(text)
	}
	return v
}
