package verses

import (
	"errors"
	"testing"

	"github.com/leyningapp/leyn/leyning"
)

func cv(ch, v int) leyning.ChapterVerse {
	return leyning.ChapterVerse{Chapter: ch - 1, Verse: v - 1}
}

func TestParseChapterVerse(t *testing.T) {
	tests := []struct {
		in      string
		want    leyning.ChapterVerse
		wantErr bool
	}{
		{"1:1", leyning.ChapterVerse{}, false},
		{"32:52", leyning.ChapterVerse{Chapter: 31, Verse: 51}, false},
		{" 6:9 ", leyning.ChapterVerse{Chapter: 5, Verse: 8}, false},
		{"0:1", leyning.ChapterVerse{}, true},
		{"1:0", leyning.ChapterVerse{}, true},
		{"12", leyning.ChapterVerse{}, true},
		{"a:b", leyning.ChapterVerse{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChapterVerse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, leyning.ErrInvalidRange) {
					t.Errorf("ParseChapterVerse(%q) error = %v, want ErrInvalidRange", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseChapterVerse(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseChapterVerse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	c := cv(23, 9)
	if Key(c) != "23:9" {
		t.Errorf("Key() = %q, want 23:9", Key(c))
	}
	back, err := ParseChapterVerse(Key(c))
	if err != nil || back != c {
		t.Errorf("ParseChapterVerse(Key()) = %v, %v", back, err)
	}
}

func TestExtract(t *testing.T) {
	v := Versification{"Genesis": {5, 5, 3}}

	tests := []struct {
		name string
		r    leyning.AliyahRange
		want []leyning.ChapterVerse
	}{
		{
			name: "whole chapter",
			r:    leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 1), End: cv(1, 5)},
			want: []leyning.ChapterVerse{cv(1, 1), cv(1, 2), cv(1, 3), cv(1, 4), cv(1, 5)},
		},
		{
			name: "cross chapter",
			r:    leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 3), End: cv(2, 2)},
			want: []leyning.ChapterVerse{cv(1, 3), cv(1, 4), cv(1, 5), cv(2, 1), cv(2, 2)},
		},
		{
			name: "inside one chapter",
			r:    leyning.AliyahRange{Book: "Genesis", Begin: cv(2, 2), End: cv(2, 4)},
			want: []leyning.ChapterVerse{cv(2, 2), cv(2, 3), cv(2, 4)},
		},
		{
			name: "single verse",
			r:    leyning.AliyahRange{Book: "Genesis", Begin: cv(3, 3), End: cv(3, 3)},
			want: []leyning.ChapterVerse{cv(3, 3)},
		},
		{
			name: "three chapters",
			r:    leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 5), End: cv(3, 1)},
			want: []leyning.ChapterVerse{cv(1, 5), cv(2, 1), cv(2, 2), cv(2, 3), cv(2, 4), cv(2, 5), cv(3, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.r, v)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Extract() returned %d verses, want %d", len(got), len(tt.want))
			}
			for i, loc := range got {
				if loc.ChapterVerse != tt.want[i] {
					t.Errorf("verse %d = %v, want %v", i, loc.ChapterVerse, tt.want[i])
				}
				if loc.Book != "Genesis" {
					t.Errorf("verse %d book = %q", i, loc.Book)
				}
				if closing := i == len(got)-1; loc.Closing != closing {
					t.Errorf("verse %d Closing = %v, want %v", i, loc.Closing, closing)
				}
			}
		})
	}
}

func TestExtractInvalid(t *testing.T) {
	v := Versification{"Genesis": {5, 5}}

	tests := []struct {
		name string
		r    leyning.AliyahRange
	}{
		{"unknown book", leyning.AliyahRange{Book: "Exodus", Begin: cv(1, 1), End: cv(1, 2)}},
		{"chapter past end", leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 1), End: cv(3, 1)}},
		{"begin verse past end", leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 6), End: cv(2, 1)}},
		{"end verse past end", leyning.AliyahRange{Book: "Genesis", Begin: cv(1, 1), End: cv(2, 6)}},
		{"begin after end", leyning.AliyahRange{Book: "Genesis", Begin: cv(2, 1), End: cv(1, 5)}},
		{"negative", leyning.AliyahRange{Book: "Genesis", Begin: leyning.ChapterVerse{Chapter: -1}, End: cv(1, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.r, v)
			if !errors.Is(err, leyning.ErrInvalidRange) {
				t.Errorf("Extract() error = %v, want ErrInvalidRange", err)
			}
		})
	}
}

func TestExtractAllAcrossBooks(t *testing.T) {
	v := Versification{"Isaiah": {4}, "I Samuel": {3}}
	ranges := []leyning.AliyahRange{
		{Book: "Isaiah", Begin: cv(1, 3), End: cv(1, 4)},
		{Book: "I Samuel", Begin: cv(1, 1), End: cv(1, 2)},
	}

	got, err := ExtractAll(ranges, v)
	if err != nil {
		t.Fatalf("ExtractAll() error = %v", err)
	}

	want := []leyning.VerseLocator{
		{Book: "Isaiah", ChapterVerse: cv(1, 3)},
		{Book: "Isaiah", ChapterVerse: cv(1, 4), Closing: true},
		{Book: "I Samuel", ChapterVerse: cv(1, 1)},
		{Book: "I Samuel", ChapterVerse: cv(1, 2), Closing: true},
	}
	if len(got) != len(want) {
		t.Fatalf("ExtractAll() returned %d verses, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("verse %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestVersificationFromText(t *testing.T) {
	text := leyning.BookText{
		{{"a"}, {"b"}},
		{{"c"}, {"d"}, {"e"}},
	}
	got := VersificationFromText(text)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 {
		t.Errorf("VersificationFromText() = %v, want [2 3]", got)
	}
}
