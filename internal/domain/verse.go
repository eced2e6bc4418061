package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// TotalChapters is the number of chapters (surahs).
const TotalChapters = 114

// chapterVerseCounts[i] is the verse count of chapter i+1.
var chapterVerseCounts = [TotalChapters]int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109,
	123, 111, 43, 52, 99, 128, 111, 110, 98, 135,
	112, 78, 118, 64, 77, 227, 93, 88, 69, 60,
	34, 30, 73, 54, 45, 83, 182, 88, 75, 85,
	54, 53, 89, 59, 37, 35, 38, 29, 18, 45,
	60, 49, 62, 55, 78, 96, 29, 22, 24, 13,
	14, 11, 11, 18, 12, 12, 30, 52, 52, 44,
	28, 28, 20, 56, 40, 31, 50, 40, 46, 42,
	29, 19, 36, 25, 22, 17, 19, 26, 30, 20,
	15, 21, 11, 8, 8, 19, 5, 8, 8, 11,
	11, 8, 3, 9, 5, 4, 7, 3, 6, 3,
	5, 4, 5, 6,
}

// VerseCount returns the number of verses in chapter, or 0 for an unknown chapter.
func VerseCount(chapter int) int {
	if chapter < 1 || chapter > TotalChapters {
		return 0
	}
	return chapterVerseCounts[chapter-1]
}

// VerseRef identifies one verse by chapter and verse-in-chapter.
type VerseRef struct {
	Chapter int
	Verse   int
}

// String returns the canonical "<chapter>:<verse>" identifier.
func (r VerseRef) String() string {
	return strconv.Itoa(r.Chapter) + ":" + strconv.Itoa(r.Verse)
}

// Path returns the reader path that scrolls to the verse.
func (r VerseRef) Path() string {
	return fmt.Sprintf("/surah/%d#ayah-%d", r.Chapter, r.Verse)
}

// Less orders references by chapter then verse.
func (r VerseRef) Less(o VerseRef) bool {
	if r.Chapter != o.Chapter {
		return r.Chapter < o.Chapter
	}
	return r.Verse < o.Verse
}

// ParseVerseID parses and validates a "<chapter>:<verse>" identifier.
// Surrounding whitespace and leading zeros are tolerated; String() gives the canonical form.
func ParseVerseID(id string) (VerseRef, error) {
	invalid := func(msg string) (VerseRef, error) {
		return VerseRef{}, &ValidationError{Field: "verseId", Value: id, Message: msg}
	}

	chapterRaw, verseRaw, ok := strings.Cut(strings.TrimSpace(id), ":")
	if !ok {
		return invalid(`expected "<chapter>:<verse>"`)
	}
	chapter, err := strconv.Atoi(chapterRaw)
	if err != nil || chapterRaw == "" || strings.HasPrefix(chapterRaw, "+") {
		return invalid("chapter is not a number")
	}
	verse, err := strconv.Atoi(verseRaw)
	if err != nil || verseRaw == "" || strings.HasPrefix(verseRaw, "+") {
		return invalid("verse is not a number")
	}
	if chapter < 1 || chapter > TotalChapters {
		return invalid(fmt.Sprintf("chapter must be between 1 and %d", TotalChapters))
	}
	if count := VerseCount(chapter); verse < 1 || verse > count {
		return invalid(fmt.Sprintf("chapter %d has %d verses", chapter, count))
	}
	return VerseRef{Chapter: chapter, Verse: verse}, nil
}
