package ingest

import (
	"strings"

	"github.com/mind-engage/quizport/internal/textmatch"
)

// OptionTag classifies the cell that follows an option's text.
type OptionTag int

const (
	TagMissing OptionTag = iota
	TagCorrect
	TagIncorrect
	TagInvalid
)

func (t OptionTag) String() string {
	switch t {
	case TagMissing:
		return "missing"
	case TagCorrect:
		return "correct"
	case TagIncorrect:
		return "incorrect"
	}
	return "invalid"
}

// ClassifyTag reads a correct/incorrect marker, tolerating the typos people
// make when typing them into a spreadsheet ("corect", "incorect", ...).
func ClassifyTag(cell string) OptionTag {
	f := textmatch.Fold(cell)
	switch f {
	case "":
		return TagMissing
	case "correct":
		return TagCorrect
	case "incorrect":
		return TagIncorrect
	}
	if len(f) < 5 {
		return TagInvalid
	}
	// "incorrect" is only two edits from "correct"; a cell close to both
	// words is ambiguous.
	nearCorrect := textmatch.Levenshtein(f, "correct") <= 1
	nearIncorrect := textmatch.Levenshtein(f, "incorrect") <= 2
	switch {
	case nearCorrect && nearIncorrect:
		return TagInvalid
	case nearIncorrect:
		return TagIncorrect
	case nearCorrect:
		return TagCorrect
	}
	return TagInvalid
}

// TruthValue parses a true/false answer cell. literal is false for the
// accepted short forms t, f, 1 and 0.
func TruthValue(cell string) (value, literal, ok bool) {
	switch textmatch.Fold(cell) {
	case "true":
		return true, true, true
	case "false":
		return false, true, true
	case "t", "1":
		return true, false, true
	case "f", "0":
		return false, false, true
	}
	return false, false, false
}

// LooksLikeTag reports whether a cell is shaped like a type tag (two or
// three upper-case letters) regardless of whether the tag is known.
func LooksLikeTag(cell string) bool {
	s := strings.TrimSpace(cell)
	if len(s) < 2 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// HasBlankRun reports whether a prompt marks a blank with underscores.
func HasBlankRun(prompt string) bool {
	return strings.Contains(prompt, "_")
}
