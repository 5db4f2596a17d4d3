package question

import (
	"fmt"
	"strings"
)

// Kind is the short type code used in spreadsheet rows and the JSON envelope.
type Kind string

const (
	KindMultipleChoice Kind = "MC"
	KindMultipleAnswer Kind = "MA"
	KindTrueFalse      Kind = "TF"
	KindFillInBlank    Kind = "FIB"
	KindEssay          Kind = "ESS"
)

// ParseKind accepts a tag exactly as it appears in a row (case-insensitive,
// surrounding whitespace ignored).
func ParseKind(tag string) (Kind, bool) {
	switch normalizeTag(tag) {
	case "MC":
		return KindMultipleChoice, true
	case "MA":
		return KindMultipleAnswer, true
	case "TF":
		return KindTrueFalse, true
	case "FIB":
		return KindFillInBlank, true
	case "ESS":
		return KindEssay, true
	}
	return "", false
}

func normalizeTag(tag string) string { return strings.ToUpper(strings.TrimSpace(tag)) }

func (k Kind) String() string { return string(k) }

// Record is a single question. The set of implementations is closed: only
// the five types in this file satisfy it.
type Record interface {
	Kind() Kind
	PromptText() string
	sealed()
}

// Option is one selectable answer of a choice question.
type Option struct {
	Text    string `json:"text" yaml:"text"`
	Correct bool   `json:"correct" yaml:"correct"`
}

type MultipleChoice struct {
	Prompt  string
	Options []Option
}

type MultipleAnswer struct {
	Prompt  string
	Options []Option
}

type TrueFalse struct {
	Prompt string
	Answer bool
}

type FillInBlank struct {
	Prompt            string
	AcceptableAnswers []string
}

type Essay struct {
	Prompt string
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (MultipleAnswer) Kind() Kind { return KindMultipleAnswer }
func (TrueFalse) Kind() Kind      { return KindTrueFalse }
func (FillInBlank) Kind() Kind    { return KindFillInBlank }
func (Essay) Kind() Kind          { return KindEssay }

func (q MultipleChoice) PromptText() string { return q.Prompt }
func (q MultipleAnswer) PromptText() string { return q.Prompt }
func (q TrueFalse) PromptText() string      { return q.Prompt }
func (q FillInBlank) PromptText() string    { return q.Prompt }
func (q Essay) PromptText() string          { return q.Prompt }

func (MultipleChoice) sealed() {}
func (MultipleAnswer) sealed() {}
func (TrueFalse) sealed()      {}
func (FillInBlank) sealed()    {}
func (Essay) sealed()          {}

// CorrectCount returns how many options are flagged correct.
func CorrectCount(opts []Option) int {
	n := 0
	for _, o := range opts {
		if o.Correct {
			n++
		}
	}
	return n
}

// QuizDocument is an ordered list of questions plus quiz-level text.
type QuizDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Questions   []Record `json:"-"`
}

// UnsupportedRecordError is returned by type switches that meet a Record
// they do not know how to handle.
type UnsupportedRecordError struct {
	Record Record
}

func (e *UnsupportedRecordError) Error() string {
	return fmt.Sprintf("unsupported question record %T", e.Record)
}
