// Package ingest turns spreadsheet-style rows of string cells into typed
// question records.
package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/quizport/internal/question"
)

// Row is one spreadsheet row, already split into cells.
type Row []string

// EssayPromptMin is the prompt length above which a lone prompt is read as
// an essay question.
const EssayPromptMin = 40

var (
	ErrMalformedRow = errors.New("malformed row")
	ErrBlankRow     = errors.New("blank row")
	ErrNoRows       = errors.New("no rows supplied")
)

// RowError explains why a row could not be turned into a record.
type RowError struct {
	Column int
	Reason string
}

func (e *RowError) Error() string { return e.Reason }

func (e *RowError) Unwrap() error { return ErrMalformedRow }

func rowErr(col int, format string, args ...any) error {
	return &RowError{Column: col, Reason: fmt.Sprintf(format, args...)}
}

// Layout is where the parts of a row live once the tag column is resolved.
// Column fields index the original row.
type Layout struct {
	Tag        string
	Kind       question.Kind
	Explicit   bool
	Prompt     string
	PromptCol  int
	Payload    []string
	PayloadCol int
}

// Pair is an option text cell and the tag cell after it.
type Pair struct {
	Text    string
	Tag     string
	TextCol int
	TagCol  int
}

// Pairs splits the payload of a choice row into (text, tag) pairs. Pairs
// with neither text nor tag are dropped.
func (l Layout) Pairs() []Pair {
	var out []Pair
	for i := 0; i < len(l.Payload); i += 2 {
		p := Pair{Text: l.Payload[i], TextCol: l.PayloadCol + i, TagCol: l.PayloadCol + i + 1}
		if i+1 < len(l.Payload) {
			p.Tag = l.Payload[i+1]
		}
		if p.Text == "" && p.Tag == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Inspect resolves the layout of a row and its question kind, either from
// the tag in column 0 or by inference.
func Inspect(row Row) (Layout, error) {
	cells := make([]string, len(row))
	blank := true
	for i, c := range row {
		cells[i] = strings.TrimSpace(c)
		if cells[i] != "" {
			blank = false
		}
	}
	if blank {
		return Layout{}, ErrBlankRow
	}

	var l Layout
	first := cells[0]
	if kind, ok := question.ParseKind(first); ok {
		if len(cells) < 2 {
			return Layout{}, rowErr(1, "too few cells: %s row has no prompt", kind)
		}
		l = Layout{Tag: first, Kind: kind, Explicit: true, Prompt: cells[1], PromptCol: 1, PayloadCol: 2}
	} else if first == "" {
		l = Layout{Prompt: cell(cells, 1), PromptCol: 1, PayloadCol: 2}
	} else if LooksLikeTag(first) {
		return Layout{}, rowErr(0, "unrecognized type tag %q", first)
	} else {
		l = Layout{Prompt: first, PromptCol: 0, PayloadCol: 1}
	}
	if l.PayloadCol < len(cells) {
		l.Payload = trimTrailing(cells[l.PayloadCol:])
	}

	if !l.Explicit {
		kind, err := infer(l)
		if err != nil {
			return Layout{}, err
		}
		l.Kind = kind
	}
	return l, nil
}

// infer applies the heuristics in priority order.
func infer(l Layout) (question.Kind, error) {
	correct, tagged := 0, false
	for _, c := range l.Payload {
		switch ClassifyTag(c) {
		case TagCorrect:
			correct++
			tagged = true
		case TagIncorrect:
			tagged = true
		}
	}
	switch {
	case tagged && correct > 1:
		return question.KindMultipleAnswer, nil
	case tagged:
		return question.KindMultipleChoice, nil
	}
	if len(l.Payload) == 1 {
		if _, _, ok := TruthValue(l.Payload[0]); ok {
			return question.KindTrueFalse, nil
		}
	}
	if len(l.Payload) == 0 && len([]rune(l.Prompt)) > EssayPromptMin {
		return question.KindEssay, nil
	}
	if HasBlankRun(l.Prompt) {
		return question.KindFillInBlank, nil
	}
	if len(l.Payload) >= 2 {
		return question.KindMultipleChoice, nil
	}
	return "", rowErr(-1, "cannot infer question type")
}

// ParseRow converts one row into a record. It never panics; malformed rows
// come back as a *RowError.
func ParseRow(row Row) (question.Record, error) {
	l, err := Inspect(row)
	if err != nil {
		return nil, err
	}
	return Build(l)
}

// Build turns a resolved layout into a record.
func Build(l Layout) (question.Record, error) {
	switch l.Kind {
	case question.KindMultipleChoice:
		opts, err := options(l)
		if err != nil {
			return nil, err
		}
		return question.MultipleChoice{Prompt: l.Prompt, Options: opts}, nil
	case question.KindMultipleAnswer:
		opts, err := options(l)
		if err != nil {
			return nil, err
		}
		return question.MultipleAnswer{Prompt: l.Prompt, Options: opts}, nil
	case question.KindTrueFalse:
		if len(l.Payload) == 0 || l.Payload[0] == "" {
			return nil, rowErr(l.PayloadCol, "missing true/false value")
		}
		v, _, ok := TruthValue(l.Payload[0])
		if !ok {
			return nil, rowErr(l.PayloadCol, "invalid true/false value %q", l.Payload[0])
		}
		return question.TrueFalse{Prompt: l.Prompt, Answer: v}, nil
	case question.KindFillInBlank:
		var answers []string
		for _, c := range l.Payload {
			if c != "" {
				answers = append(answers, c)
			}
		}
		return question.FillInBlank{Prompt: l.Prompt, AcceptableAnswers: answers}, nil
	case question.KindEssay:
		for i, c := range l.Payload {
			if c != "" {
				return nil, rowErr(l.PayloadCol+i, "essay question carries answers")
			}
		}
		return question.Essay{Prompt: l.Prompt}, nil
	}
	return nil, rowErr(0, "unsupported question kind %q", l.Kind)
}

// options reads the (text, tag) pairs. An option with text needs a
// recognisable tag; it is never defaulted to incorrect.
func options(l Layout) ([]question.Option, error) {
	pairs := l.Pairs()
	out := make([]question.Option, 0, len(pairs))
	for _, p := range pairs {
		tag := ClassifyTag(p.Tag)
		if p.Text != "" {
			switch tag {
			case TagMissing:
				return nil, rowErr(p.TagCol, "option %q has no correct/incorrect tag", p.Text)
			case TagInvalid:
				return nil, rowErr(p.TagCol, "option %q has invalid tag %q, want correct or incorrect", p.Text, p.Tag)
			}
		}
		out = append(out, question.Option{Text: p.Text, Correct: tag == TagCorrect})
	}
	return out, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}

func trimTrailing(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}
