// Package validate checks rows, records and documents and reports
// diagnostics. Every function here is pure: same input, same output.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/question"
)

const noPos = -1

type collector struct {
	row   int
	diags []question.Diagnostic
}

func (c *collector) add(sev question.Severity, col int, field, format string, args ...any) {
	c.diags = append(c.diags, question.Diagnostic{
		Severity: sev,
		Row:      c.row,
		Column:   col,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *collector) errorf(col int, field, format string, args ...any) {
	c.add(question.SeverityError, col, field, format, args...)
}

func (c *collector) warnf(col int, field, format string, args ...any) {
	c.add(question.SeverityWarning, col, field, format, args...)
}

// Record checks the invariants of a single record.
func Record(r question.Record) []question.Diagnostic {
	c := &collector{row: noPos}
	checkRecord(c, r, nil)
	return c.diags
}

// cols maps record fields back to row columns when the record came from a
// row; nil means column positions are unknown.
type cols struct {
	prompt  int
	options []int
	answers []int
}

func (m *cols) promptCol() int {
	if m == nil {
		return noPos
	}
	return m.prompt
}

func (m *cols) optionCol(i int) int {
	if m == nil || i >= len(m.options) {
		return noPos
	}
	return m.options[i]
}

func (m *cols) answerCol(i int) int {
	if m == nil || i >= len(m.answers) {
		return noPos
	}
	return m.answers[i]
}

// padded reports text with leading or trailing whitespace, which does not
// survive a trip through a package.
func padded(s string) bool {
	return s != strings.TrimSpace(s)
}

func checkRecord(c *collector, r question.Record, m *cols) {
	switch p := r.PromptText(); {
	case strings.TrimSpace(p) == "":
		c.errorf(m.promptCol(), "prompt", "prompt is required")
	case padded(p):
		c.errorf(m.promptCol(), "prompt", "prompt has leading or trailing whitespace")
	}
	switch q := r.(type) {
	case question.MultipleChoice:
		checkOptions(c, q.Options, m)
		if n := question.CorrectCount(q.Options); n != 1 {
			c.errorf(noPos, "options", "multiple choice needs exactly 1 correct option, found %d", n)
		}
	case question.MultipleAnswer:
		checkOptions(c, q.Options, m)
		if question.CorrectCount(q.Options) < 1 {
			c.errorf(noPos, "options", "multiple answer needs at least 1 correct option")
		}
	case question.TrueFalse:
		// the answer is a bool by construction
	case question.FillInBlank:
		if len(q.AcceptableAnswers) == 0 {
			c.errorf(noPos, "acceptable_answers", "fill in the blank needs at least 1 acceptable answer")
		}
		for i, a := range q.AcceptableAnswers {
			switch {
			case strings.TrimSpace(a) == "":
				c.errorf(m.answerCol(i), fmt.Sprintf("acceptable_answers[%d]", i), "acceptable answer is empty")
			case padded(a):
				c.errorf(m.answerCol(i), fmt.Sprintf("acceptable_answers[%d]", i), "acceptable answer %q has leading or trailing whitespace", a)
			}
		}
	case question.Essay:
	default:
		c.errorf(noPos, "type", "%v", &question.UnsupportedRecordError{Record: r})
	}
}

func checkOptions(c *collector, opts []question.Option, m *cols) {
	if len(opts) < 2 {
		c.errorf(noPos, "options", "needs at least 2 options, found %d", len(opts))
	}
	for i, o := range opts {
		switch {
		case strings.TrimSpace(o.Text) == "":
			c.errorf(m.optionCol(i), fmt.Sprintf("options[%d].text", i), "option text is empty")
		case padded(o.Text):
			c.errorf(m.optionCol(i), fmt.Sprintf("options[%d].text", i), "option %q has leading or trailing whitespace", o.Text)
		}
	}
}

// Row checks a raw row: the tag cell, option tags and the true/false cell,
// then the invariants of the record it ingests to.
func Row(index int, row ingest.Row) []question.Diagnostic {
	c := &collector{row: index}
	checkRow(c, row)
	return c.diags
}

func checkRow(c *collector, row ingest.Row) {
	l, err := ingest.Inspect(row)
	if errors.Is(err, ingest.ErrBlankRow) {
		return
	}
	if err != nil {
		var re *ingest.RowError
		col := noPos
		if errors.As(err, &re) {
			col = re.Column
		}
		field := "row"
		if col == 0 {
			field = "type"
		}
		c.errorf(col, field, "%s", err.Error())
		return
	}

	m := &cols{prompt: l.PromptCol}
	switch l.Kind {
	case question.KindMultipleChoice, question.KindMultipleAnswer:
		badTags := false
		for i, p := range l.Pairs() {
			m.options = append(m.options, p.TextCol)
			if p.Text == "" {
				continue
			}
			switch ingest.ClassifyTag(p.Tag) {
			case ingest.TagMissing:
				badTags = true
				c.errorf(p.TagCol, fmt.Sprintf("options[%d].tag", i), "option %q has no correct/incorrect tag", p.Text)
			case ingest.TagInvalid:
				badTags = true
				c.errorf(p.TagCol, fmt.Sprintf("options[%d].tag", i), "option %q has invalid tag %q, want correct or incorrect", p.Text, p.Tag)
			}
		}
		// the row is not ingested, so record rules do not apply
		if badTags {
			if l.Prompt == "" {
				c.errorf(l.PromptCol, "prompt", "prompt is required")
			}
			return
		}
	case question.KindTrueFalse:
		col := l.PayloadCol
		if len(l.Payload) == 0 || l.Payload[0] == "" {
			c.errorf(col, "answer", "missing true/false value")
			return
		}
		_, literal, ok := ingest.TruthValue(l.Payload[0])
		if !ok {
			c.errorf(col, "answer", "invalid true/false value %q", l.Payload[0])
			return
		}
		if !literal {
			c.warnf(col, "answer", "true/false value %q coerced; prefer true or false", l.Payload[0])
		}
	case question.KindFillInBlank:
		for i, a := range l.Payload {
			if a != "" {
				m.answers = append(m.answers, l.PayloadCol+i)
			}
		}
	case question.KindEssay:
	}

	rec, err := ingest.Build(l)
	if err != nil {
		var re *ingest.RowError
		col := noPos
		if errors.As(err, &re) {
			col = re.Column
		}
		c.errorf(col, "row", "%s", err.Error())
		return
	}
	checkRecord(c, rec, m)
}

// Rows validates each row with its index.
func Rows(rows []ingest.Row) []question.Diagnostic {
	var out []question.Diagnostic
	for i, r := range rows {
		if i == 0 && ingest.IsHeader(r) {
			continue
		}
		out = append(out, Row(i, r)...)
	}
	return out
}

// Document validates every question of a document plus the document itself.
// Row in the diagnostics is the question index.
func Document(doc question.QuizDocument) []question.Diagnostic {
	c := &collector{row: noPos}
	if strings.TrimSpace(doc.Title) == "" {
		c.warnf(noPos, "title", "quiz title is empty")
	}
	if len(doc.Questions) == 0 {
		c.errorf(noPos, "questions", "quiz has no questions")
	}
	for i, q := range doc.Questions {
		c.row = i
		checkRecord(c, q, nil)
	}
	return c.diags
}

// HasBlocking reports whether any diagnostic is an error.
func HasBlocking(diags []question.Diagnostic) bool {
	for _, d := range diags {
		if d.Blocking() {
			return true
		}
	}
	return false
}

// Errors filters the blocking diagnostics.
func Errors(diags []question.Diagnostic) []question.Diagnostic {
	var out []question.Diagnostic
	for _, d := range diags {
		if d.Blocking() {
			out = append(out, d)
		}
	}
	return out
}
