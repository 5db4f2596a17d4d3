package ingest

import (
	"errors"

	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/textmatch"
)

// Entry is a successfully ingested row.
type Entry struct {
	Row    int
	Cells  Row
	Record question.Record
}

// Skipped records a row that was left out of the batch and why.
type Skipped struct {
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Reason string `json:"reason"`
}

// Batch is the result of ingesting a sheet.
type Batch struct {
	Entries []Entry
	Skipped []Skipped
}

func (b Batch) Records() []question.Record {
	out := make([]question.Record, 0, len(b.Entries))
	for _, e := range b.Entries {
		out = append(out, e.Record)
	}
	return out
}

// Warnings renders skipped rows as warning diagnostics.
func (b Batch) Warnings() []question.Diagnostic {
	out := make([]question.Diagnostic, 0, len(b.Skipped))
	for _, s := range b.Skipped {
		out = append(out, question.Diagnostic{
			Severity: question.SeverityWarning,
			Row:      s.Row,
			Column:   s.Column,
			Field:    "row",
			Message:  "skipped: " + s.Reason,
		})
	}
	return out
}

// ParseRows ingests every row. Malformed rows are skipped, blank rows and a
// leading header row are ignored. Only an empty input is an error.
func ParseRows(rows []Row) (Batch, error) {
	if len(rows) == 0 {
		return Batch{}, ErrNoRows
	}
	var b Batch
	for i, row := range rows {
		if i == 0 && IsHeader(row) {
			continue
		}
		rec, err := ParseRow(row)
		if errors.Is(err, ErrBlankRow) {
			continue
		}
		if err != nil {
			s := Skipped{Row: i, Column: -1, Reason: err.Error()}
			var re *RowError
			if errors.As(err, &re) {
				s.Column = re.Column
			}
			b.Skipped = append(b.Skipped, s)
			continue
		}
		b.Entries = append(b.Entries, Entry{Row: i, Cells: row, Record: rec})
	}
	return b, nil
}

// IsHeader recognises a header row such as "Type, Question, Answer, ...".
func IsHeader(row Row) bool {
	if len(row) == 0 {
		return false
	}
	switch textmatch.Fold(row[0]) {
	case "type", "tag", "question type":
		return true
	}
	return false
}
