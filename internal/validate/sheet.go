package validate

import (
	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/question"
)

// Sheet ingests rows and reports on them. A row that cannot be ingested is
// left out of the batch, never repaired: it shows up with its own errors and
// a "skipped" warning. Whether the kept records may be exported is decided
// by Document.
func Sheet(rows []ingest.Row) (ingest.Batch, []question.Diagnostic, error) {
	batch, err := ingest.ParseRows(rows)
	if err != nil {
		return ingest.Batch{}, nil, err
	}
	diags := append(Rows(rows), batch.Warnings()...)
	return batch, diags, nil
}
