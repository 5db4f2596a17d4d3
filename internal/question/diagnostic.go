package question

import "fmt"

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is one validation finding. Row and Column are zero-based and
// -1 when they do not apply.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Row      int      `json:"row"`
	Column   int      `json:"column"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) Blocking() bool { return d.Severity == SeverityError }

func (d Diagnostic) String() string {
	loc := ""
	switch {
	case d.Row >= 0 && d.Column >= 0:
		loc = fmt.Sprintf("row %d, col %d: ", d.Row+1, d.Column+1)
	case d.Row >= 0:
		loc = fmt.Sprintf("row %d: ", d.Row+1)
	}
	if d.Field != "" {
		return fmt.Sprintf("%s: %s%s: %s", d.Severity, loc, d.Field, d.Message)
	}
	return fmt.Sprintf("%s: %s%s", d.Severity, loc, d.Message)
}
