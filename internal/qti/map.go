package qti

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mind-engage/quizport/internal/qti/parser"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/validate"
)

const defaultTitle = "Imported Quiz"

// ToDocument turns a decoded package into a quiz document ready for the
// bank. Decoder warnings come back as warning diagnostics next to whatever
// the validator says about the rebuilt records. name is the uploaded file
// name and only matters when the package has no title.
func ToDocument(d parser.Decoded, name string) (question.QuizDocument, []question.Diagnostic) {
	doc := d.Document()
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		doc.Title = titleFromName(name)
	}
	doc.ID = SlugID(doc.Title, "quiz")

	diags := make([]question.Diagnostic, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		diags = append(diags, question.Diagnostic{
			Severity: question.SeverityWarning,
			Row:      w.Item,
			Column:   -1,
			Field:    "item",
			Message:  w.Message,
		})
	}
	return doc, append(diags, validate.Document(doc)...)
}

func titleFromName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == "/" {
		return defaultTitle
	}
	if t := strings.TrimSuffix(base, filepath.Ext(base)); t != "" {
		return t
	}
	return defaultTitle
}

// SlugID derives a readable identifier from a title.
func SlugID(title, prefix string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, t)
	t = strings.Trim(t, "-")
	for strings.Contains(t, "--") {
		t = strings.ReplaceAll(t, "--", "-")
	}
	if t == "" {
		t = "untitled"
	}
	return fmt.Sprintf("%s-%s", prefix, t)
}
