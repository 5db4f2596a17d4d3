package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mind-engage/quizport/internal/question"
)

var ErrNotQTI = errors.New("not a QTI questestinterop document")

// Decoded is the result of reading a questions document. Records keep
// document order; items that could not be rebuilt are left out and noted
// in Warnings.
type Decoded struct {
	QuizID      string            `json:"quiz_id,omitempty" yaml:"quiz_id,omitempty"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Records     []question.Record `json:"-" yaml:"-"`
	Warnings    []Warning         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Document returns the decoded records as a quiz document.
func (d Decoded) Document() question.QuizDocument {
	return question.QuizDocument{
		ID:          d.QuizID,
		Title:       d.Title,
		Description: d.Description,
		Questions:   d.Records,
	}
}

// DecodeQuestions streams a questions.xml document item by item. A syntax
// error part way through ends the read with a warning; the items before it
// are kept.
func DecodeQuestions(r io.Reader) (Decoded, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	var out Decoded
	rootSeen := false
	index := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !rootSeen {
				return Decoded{}, fmt.Errorf("%w: %v", ErrNotQTI, err)
			}
			out.Warnings = append(out.Warnings, Warning{Item: index, Message: fmt.Sprintf("document truncated: %v", err)})
			break
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := strings.ToLower(start.Name.Local)
		if !rootSeen {
			if name != "questestinterop" {
				return Decoded{}, fmt.Errorf("%w: root element <%s>", ErrNotQTI, start.Name.Local)
			}
			rootSeen = true
			continue
		}
		switch name {
		case "assessment":
			for _, a := range start.Attr {
				switch a.Name.Local {
				case "ident":
					out.QuizID = a.Value
				case "title":
					out.Title = a.Value
				}
			}
		case "item":
			var it xmlItem
			if err := dec.DecodeElement(&it, &start); err != nil {
				out.Warnings = append(out.Warnings, Warning{Item: index, Message: fmt.Sprintf("document truncated: %v", err)})
				return out, nil
			}
			rec, warns, err := decodeItem(index, it)
			out.Warnings = append(out.Warnings, warns...)
			if err != nil {
				out.Warnings = append(out.Warnings, Warning{Item: index, Ident: it.Ident, Message: "skipped: " + err.Error()})
			} else {
				out.Records = append(out.Records, rec)
			}
			index++
		}
	}
	if !rootSeen {
		return Decoded{}, fmt.Errorf("%w: empty document", ErrNotQTI)
	}
	return out, nil
}

// DecodeQuestionsBytes is DecodeQuestions over an in-memory document.
func DecodeQuestionsBytes(b []byte) (Decoded, error) {
	return DecodeQuestions(bytes.NewReader(b))
}
