package question

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire shape of a Record in JSON and YAML.
type Envelope struct {
	Type              Kind     `json:"type" yaml:"type"`
	Prompt            string   `json:"prompt" yaml:"prompt"`
	Options           []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Answer            *bool    `json:"answer,omitempty" yaml:"answer,omitempty"`
	AcceptableAnswers []string `json:"acceptable_answers,omitempty" yaml:"acceptable_answers,omitempty"`
}

// Wrap converts a record into its envelope.
func Wrap(r Record) (Envelope, error) {
	switch q := r.(type) {
	case MultipleChoice:
		return Envelope{Type: KindMultipleChoice, Prompt: q.Prompt, Options: cloneOptions(q.Options)}, nil
	case MultipleAnswer:
		return Envelope{Type: KindMultipleAnswer, Prompt: q.Prompt, Options: cloneOptions(q.Options)}, nil
	case TrueFalse:
		ans := q.Answer
		return Envelope{Type: KindTrueFalse, Prompt: q.Prompt, Answer: &ans}, nil
	case FillInBlank:
		return Envelope{Type: KindFillInBlank, Prompt: q.Prompt, AcceptableAnswers: append([]string(nil), q.AcceptableAnswers...)}, nil
	case Essay:
		return Envelope{Type: KindEssay, Prompt: q.Prompt}, nil
	default:
		return Envelope{}, &UnsupportedRecordError{Record: r}
	}
}

// Unwrap converts an envelope back into a record.
func (e Envelope) Unwrap() (Record, error) {
	switch e.Type {
	case KindMultipleChoice:
		return MultipleChoice{Prompt: e.Prompt, Options: cloneOptions(e.Options)}, nil
	case KindMultipleAnswer:
		return MultipleAnswer{Prompt: e.Prompt, Options: cloneOptions(e.Options)}, nil
	case KindTrueFalse:
		if e.Answer == nil {
			return nil, fmt.Errorf("true/false question %q has no answer", e.Prompt)
		}
		return TrueFalse{Prompt: e.Prompt, Answer: *e.Answer}, nil
	case KindFillInBlank:
		return FillInBlank{Prompt: e.Prompt, AcceptableAnswers: append([]string(nil), e.AcceptableAnswers...)}, nil
	case KindEssay:
		return Essay{Prompt: e.Prompt}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", e.Type)
}

// WrapAll converts a slice of records, stopping at the first failure.
func WrapAll(rs []Record) ([]Envelope, error) {
	out := make([]Envelope, 0, len(rs))
	for i, r := range rs {
		e, err := Wrap(r)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// UnwrapAll is the inverse of WrapAll.
func UnwrapAll(es []Envelope) ([]Record, error) {
	out := make([]Record, 0, len(es))
	for i, e := range es {
		r, err := e.Unwrap()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// MarshalRecords encodes records as a JSON array of envelopes.
func MarshalRecords(rs []Record) ([]byte, error) {
	es, err := WrapAll(rs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(es)
}

// UnmarshalRecords decodes a JSON array of envelopes.
func UnmarshalRecords(data []byte) ([]Record, error) {
	var es []Envelope
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, err
	}
	return UnwrapAll(es)
}

type documentJSON struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Envelope `json:"questions"`
}

func (d QuizDocument) MarshalJSON() ([]byte, error) {
	es, err := WrapAll(d.Questions)
	if err != nil {
		return nil, err
	}
	return json.Marshal(documentJSON{ID: d.ID, Title: d.Title, Description: d.Description, Questions: es})
}

func (d *QuizDocument) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	qs, err := UnwrapAll(raw.Questions)
	if err != nil {
		return err
	}
	*d = QuizDocument{ID: raw.ID, Title: raw.Title, Description: raw.Description, Questions: qs}
	return nil
}

func cloneOptions(in []Option) []Option {
	if in == nil {
		return nil
	}
	return append([]Option(nil), in...)
}
