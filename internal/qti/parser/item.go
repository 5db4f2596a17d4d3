package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/textmatch"
)

// QTI question_type values this decoder understands.
const (
	typeMultipleChoice  = "multiple_choice_question"
	typeMultipleAnswers = "multiple_answers_question"
	typeTrueFalse       = "true_false_question"
	typeShortAnswer     = "short_answer_question"
	typeMultipleBlanks  = "fill_in_multiple_blanks_question"
	typeEssay           = "essay_question"
)

var ErrMalformedItem = errors.New("malformed item")

// Warning is a recoverable decode problem. Item is the zero-based position
// of the item in the document, or -1 for package-level problems.
type Warning struct {
	Item    int    `json:"item" yaml:"item"`
	Ident   string `json:"ident,omitempty" yaml:"ident,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func (w Warning) String() string {
	if w.Item < 0 {
		return "package: " + w.Message
	}
	if w.Ident != "" {
		return fmt.Sprintf("item %d (%s): %s", w.Item+1, w.Ident, w.Message)
	}
	return fmt.Sprintf("item %d: %s", w.Item+1, w.Message)
}

// DecodeItem rebuilds a record from a single <item> element.
func DecodeItem(data []byte) (question.Record, []Warning, error) {
	var it xmlItem
	if err := xml.Unmarshal(data, &it); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedItem, err)
	}
	return decodeItem(0, it)
}

type itemDecoder struct {
	index    int
	it       xmlItem
	pres     xmlPresentation
	warnings []Warning
}

func (d *itemDecoder) warnf(format string, args ...any) {
	d.warnings = append(d.warnings, Warning{Item: d.index, Ident: d.it.Ident, Message: fmt.Sprintf(format, args...)})
}

func decodeItem(index int, it xmlItem) (question.Record, []Warning, error) {
	d := &itemDecoder{index: index, it: it, pres: it.Presentation.collect()}
	rec, err := d.decode()
	if err != nil {
		return nil, d.warnings, err
	}
	return rec, d.warnings, nil
}

func (d *itemDecoder) questionType() string {
	for _, f := range d.it.Metadata {
		if strings.EqualFold(strings.TrimSpace(f.Label), "question_type") {
			return strings.ToLower(strings.TrimSpace(f.Entry))
		}
	}
	return ""
}

func (d *itemDecoder) decode() (question.Record, error) {
	prompt := materialText(d.pres.Materials)
	ev := d.evaluate()
	qtype := d.questionType()
	if qtype == "" {
		qtype = d.inferType(ev)
		d.warnf("question_type missing; inferred %s", qtype)
	}

	switch qtype {
	case typeMultipleChoice:
		opts, err := d.choiceOptions()
		if err != nil {
			return nil, err
		}
		d.markSingle(opts, ev)
		return question.MultipleChoice{Prompt: prompt, Options: opts}, nil
	case typeMultipleAnswers:
		opts, err := d.choiceOptions()
		if err != nil {
			return nil, err
		}
		d.markMulti(opts, ev)
		return question.MultipleAnswer{Prompt: prompt, Options: opts}, nil
	case typeTrueFalse:
		opts, err := d.choiceOptions()
		if err != nil {
			return nil, err
		}
		d.markSingle(opts, ev)
		for _, o := range opts {
			if !o.Correct {
				continue
			}
			v, _, ok := ingest.TruthValue(o.Text)
			if !ok {
				d.warnf("true/false label %q is not true or false; read as true", o.Text)
				v = true
			}
			return question.TrueFalse{Prompt: prompt, Answer: v}, nil
		}
		return nil, fmt.Errorf("%w: true/false item has no answer", ErrMalformedItem)
	case typeShortAnswer:
		answers := textmatch.DedupeExact(ev.values)
		if len(answers) == 0 {
			d.warnf("no acceptable answers found")
		}
		return question.FillInBlank{Prompt: prompt, AcceptableAnswers: answers}, nil
	case typeMultipleBlanks:
		return question.FillInBlank{Prompt: prompt, AcceptableAnswers: d.blankAnswers(ev)}, nil
	case typeEssay:
		return question.Essay{Prompt: prompt}, nil
	}
	return nil, fmt.Errorf("%w: unsupported question type %q", ErrMalformedItem, qtype)
}

// inferType guesses the question type from the response structure.
func (d *itemDecoder) inferType(ev evaluation) string {
	if len(d.pres.ResponseLids) > 0 {
		r := d.pres.ResponseLids[0]
		if strings.EqualFold(r.Cardinality, "multiple") || len(ev.negative) > 0 {
			return typeMultipleAnswers
		}
		labels := r.labels()
		if len(labels) == 2 {
			a, _, okA := ingest.TruthValue(materialText(labels[0].Materials))
			b, _, okB := ingest.TruthValue(materialText(labels[1].Materials))
			if okA && okB && a != b {
				return typeTrueFalse
			}
		}
		return typeMultipleChoice
	}
	if len(ev.values) > 0 {
		return typeShortAnswer
	}
	return typeEssay
}

func (d *itemDecoder) choiceOptions() ([]question.Option, error) {
	if len(d.pres.ResponseLids) == 0 {
		return nil, fmt.Errorf("%w: choice item has no response_lid", ErrMalformedItem)
	}
	if len(d.pres.ResponseLids) > 1 {
		d.warnf("%d response groups; only the first is read", len(d.pres.ResponseLids))
	}
	labels := d.pres.ResponseLids[0].labels()
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: choice item has no response labels", ErrMalformedItem)
	}
	opts := make([]question.Option, len(labels))
	for i, l := range labels {
		opts[i] = question.Option{Text: materialText(l.Materials)}
	}
	return opts, nil
}

func (d *itemDecoder) labelIdents() []string {
	if len(d.pres.ResponseLids) == 0 {
		return nil
	}
	labels := d.pres.ResponseLids[0].labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = l.Ident
	}
	return out
}

// markSingle flags the one option a scoring condition awards points to, or
// falls back to the first option.
func (d *itemDecoder) markSingle(opts []question.Option, ev evaluation) {
	var hits []int
	for i, id := range d.labelIdents() {
		if ev.positive[id] {
			hits = append(hits, i)
		}
	}
	if len(hits) == 1 {
		opts[hits[0]].Correct = true
		return
	}
	if len(hits) == 0 {
		d.warnf("no scoring condition marks a correct option; first option assumed correct")
	} else {
		d.warnf("%d options are scored as correct; first option assumed correct", len(hits))
	}
	opts[0].Correct = true
}

func (d *itemDecoder) markMulti(opts []question.Option, ev evaluation) {
	found := false
	for i, id := range d.labelIdents() {
		if ev.positive[id] {
			opts[i].Correct = true
			found = true
		}
	}
	if !found {
		d.warnf("no scoring condition marks a correct option; first option assumed correct")
		opts[0].Correct = true
	}
}

func (d *itemDecoder) blankAnswers(ev evaluation) []string {
	if len(d.pres.ResponseLids) > 1 {
		d.warnf("%d blanks flattened into one answer set", len(d.pres.ResponseLids))
	}
	var scored, all []string
	for _, r := range d.pres.ResponseLids {
		for _, l := range r.labels() {
			t := materialText(l.Materials)
			if t == "" {
				continue
			}
			all = append(all, t)
			if ev.positive[l.Ident] {
				scored = append(scored, t)
			}
		}
	}
	if len(scored) == 0 {
		if len(all) > 0 {
			d.warnf("no scoring condition marks a blank answer; all labels accepted")
		} else {
			d.warnf("no acceptable answers found")
		}
		return textmatch.DedupeExact(all)
	}
	return textmatch.DedupeExact(scored)
}

// --- scoring condition evaluation ---

// evaluation is what positive scoring conditions say: which identifiers
// must be selected (positive), which must not (negative), and the raw
// varequal texts in document order.
type evaluation struct {
	positive map[string]bool
	negative map[string]bool
	values   []string
}

func (d *itemDecoder) evaluate() evaluation {
	ev := evaluation{positive: map[string]bool{}, negative: map[string]bool{}}
	for _, rp := range d.it.Resprocessing {
		for _, c := range rp.Conditions {
			if !awardsPoints(c.Setvars) {
				continue
			}
			for _, n := range c.Var.Children {
				d.walk(n, false, &ev)
			}
		}
	}
	return ev
}

func (d *itemDecoder) walk(n xmlNode, negated bool, ev *evaluation) {
	switch strings.ToLower(n.XMLName.Local) {
	case "varequal":
		v := strings.TrimSpace(n.Value)
		if negated {
			ev.negative[v] = true
			return
		}
		ev.positive[v] = true
		ev.values = append(ev.values, v)
	case "not":
		for _, c := range n.Children {
			d.walk(c, !negated, ev)
		}
	case "and":
		for _, c := range n.Children {
			d.walk(c, negated, ev)
		}
	case "other":
	default:
		d.warnf("unsupported scoring construct <%s> ignored", n.XMLName.Local)
	}
}

// awardsPoints reports whether a condition sets or adds a positive score.
func awardsPoints(vs []xmlSetvar) bool {
	for _, v := range vs {
		switch strings.ToLower(strings.TrimSpace(v.Action)) {
		case "", "set", "add":
		default:
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
		if err == nil && f > 0 {
			return true
		}
	}
	return false
}
