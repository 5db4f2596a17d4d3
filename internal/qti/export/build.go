package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/validate"
)

// QTI question_type values.
const (
	TypeMultipleChoice  = "multiple_choice_question"
	TypeMultipleAnswers = "multiple_answers_question"
	TypeTrueFalse       = "true_false_question"
	TypeShortAnswer     = "short_answer_question"
	TypeMultipleBlanks  = "fill_in_multiple_blanks_question"
	TypeEssay           = "essay_question"
)

// FIBVariant picks how fill-in-the-blank questions are written. The choice
// is made per call and applies to every FIB question of the build.
type FIBVariant string

const (
	FIBShortAnswer    FIBVariant = "short_answer"
	FIBMultipleBlanks FIBVariant = "multiple_blanks"
)

// Options carries quiz-level policy written to assessment_meta.xml.
type Options struct {
	ScoringPolicy   string
	QuizType        string
	AllowedAttempts int
	ShuffleAnswers  bool
	FIBVariant      FIBVariant
}

func DefaultOptions() Options {
	return Options{
		ScoringPolicy:   "keep_highest",
		QuizType:        "assignment",
		AllowedAttempts: 1,
		FIBVariant:      FIBShortAnswer,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ScoringPolicy == "" {
		o.ScoringPolicy = d.ScoringPolicy
	}
	if o.QuizType == "" {
		o.QuizType = d.QuizType
	}
	if o.AllowedAttempts == 0 {
		o.AllowedAttempts = d.AllowedAttempts
	}
	if o.FIBVariant == "" {
		o.FIBVariant = d.FIBVariant
	}
	return o
}

// BlockedError is returned when a document still has blocking diagnostics.
type BlockedError struct {
	Diagnostics []question.Diagnostic
}

func (e *BlockedError) Error() string {
	errs := validate.Errors(e.Diagnostics)
	if len(errs) == 0 {
		return "export blocked"
	}
	return fmt.Sprintf("export blocked by %d error(s); first: %s", len(errs), errs[0])
}

var ErrIdentifier = errors.New("identifier source")

// QuestionType maps a record to its QTI question_type for the variant.
func QuestionType(r question.Record, fib FIBVariant) (string, error) {
	switch r.(type) {
	case question.MultipleChoice:
		return TypeMultipleChoice, nil
	case question.MultipleAnswer:
		return TypeMultipleAnswers, nil
	case question.TrueFalse:
		return TypeTrueFalse, nil
	case question.FillInBlank:
		if fib == FIBMultipleBlanks {
			return TypeMultipleBlanks, nil
		}
		return TypeShortAnswer, nil
	case question.Essay:
		return TypeEssay, nil
	}
	return "", &question.UnsupportedRecordError{Record: r}
}

// Build encodes a document into the three package artifacts. The document
// is validated first and nothing is produced while errors remain. src must
// be fresh for this call; every identifier in the package comes from it.
func Build(doc question.QuizDocument, src ids.Source, opts Options) (Package, error) {
	if diags := validate.Document(doc); validate.HasBlocking(diags) {
		return Package{}, &BlockedError{Diagnostics: diags}
	}
	b := &builder{src: src, seen: map[string]struct{}{}, opts: opts.withDefaults()}

	quizID, err := b.id()
	if err != nil {
		return Package{}, err
	}
	metaResID, err := b.id()
	if err != nil {
		return Package{}, err
	}
	manifestID, err := b.id()
	if err != nil {
		return Package{}, err
	}

	items := make([]item, 0, len(doc.Questions))
	for i, q := range doc.Questions {
		it, err := b.item(i, q)
		if err != nil {
			return Package{}, fmt.Errorf("question %d: %w", i, err)
		}
		items = append(items, it)
	}

	qti := questestinterop{
		Xmlns:     nsQTI,
		XmlnsXSI:  nsXSI,
		SchemaLoc: nsQTISchema,
		Assessment: assessment{
			Ident: quizID,
			Title: doc.Title,
			Metadata: qtiMetadata{Fields: []metaField{
				{Label: "cc_maxattempts", Entry: fmt.Sprint(b.opts.AllowedAttempts)},
			}},
			Section: section{Ident: "root_section", Items: items},
		},
	}
	questionsXML, err := marshal(qti)
	if err != nil {
		return Package{}, fmt.Errorf("questions.xml: %w", err)
	}

	pkg := Package{QuizID: quizID}
	meta := quizMeta{
		Identifier:      quizID,
		Xmlns:           nsCanvas,
		XmlnsXSI:        nsXSI,
		SchemaLoc:       nsCanvasXSD,
		Title:           doc.Title,
		Description:     doc.Description,
		ShuffleAnswers:  b.opts.ShuffleAnswers,
		ScoringPolicy:   b.opts.ScoringPolicy,
		QuizType:        b.opts.QuizType,
		PointsPossible:  fmt.Sprintf("%d.0", len(doc.Questions)),
		AllowedAttempts: b.opts.AllowedAttempts,
		Available:       true,
		QuestionCount:   len(doc.Questions),
	}
	metaXML, err := marshal(meta)
	if err != nil {
		return Package{}, fmt.Errorf("assessment_meta.xml: %w", err)
	}

	mf := manifest{
		Identifier: manifestID,
		Xmlns:      nsCP,
		XmlnsLOM:   nsLOM,
		XmlnsIMSMD: nsIMSMD,
		XmlnsXSI:   nsXSI,
		SchemaLoc:  nsCPSchema,
		Metadata:   manifestMeta{Schema: "IMS Content", SchemaVersion: "1.1.3"},
		Resources: []resource{
			{
				Identifier:   quizID,
				Type:         resQTI,
				Files:        []file{{Href: pkg.QuestionsPath()}},
				Dependencies: []dependency{{IdentifierRef: metaResID}},
			},
			{
				Identifier: metaResID,
				Type:       resLearnApp,
				Href:       pkg.MetaPath(),
				Files:      []file{{Href: pkg.MetaPath()}},
			},
		},
	}
	manifestXML, err := marshal(mf)
	if err != nil {
		return Package{}, fmt.Errorf("imsmanifest.xml: %w", err)
	}

	pkg.Manifest = manifestXML
	pkg.AssessmentMeta = metaXML
	pkg.Questions = questionsXML
	return pkg, nil
}

func marshal(v any) ([]byte, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}

type builder struct {
	src  ids.Source
	seen map[string]struct{}
	opts Options
}

// id draws the next identifier and refuses empty or repeated values.
func (b *builder) id() (string, error) {
	v := b.src.Next()
	if v == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrIdentifier)
	}
	if _, dup := b.seen[v]; dup {
		return "", fmt.Errorf("%w: identifier %q issued twice", ErrIdentifier, v)
	}
	b.seen[v] = struct{}{}
	return v, nil
}

func (b *builder) ids(n int) ([]string, error) {
	out := make([]string, n)
	for i := range out {
		v, err := b.id()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (b *builder) item(index int, r question.Record) (item, error) {
	qtype, err := QuestionType(r, b.opts.FIBVariant)
	if err != nil {
		return item{}, err
	}
	itemID, err := b.id()
	if err != nil {
		return item{}, err
	}
	bankRef, err := b.id()
	if err != nil {
		return item{}, err
	}
	respID, err := b.id()
	if err != nil {
		return item{}, err
	}

	it := item{
		Ident: itemID,
		Title: fmt.Sprintf("Question %d", index+1),
		Presentation: presentation{
			Material: *text(r.PromptText()),
		},
		Resprocessing: resprocessing{
			Outcomes: outcomes{Decvar: decvar{MaxValue: fullScore, MinValue: "0", VarName: scoreVar, VarType: "Decimal"}},
		},
	}

	var answerIDs []string
	switch q := r.(type) {
	case question.MultipleChoice:
		answerIDs, err = b.choice(&it, respID, cardSingle, q.Options)
		if err != nil {
			return item{}, err
		}
		for i, o := range q.Options {
			if o.Correct {
				it.Resprocessing.Conditions = append(it.Resprocessing.Conditions, fullCredit(varequal(respID, answerIDs[i])))
			}
		}
	case question.MultipleAnswer:
		answerIDs, err = b.choice(&it, respID, cardMultiple, q.Options)
		if err != nil {
			return item{}, err
		}
		terms := make([]condNode, 0, len(q.Options))
		for i, o := range q.Options {
			if o.Correct {
				terms = append(terms, varequal(respID, answerIDs[i]))
			} else {
				terms = append(terms, not(varequal(respID, answerIDs[i])))
			}
		}
		it.Resprocessing.Conditions = []respcondition{fullCredit(and(terms...))}
	case question.TrueFalse:
		opts := []question.Option{{Text: "True", Correct: q.Answer}, {Text: "False", Correct: !q.Answer}}
		answerIDs, err = b.choice(&it, respID, cardSingle, opts)
		if err != nil {
			return item{}, err
		}
		correct := answerIDs[1]
		if q.Answer {
			correct = answerIDs[0]
		}
		it.Resprocessing.Conditions = []respcondition{fullCredit(varequal(respID, correct))}
	case question.FillInBlank:
		if b.opts.FIBVariant == FIBMultipleBlanks {
			answerIDs, err = b.blanks(&it, respID, q.AcceptableAnswers)
			if err != nil {
				return item{}, err
			}
			break
		}
		labelID, err := b.id()
		if err != nil {
			return item{}, err
		}
		it.Presentation.ResponseStr = &responseStr{
			Ident:       respID,
			Cardinality: cardSingle,
			Fib:         renderFib{Labels: []responseLabel{{Ident: labelID, RShuffle: "No"}}},
		}
		for _, a := range q.AcceptableAnswers {
			n := varequal(respID, strings.TrimSpace(a))
			n.Case = "No"
			it.Resprocessing.Conditions = append(it.Resprocessing.Conditions, fullCredit(n))
		}
	case question.Essay:
		labelID, err := b.id()
		if err != nil {
			return item{}, err
		}
		it.Presentation.ResponseStr = &responseStr{
			Ident:       respID,
			Cardinality: cardSingle,
			Fib:         renderFib{Labels: []responseLabel{{Ident: labelID, RShuffle: "No"}}},
		}
	default:
		return item{}, &question.UnsupportedRecordError{Record: r}
	}

	fields := []metaField{
		{Label: "question_type", Entry: qtype},
		{Label: "points_possible", Entry: "1.0"},
	}
	if len(answerIDs) > 0 {
		fields = append(fields, metaField{Label: "original_answer_ids", Entry: strings.Join(answerIDs, ",")})
	}
	fields = append(fields, metaField{Label: "assessment_question_identifierref", Entry: bankRef})
	it.Metadata = qtiMetadata{Fields: fields}
	return it, nil
}

// choice writes a response_lid with one label per option and returns the
// label identifiers in option order.
func (b *builder) choice(it *item, respID, card string, opts []question.Option) ([]string, error) {
	labelIDs, err := b.ids(len(opts))
	if err != nil {
		return nil, err
	}
	labels := make([]responseLabel, len(opts))
	for i, o := range opts {
		labels[i] = responseLabel{Ident: labelIDs[i], Material: text(o.Text)}
	}
	it.Presentation.ResponseLid = &responseLid{
		Ident:       respID,
		Cardinality: card,
		Choice:      renderChoice{Labels: labels},
	}
	return labelIDs, nil
}

// blanks writes the fill_in_multiple_blanks shape: one response_lid for the
// blank, one label per acceptable answer, one condition per label.
func (b *builder) blanks(it *item, respID string, answers []string) ([]string, error) {
	labelIDs, err := b.ids(len(answers))
	if err != nil {
		return nil, err
	}
	labels := make([]responseLabel, len(answers))
	for i, a := range answers {
		labels[i] = responseLabel{Ident: labelIDs[i], Material: text(strings.TrimSpace(a))}
		it.Resprocessing.Conditions = append(it.Resprocessing.Conditions, fullCredit(varequal(respID, labelIDs[i])))
	}
	it.Presentation.ResponseLid = &responseLid{
		Ident:       respID,
		Cardinality: cardSingle,
		Material:    text("blank1"),
		Choice:      renderChoice{Labels: labels},
	}
	return labelIDs, nil
}
