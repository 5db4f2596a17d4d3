package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/question"
)

type readDoc struct {
	Assessment struct {
		Ident string     `xml:"ident,attr"`
		Title string     `xml:"title,attr"`
		Items []readItem `xml:"section>item"`
	} `xml:"assessment"`
}

type readItem struct {
	Ident      string          `xml:"ident,attr"`
	Fields     []metaField     `xml:"itemmetadata>qtimetadata>qtimetadatafield"`
	Prompt     string          `xml:"presentation>material>mattext"`
	Labels     []responseLabel `xml:"presentation>response_lid>render_choice>response_label"`
	Conditions []respcondition `xml:"resprocessing>respcondition"`
}

func (it readItem) field(label string) string {
	for _, f := range it.Fields {
		if f.Label == label {
			return f.Entry
		}
	}
	return ""
}

func (it readItem) labelFor(text string) string {
	for _, l := range it.Labels {
		if l.Material != nil && l.Material.Text.Value == text {
			return l.Ident
		}
	}
	return ""
}

func readQuestions(t *testing.T, p Package) readDoc {
	t.Helper()
	var d readDoc
	require.NoError(t, xml.Unmarshal(p.Questions, &d))
	return d
}

func doc(qs ...question.Record) question.QuizDocument {
	return question.QuizDocument{Title: "Week 1", Description: "Warm up", Questions: qs}
}

func TestBuildMultipleChoiceSingleCondition(t *testing.T) {
	mc := question.MultipleChoice{Prompt: "2+2=?", Options: []question.Option{{Text: "4", Correct: true}, {Text: "5"}}}
	p, err := Build(doc(mc), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)

	d := readQuestions(t, p)
	require.Len(t, d.Assessment.Items, 1)
	it := d.Assessment.Items[0]
	assert.Equal(t, TypeMultipleChoice, it.field("question_type"))
	assert.Equal(t, "2+2=?", it.Prompt)

	require.Len(t, it.Conditions, 1)
	c := it.Conditions[0]
	assert.Equal(t, "Set", c.Setvar.Action)
	assert.Equal(t, "SCORE", c.Setvar.VarName)
	assert.Equal(t, "100", c.Setvar.Value)
	require.Len(t, c.Var.Nodes, 1)
	assert.Equal(t, "varequal", c.Var.Nodes[0].XMLName.Local)
	assert.Equal(t, it.labelFor("4"), c.Var.Nodes[0].Value)
	assert.NotEmpty(t, c.Var.Nodes[0].RespIdent)
}

func TestBuildMultipleAnswerConjunction(t *testing.T) {
	ma := question.MultipleAnswer{Prompt: "Pick two", Options: []question.Option{
		{Text: "A", Correct: true}, {Text: "B", Correct: true}, {Text: "C"},
	}}
	p, err := Build(doc(ma), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)

	it := readQuestions(t, p).Assessment.Items[0]
	assert.Contains(t, string(p.Questions), `rcardinality="Multiple"`)
	require.Len(t, it.Conditions, 1)
	nodes := it.Conditions[0].Var.Nodes
	require.Len(t, nodes, 1)
	conj := nodes[0]
	assert.Equal(t, "and", conj.XMLName.Local)
	require.Len(t, conj.Children, 3)

	assert.Equal(t, "varequal", conj.Children[0].XMLName.Local)
	assert.Equal(t, it.labelFor("A"), conj.Children[0].Value)
	assert.Equal(t, "varequal", conj.Children[1].XMLName.Local)
	assert.Equal(t, it.labelFor("B"), conj.Children[1].Value)
	assert.Equal(t, "not", conj.Children[2].XMLName.Local)
	require.Len(t, conj.Children[2].Children, 1)
	assert.Equal(t, it.labelFor("C"), conj.Children[2].Children[0].Value)
}

func TestBuildTrueFalse(t *testing.T) {
	p, err := Build(doc(question.TrueFalse{Prompt: "Sky is blue", Answer: false}), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)
	it := readQuestions(t, p).Assessment.Items[0]
	require.Len(t, it.Labels, 2)
	require.Len(t, it.Conditions, 1)
	assert.Equal(t, it.labelFor("False"), it.Conditions[0].Var.Nodes[0].Value)
}

func TestBuildFillInBlankVariants(t *testing.T) {
	fib := question.FillInBlank{Prompt: "Capital of France is ___", AcceptableAnswers: []string{"Paris", "paris"}}

	p, err := Build(doc(fib), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)
	it := readQuestions(t, p).Assessment.Items[0]
	assert.Equal(t, TypeShortAnswer, it.field("question_type"))
	require.Len(t, it.Conditions, 2)
	assert.Equal(t, "Paris", it.Conditions[0].Var.Nodes[0].Value)
	assert.Equal(t, "No", it.Conditions[0].Var.Nodes[0].Case)
	assert.Equal(t, "paris", it.Conditions[1].Var.Nodes[0].Value)

	opts := DefaultOptions()
	opts.FIBVariant = FIBMultipleBlanks
	p, err = Build(doc(fib, fib), ids.NewSequence("id"), opts)
	require.NoError(t, err)
	for _, it := range readQuestions(t, p).Assessment.Items {
		assert.Equal(t, TypeMultipleBlanks, it.field("question_type"))
		require.Len(t, it.Labels, 2)
		require.Len(t, it.Conditions, 2)
		assert.Equal(t, it.labelFor("Paris"), it.Conditions[0].Var.Nodes[0].Value)
	}
}

func TestBuildEssayHasNoConditions(t *testing.T) {
	p, err := Build(doc(question.Essay{Prompt: "Discuss."}), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)
	it := readQuestions(t, p).Assessment.Items[0]
	assert.Equal(t, TypeEssay, it.field("question_type"))
	assert.Empty(t, it.Conditions)
	assert.Empty(t, it.field("original_answer_ids"))
}

func TestBuildEscapesMarkup(t *testing.T) {
	mc := question.MultipleChoice{Prompt: `Is a < b & "c"?`, Options: []question.Option{{Text: "<yes>", Correct: true}, {Text: "no"}}}
	p, err := Build(doc(mc), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)

	s := string(p.Questions)
	assert.Contains(t, s, "a &lt; b &amp;")
	assert.Contains(t, s, "&lt;yes&gt;")
	assert.NotContains(t, s, "<yes>")

	it := readQuestions(t, p).Assessment.Items[0]
	assert.Equal(t, `Is a < b & "c"?`, it.Prompt)
}

func TestBuildIdentifiersUnique(t *testing.T) {
	d := doc(
		question.MultipleChoice{Prompt: "q1", Options: []question.Option{{Text: "a", Correct: true}, {Text: "b"}}},
		question.MultipleAnswer{Prompt: "q2", Options: []question.Option{{Text: "a", Correct: true}, {Text: "b"}}},
		question.TrueFalse{Prompt: "q3", Answer: true},
		question.FillInBlank{Prompt: "q4 ___", AcceptableAnswers: []string{"x"}},
		question.Essay{Prompt: "q5"},
	)
	p, err := Build(d, ids.NewUUID(), DefaultOptions())
	require.NoError(t, err)

	rd := readQuestions(t, p)
	seen := map[string]bool{rd.Assessment.Ident: true}
	for _, it := range rd.Assessment.Items {
		for _, id := range []string{it.Ident, it.field("assessment_question_identifierref")} {
			assert.False(t, seen[id], "duplicate %s", id)
			seen[id] = true
		}
		for _, l := range it.Labels {
			assert.False(t, seen[l.Ident], "duplicate %s", l.Ident)
			seen[l.Ident] = true
		}
	}
	assert.Equal(t, p.QuizID, rd.Assessment.Ident)
}

func TestBuildRejectsRepeatedIdentifier(t *testing.T) {
	mc := question.MultipleChoice{Prompt: "q", Options: []question.Option{{Text: "a", Correct: true}, {Text: "b"}}}
	_, err := Build(doc(mc), ids.NewList("a", "b", "c", "d"), DefaultOptions())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdentifier))

	_, err = Build(doc(mc), ids.NewList(), DefaultOptions())
	assert.True(t, errors.Is(err, ErrIdentifier))
}

func TestBuildBlockedByErrors(t *testing.T) {
	bad := question.MultipleChoice{Prompt: "q", Options: []question.Option{{Text: "a", Correct: true}, {Text: "b", Correct: true}}}
	p, err := Build(doc(bad), ids.NewSequence("id"), DefaultOptions())
	var blocked *BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.NotEmpty(t, blocked.Diagnostics)
	assert.Empty(t, p.Questions)
	assert.Contains(t, err.Error(), "export blocked")

	_, err = Build(doc(), ids.NewSequence("id"), DefaultOptions())
	require.ErrorAs(t, err, &blocked)
}

func TestBuildManifestAndMeta(t *testing.T) {
	d := doc(
		question.TrueFalse{Prompt: "q1", Answer: true},
		question.Essay{Prompt: "q2"},
	)
	opts := DefaultOptions()
	opts.AllowedAttempts = 3
	p, err := Build(d, ids.NewSequence("id"), opts)
	require.NoError(t, err)
	assert.Equal(t, "id1", p.QuizID)

	var mf manifest
	require.NoError(t, xml.Unmarshal(p.Manifest, &mf))
	assert.Equal(t, "id3", mf.Identifier)
	require.Len(t, mf.Resources, 2)
	qti, meta := mf.Resources[0], mf.Resources[1]
	assert.Equal(t, resQTI, qti.Type)
	assert.Equal(t, p.QuizID, qti.Identifier)
	require.Len(t, qti.Files, 1)
	assert.Equal(t, "id1/questions.xml", qti.Files[0].Href)
	require.Len(t, qti.Dependencies, 1)
	assert.Equal(t, meta.Identifier, qti.Dependencies[0].IdentifierRef)
	assert.Equal(t, "id1/assessment_meta.xml", meta.Href)

	var qm struct {
		Identifier      string `xml:"identifier,attr"`
		Title           string `xml:"title"`
		Description     string `xml:"description"`
		PointsPossible  string `xml:"points_possible"`
		AllowedAttempts int    `xml:"allowed_attempts"`
	}
	require.NoError(t, xml.Unmarshal(p.AssessmentMeta, &qm))
	assert.Equal(t, p.QuizID, qm.Identifier)
	assert.Equal(t, "Week 1", qm.Title)
	assert.Equal(t, "Warm up", qm.Description)
	assert.Equal(t, "2.0", qm.PointsPossible)
	assert.Equal(t, 3, qm.AllowedAttempts)
	assert.Contains(t, string(p.AssessmentMeta), nsCanvas)
}

func TestBuildDeterministicWithSequence(t *testing.T) {
	d := doc(question.FillInBlank{Prompt: "x ___", AcceptableAnswers: []string{"y"}})
	a, err := Build(d, ids.NewSequence("q"), DefaultOptions())
	require.NoError(t, err)
	b, err := Build(d, ids.NewSequence("q"), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestZip(t *testing.T) {
	p, err := Build(doc(question.Essay{Prompt: "q"}), ids.NewSequence("id"), DefaultOptions())
	require.NoError(t, err)
	b, err := Zip(p)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		assert.True(t, strings.HasPrefix(string(data), "<?xml"), f.Name)
	}
	assert.Equal(t, []string{"imsmanifest.xml", "id1/assessment_meta.xml", "id1/questions.xml"}, names)

	_, err = Zip(Package{})
	assert.Error(t, err)
}
