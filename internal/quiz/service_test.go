package quiz

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/quizport/internal/bank"
	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.FSStore, *observer.ObservedLogs) {
	t.Helper()
	blobs, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	core, logs := observer.New(zapcore.InfoLevel)
	svc := NewService(Deps{
		Store:  bank.NewMemoryStore(),
		Blobs:  blobs,
		IDs:    func() ids.Source { return ids.NewSequence("g") },
		DocIDs: ids.NewSequence("quiz-"),
		Export: export.DefaultOptions(),
		Logger: zap.New(core),
	})
	return svc, blobs, logs
}

var goodRows = []ingest.Row{
	{"Type", "Question", "Answer"},
	{"MC", "2+2=?", "4", "correct", "5", "incorrect"},
	{"TF", "Sky is blue", "true"},
	{"FIB", "Capital of France is ___", "Paris", "paris"},
}

func TestValidateRows(t *testing.T) {
	svc, _, _ := newTestService(t)
	rep, err := svc.ValidateRows([]ingest.Row{
		{"MC", "2+2=?", "4", "correct", "5", "incorrect"},
		{"TF", "X", "maybe"},
		{"ZZ", "What?"},
	})
	require.NoError(t, err)
	assert.Len(t, rep.Records, 1)
	assert.Len(t, rep.Skipped, 2)
	require.NotEmpty(t, rep.Diagnostics)

	var msgs []string
	for _, d := range rep.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	assert.Contains(t, msgs, `invalid true/false value "maybe"`)

	_, err = svc.ValidateRows(nil)
	assert.ErrorIs(t, err, ingest.ErrNoRows)
}

func TestCreateAndExport(t *testing.T) {
	svc, blobs, logs := newTestService(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateInput{Title: " Week 1 ", Rows: goodRows})
	require.NoError(t, err)
	assert.Equal(t, "quiz-1", res.ID)
	assert.Equal(t, 3, res.Questions)
	assert.Empty(t, res.Diagnostics)
	assert.Empty(t, res.Skipped)

	doc, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Week 1", doc.Title)

	out, err := svc.Export(ctx, ExportRequest{QuizID: res.ID, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "g1", out.Package.QuizID)
	assert.Equal(t, "exports/quiz-1/g1.zip", out.BlobKey)

	rc, err := blobs.Get(ctx, out.BlobKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, out.Zip, stored)

	recs, err := svc.Exports(ctx, res.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "admin", recs[0].Actor)
	assert.Equal(t, string(export.FIBShortAnswer), recs[0].FIBVariant)

	assert.Equal(t, 1, logs.FilterMessage("package exported").Len())

	preview, err := svc.Preview(out.Zip)
	require.NoError(t, err)
	assert.Equal(t, doc.Questions, preview.Records)
}

func TestExportVariantOverride(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, CreateInput{Title: "FIB", Rows: goodRows[3:]})
	require.NoError(t, err)

	out, err := svc.Export(ctx, ExportRequest{QuizID: res.ID, FIBVariant: export.FIBMultipleBlanks})
	require.NoError(t, err)
	assert.Contains(t, string(out.Package.Questions), export.TypeMultipleBlanks)
}

func TestExportBlocked(t *testing.T) {
	svc, _, logs := newTestService(t)
	ctx := context.Background()
	res, err := svc.Create(ctx, CreateInput{Title: "Bad", Rows: []ingest.Row{
		{"MC", "Pick", "a", "correct", "b", "correct"},
	}})
	require.NoError(t, err)
	require.NotEmpty(t, res.Diagnostics)

	_, err = svc.Export(ctx, ExportRequest{QuizID: res.ID})
	var blocked *export.BlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 1, logs.FilterMessage("export blocked").Len())

	recs, err := svc.Exports(ctx, res.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCreateSkipsUntaggedOptions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Create(ctx, CreateInput{Title: "Tags", Rows: []ingest.Row{
		{"MC", "Pick", "A", "correct", "B", "wrong"},
		{"MC", "Pick2", "A", "correct", "B"},
		{"TF", "Sky is blue", "true"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Questions)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 0, res.Skipped[0].Row)
	assert.Equal(t, 5, res.Skipped[0].Column)

	var warnings []string
	for _, d := range res.Diagnostics {
		if d.Severity == question.SeverityWarning {
			warnings = append(warnings, d.Message)
		}
	}
	assert.Contains(t, warnings, `skipped: option "B" has invalid tag "wrong", want correct or incorrect`)
	assert.Contains(t, warnings, `skipped: option "B" has no correct/incorrect tag`)

	doc, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, []question.Record{question.TrueFalse{Prompt: "Sky is blue", Answer: true}}, doc.Questions)

	out, err := svc.Export(ctx, ExportRequest{QuizID: res.ID})
	require.NoError(t, err)
	assert.NotContains(t, string(out.Package.Questions), "Pick")

	// nothing left to export once every row is skipped
	res, err = svc.Create(ctx, CreateInput{Title: "Only bad", Rows: []ingest.Row{
		{"MC", "Pick", "A", "correct", "B", "wrong"},
	}})
	require.NoError(t, err)
	assert.Zero(t, res.Questions)
	_, err = svc.Export(ctx, ExportRequest{QuizID: res.ID})
	var blocked *export.BlockedError
	require.ErrorAs(t, err, &blocked)
}

func TestNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Export(ctx, ExportRequest{QuizID: "nope"})
	assert.True(t, errors.Is(err, bank.ErrNotFound))
	_, err = svc.Diagnostics(ctx, "nope")
	assert.True(t, errors.Is(err, bank.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, "nope"), bank.ErrNotFound))
}

func TestImport(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	src := question.QuizDocument{Title: "Imported", Questions: []question.Record{
		question.TrueFalse{Prompt: "Sky is blue", Answer: true},
	}}
	pkg, err := export.Build(src, ids.NewSequence("x"), export.DefaultOptions())
	require.NoError(t, err)
	zipped, err := export.Zip(pkg)
	require.NoError(t, err)

	res, err := svc.Import(ctx, zipped, "upload.zip")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ID, "quiz-imported-"), res.ID)
	assert.Equal(t, 1, res.Questions)
	assert.Empty(t, res.Diagnostics)

	doc, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, src.Questions, doc.Questions)

	_, err = svc.Import(ctx, nil, "empty.zip")
	assert.ErrorIs(t, err, ErrEmptyPackage)
}

func TestListAndDelete(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Title: "Algebra", Rows: goodRows})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Title: "Biology", Rows: goodRows})
	require.NoError(t, err)

	list, err := svc.List(ctx, bank.ListOpts{Q: "alg"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	require.NoError(t, svc.Delete(ctx, a.ID))
	list, err = svc.List(ctx, bank.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
