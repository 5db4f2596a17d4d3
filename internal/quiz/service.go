package quiz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mind-engage/quizport/internal/bank"
	"github.com/mind-engage/quizport/internal/ids"
	"github.com/mind-engage/quizport/internal/ingest"
	"github.com/mind-engage/quizport/internal/qti"
	"github.com/mind-engage/quizport/internal/qti/export"
	"github.com/mind-engage/quizport/internal/qti/parser"
	"github.com/mind-engage/quizport/internal/question"
	"github.com/mind-engage/quizport/internal/storage"
	"github.com/mind-engage/quizport/internal/validate"
)

var ErrEmptyPackage = errors.New("empty package")

// Service ties the row pipeline, the bank and the package store together.
type Service struct {
	store  bank.Store
	blobs  storage.BlobStore
	ids    ids.Factory
	docIDs ids.Source
	opts   export.Options
	log    *zap.Logger
}

// Deps wires a Service. IDs makes a fresh source for every package build;
// DocIDs names stored quizzes and lives as long as the service.
type Deps struct {
	Store  bank.Store
	Blobs  storage.BlobStore
	IDs    ids.Factory
	DocIDs ids.Source
	Export export.Options
	Logger *zap.Logger
}

func NewService(d Deps) *Service {
	if d.IDs == nil {
		d.IDs = ids.NewUUID
	}
	if d.DocIDs == nil {
		d.DocIDs = ids.NewULID()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Service{store: d.Store, blobs: d.Blobs, ids: d.IDs, docIDs: d.DocIDs, opts: d.Export, log: d.Logger}
}

// RowReport is the stateless result of checking a sheet.
type RowReport struct {
	Diagnostics []question.Diagnostic `json:"diagnostics"`
	Records     []question.Envelope   `json:"records"`
	Skipped     []ingest.Skipped      `json:"skipped"`
}

// ValidateRows ingests and validates rows without storing anything.
func (s *Service) ValidateRows(rows []ingest.Row) (RowReport, error) {
	batch, diags, err := validate.Sheet(rows)
	if err != nil {
		return RowReport{}, err
	}
	envs, err := question.WrapAll(batch.Records())
	if err != nil {
		return RowReport{}, err
	}
	return RowReport{
		Diagnostics: nonNil(diags),
		Records:     envs,
		Skipped:     nonNilSkipped(batch.Skipped),
	}, nil
}

type CreateInput struct {
	Title       string
	Description string
	Rows        []ingest.Row
}

type CreateResult struct {
	ID          string                `json:"id"`
	Questions   int                   `json:"questions"`
	Diagnostics []question.Diagnostic `json:"diagnostics"`
	Skipped     []ingest.Skipped      `json:"skipped"`
}

// Create stores the rows that could be ingested. Rows that could not are
// reported and left out. Documents with validation errors are kept so they
// can be inspected; Export refuses them.
func (s *Service) Create(ctx context.Context, in CreateInput) (CreateResult, error) {
	batch, diags, err := validate.Sheet(in.Rows)
	if err != nil {
		return CreateResult{}, err
	}
	doc := question.QuizDocument{
		ID:          s.docIDs.Next(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Questions:   batch.Records(),
	}
	if err := s.store.Put(ctx, doc); err != nil {
		return CreateResult{}, err
	}

	for _, d := range validate.Document(doc) {
		if d.Row < 0 {
			diags = append(diags, d)
		}
	}
	for _, sk := range batch.Skipped {
		s.log.Info("row skipped", zap.String("quiz_id", doc.ID), zap.Int("row", sk.Row), zap.Int("column", sk.Column), zap.String("reason", sk.Reason))
	}
	s.log.Info("quiz stored",
		zap.String("quiz_id", doc.ID),
		zap.Int("questions", len(doc.Questions)),
		zap.Int("skipped", len(batch.Skipped)),
		zap.Int("errors", len(validate.Errors(diags))),
	)
	return CreateResult{
		ID:          doc.ID,
		Questions:   len(doc.Questions),
		Diagnostics: nonNil(diags),
		Skipped:     nonNilSkipped(batch.Skipped),
	}, nil
}

type ImportResult struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Questions   int                   `json:"questions"`
	Diagnostics []question.Diagnostic `json:"diagnostics"`
}

// Import decodes a QTI package (zip or bare questions.xml) into the bank.
func (s *Service) Import(ctx context.Context, data []byte, name string) (ImportResult, error) {
	decoded, err := s.Preview(data)
	if err != nil {
		return ImportResult{}, err
	}
	doc, diags := qti.ToDocument(decoded, name)
	doc.ID = doc.ID + "-" + shortID(s.docIDs.Next())
	if err := s.store.Put(ctx, doc); err != nil {
		return ImportResult{}, err
	}
	s.log.Info("package imported",
		zap.String("quiz_id", doc.ID),
		zap.String("file", name),
		zap.Int("questions", len(doc.Questions)),
		zap.Int("warnings", len(decoded.Warnings)),
	)
	return ImportResult{ID: doc.ID, Title: doc.Title, Questions: len(doc.Questions), Diagnostics: nonNil(diags)}, nil
}

// Preview decodes a package without storing it.
func (s *Service) Preview(data []byte) (parser.Decoded, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return parser.Decoded{}, ErrEmptyPackage
	}
	return parser.Open(data)
}

func (s *Service) Get(ctx context.Context, id string) (question.QuizDocument, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, opts bank.ListOpts) ([]bank.Summary, error) {
	return s.store.List(ctx, opts)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("quiz deleted", zap.String("quiz_id", id))
	return nil
}

// Diagnostics re-validates a stored document.
func (s *Service) Diagnostics(ctx context.Context, id string) ([]question.Diagnostic, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nonNil(validate.Document(doc)), nil
}

type ExportRequest struct {
	QuizID string
	Actor  string
	// FIBVariant overrides the configured variant when set.
	FIBVariant export.FIBVariant
}

type ExportResult struct {
	Package export.Package
	Zip     []byte
	BlobKey string
}

// Export builds a package for a stored quiz, keeps a copy in the blob store
// and logs it. A document with validation errors yields *export.BlockedError.
func (s *Service) Export(ctx context.Context, req ExportRequest) (ExportResult, error) {
	doc, err := s.store.Get(ctx, req.QuizID)
	if err != nil {
		return ExportResult{}, err
	}
	opts := s.opts
	if req.FIBVariant != "" {
		opts.FIBVariant = req.FIBVariant
	}
	pkg, err := export.Build(doc, s.ids(), opts)
	if err != nil {
		var blocked *export.BlockedError
		if errors.As(err, &blocked) {
			s.log.Warn("export blocked",
				zap.String("quiz_id", doc.ID),
				zap.Int("errors", len(validate.Errors(blocked.Diagnostics))),
			)
		}
		return ExportResult{}, err
	}
	zipped, err := export.Zip(pkg)
	if err != nil {
		return ExportResult{}, fmt.Errorf("zip package: %w", err)
	}

	key, err := s.blobs.Put(ctx, storage.PackageKey(doc.ID, pkg.QuizID), bytes.NewReader(zipped))
	if err != nil {
		return ExportResult{}, fmt.Errorf("store package: %w", err)
	}
	if err := s.store.RecordExport(ctx, bank.ExportRecord{
		QuizID:     doc.ID,
		PackageID:  pkg.QuizID,
		BlobKey:    key,
		Actor:      req.Actor,
		FIBVariant: string(opts.FIBVariant),
	}); err != nil {
		return ExportResult{}, err
	}
	s.log.Info("package exported",
		zap.String("quiz_id", doc.ID),
		zap.String("package_id", pkg.QuizID),
		zap.String("blob_key", key),
		zap.String("actor", req.Actor),
		zap.Int("bytes", len(zipped)),
	)
	return ExportResult{Package: pkg, Zip: zipped, BlobKey: key}, nil
}

func (s *Service) Exports(ctx context.Context, id string) ([]bank.ExportRecord, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Exports(ctx, id)
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "g")
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

func nonNil(d []question.Diagnostic) []question.Diagnostic {
	if d == nil {
		return []question.Diagnostic{}
	}
	return d
}

func nonNilSkipped(s []ingest.Skipped) []ingest.Skipped {
	if s == nil {
		return []ingest.Skipped{}
	}
	return s
}
