package bank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/quizport/internal/question"
)

var ErrNotFound = errors.New("quiz not found")

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Summary is a list entry; it never carries the questions.
type Summary struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

type ListOpts struct {
	Q      string
	Limit  int
	Offset int
}

// ExportRecord is one row of the export log.
type ExportRecord struct {
	ID         int64  `json:"id"`
	QuizID     string `json:"quiz_id"`
	PackageID  string `json:"package_id"`
	BlobKey    string `json:"blob_key"`
	Actor      string `json:"actor,omitempty"`
	FIBVariant string `json:"fib_variant,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

type Store interface {
	Put(ctx context.Context, doc question.QuizDocument) error
	Get(ctx context.Context, id string) (question.QuizDocument, error)
	List(ctx context.Context, opts ListOpts) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	RecordExport(ctx context.Context, rec ExportRecord) error
	Exports(ctx context.Context, quizID string) ([]ExportRecord, error)
}

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Put(ctx context.Context, doc question.QuizDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("quiz id is required")
	}
	qj, err := question.MarshalRecords(doc.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	ts := s.now().Unix()
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes (id,title,description,question_count,questions_json,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, description=EXCLUDED.description,
			question_count=EXCLUDED.question_count, questions_json=EXCLUDED.questions_json, updated_at=EXCLUDED.updated_at`,
		doc.ID, doc.Title, doc.Description, len(doc.Questions), string(qj), ts, ts)
	if err != nil {
		return fmt.Errorf("put quiz %s: %w", doc.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (question.QuizDocument, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,description,questions_json FROM quizzes WHERE id=$1`, id)
	var d question.QuizDocument
	var qjson string
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &qjson); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return question.QuizDocument{}, ErrNotFound
		}
		return question.QuizDocument{}, err
	}
	qs, err := question.UnmarshalRecords([]byte(qjson))
	if err != nil {
		return question.QuizDocument{}, fmt.Errorf("decode questions of %s: %w", id, err)
	}
	d.Questions = qs
	return d, nil
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	q := `SELECT id,title,description,question_count,created_at,updated_at FROM quizzes`
	args := []any{}
	if t := strings.TrimSpace(opts.Q); t != "" {
		q += ` WHERE LOWER(title) LIKE $1`
		args = append(args, "%"+strings.ToLower(t)+"%")
	}
	q += fmt.Sprintf(` ORDER BY updated_at DESC, id LIMIT %d OFFSET %d`, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Description, &sm.QuestionCount, &sm.CreatedAt, &sm.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Delete removes a quiz and its export log in one transaction.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM export_log WHERE quiz_id=$1`, id); err != nil {
		return fmt.Errorf("delete exports of %s: %w", id, err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// --- export log ---

// RecordExport appends to the export log of an existing quiz.
func (s *SQLStore) RecordExport(ctx context.Context, rec ExportRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, rec.QuizID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO export_log (quiz_id, package_id, blob_key, actor, fib_variant, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		rec.QuizID, rec.PackageID, rec.BlobKey, rec.Actor, rec.FIBVariant, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record export of %s: %w", rec.QuizID, err)
	}
	return tx.Commit()
}

func (s *SQLStore) Exports(ctx context.Context, quizID string) ([]ExportRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,quiz_id,package_id,blob_key,actor,fib_variant,created_at FROM export_log
		 WHERE quiz_id=$1 ORDER BY id DESC`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ExportRecord{}
	for rows.Next() {
		var r ExportRecord
		if err := rows.Scan(&r.ID, &r.QuizID, &r.PackageID, &r.BlobKey, &r.Actor, &r.FIBVariant, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
