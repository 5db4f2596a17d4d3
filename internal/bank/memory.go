package bank

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mind-engage/quizport/internal/question"
)

type memoryStore struct {
	mu      sync.RWMutex
	quizzes map[string]memQuiz
	exports []ExportRecord
	seq     int64
}

type memQuiz struct {
	doc       question.QuizDocument
	createdAt int64
	updatedAt int64
}

// NewMemoryStore returns a Store kept in process memory.
func NewMemoryStore() Store {
	return &memoryStore{quizzes: map[string]memQuiz{}}
}

func (m *memoryStore) Put(_ context.Context, doc question.QuizDocument) error {
	if strings.TrimSpace(doc.ID) == "" {
		return errors.New("quiz id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UnixNano()
	q, ok := m.quizzes[doc.ID]
	if !ok {
		q.createdAt = now
	}
	doc.Questions = append([]question.Record(nil), doc.Questions...)
	q.doc = doc
	q.updatedAt = now
	m.quizzes[doc.ID] = q
	return nil
}

func (m *memoryStore) Get(_ context.Context, id string) (question.QuizDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quizzes[id]
	if !ok {
		return question.QuizDocument{}, ErrNotFound
	}
	d := q.doc
	d.Questions = append([]question.Record(nil), d.Questions...)
	return d, nil
}

func (m *memoryStore) List(_ context.Context, opts ListOpts) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(opts.Q))
	all := make([]memQuiz, 0, len(m.quizzes))
	for _, q := range m.quizzes {
		if needle != "" && !strings.Contains(strings.ToLower(q.doc.Title), needle) {
			continue
		}
		all = append(all, q)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].updatedAt != all[j].updatedAt {
			return all[i].updatedAt > all[j].updatedAt
		}
		return all[i].doc.ID < all[j].doc.ID
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	start := min(max(opts.Offset, 0), len(all))
	end := min(start+limit, len(all))

	out := make([]Summary, 0, end-start)
	for _, q := range all[start:end] {
		out = append(out, Summary{
			ID:            q.doc.ID,
			Title:         q.doc.Title,
			Description:   q.doc.Description,
			QuestionCount: len(q.doc.Questions),
			CreatedAt:     q.createdAt / int64(time.Second),
			UpdatedAt:     q.updatedAt / int64(time.Second),
		})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[id]; !ok {
		return ErrNotFound
	}
	delete(m.quizzes, id)
	kept := m.exports[:0]
	for _, e := range m.exports {
		if e.QuizID != id {
			kept = append(kept, e)
		}
	}
	m.exports = kept
	return nil
}

func (m *memoryStore) RecordExport(_ context.Context, rec ExportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quizzes[rec.QuizID]; !ok {
		return ErrNotFound
	}
	m.seq++
	rec.ID = m.seq
	rec.CreatedAt = time.Now().Unix()
	m.exports = append(m.exports, rec)
	return nil
}

func (m *memoryStore) Exports(_ context.Context, quizID string) ([]ExportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []ExportRecord{}
	for i := len(m.exports) - 1; i >= 0; i-- {
		if m.exports[i].QuizID == quizID {
			out = append(out, m.exports[i])
		}
	}
	return out, nil
}
