package bank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, sample("quiz-a", "Algebra")))
	require.NoError(t, s.Put(ctx, sample("quiz-b", "Biology")))
	assert.Error(t, s.Put(ctx, sample("", "x")))

	got, err := s.Get(ctx, "quiz-a")
	require.NoError(t, err)
	assert.Equal(t, sample("quiz-a", "Algebra"), got)
	_, err = s.Get(ctx, "zzz")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.List(ctx, ListOpts{Q: "bio"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].QuestionCount)

	assert.ErrorIs(t, s.RecordExport(ctx, ExportRecord{QuizID: "zzz"}), ErrNotFound)
	require.NoError(t, s.RecordExport(ctx, ExportRecord{QuizID: "quiz-a", PackageID: "g1"}))
	require.NoError(t, s.RecordExport(ctx, ExportRecord{QuizID: "quiz-a", PackageID: "g2"}))
	recs, err := s.Exports(ctx, "quiz-a")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "g2", recs[0].PackageID)

	require.NoError(t, s.Delete(ctx, "quiz-a"))
	recs, err = s.Exports(ctx, "quiz-a")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.ErrorIs(t, s.Delete(ctx, "quiz-a"), ErrNotFound)
}
