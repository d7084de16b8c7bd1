package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithTxRollsBack(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertLaw(ctx, &model.Law{LawID: "001", LawName: "before"}))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx Repository) error {
		require.NoError(t, tx.UpsertLaw(ctx, &model.Law{LawID: "001", LawName: "after"}))
		_, err := tx.InsertChangeEvent(ctx, &model.ChangeEvent{ChangeID: uuid.New(), LawID: "001", MST: "1"})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	law, err := s.GetLaw(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "before", law.LawName)
	assert.Empty(t, s.ChangeEvents())
}

func TestMemoryStore_UpsertKeepsKnownMetadata(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.UpsertLaw(ctx, &model.Law{LawID: "001", LawName: "name", MinistryCodes: "1492000"}))
	require.NoError(t, s.UpsertLaw(ctx, &model.Law{LawID: "001", LawTypeName: "법률"}))

	law, err := s.GetLaw(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "name", law.LawName)
	assert.Equal(t, "법률", law.LawTypeName)
	assert.Equal(t, "1492000", law.MinistryCodes)
}

func TestMemoryStore_NaturalKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created, err := s.InsertChangeEvent(ctx, &model.ChangeEvent{ChangeID: uuid.New(), LawID: "001", MST: "1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.InsertChangeEvent(ctx, &model.ChangeEvent{ChangeID: uuid.New(), LawID: "001", MST: "1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, s.ChangeEvents(), 1)
}

func TestMemoryStore_SelectPendingAndSaveOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	created := time.Now()

	_, err := s.InsertOldNewInfo(ctx, &model.OldNewInfo{MST: "y", HasOldNew: "Y"})
	require.NoError(t, err)
	_, err = s.InsertOldNewInfo(ctx, &model.OldNewInfo{MST: "n", HasOldNew: "N"})
	require.NoError(t, err)

	older := uuid.New()
	sameDayEarly := uuid.New()
	sameDayLate := uuid.New()
	for _, ev := range []model.ChangeEvent{
		{ChangeID: older, LawID: "1", MST: "y", CollectedDate: day.AddDate(0, 0, -1), CreatedAt: created},
		{ChangeID: sameDayEarly, LawID: "2", MST: "y", CollectedDate: day, CreatedAt: created},
		{ChangeID: sameDayLate, LawID: "3", MST: "y", CollectedDate: day, CreatedAt: created.Add(time.Second)},
		{ChangeID: uuid.New(), LawID: "4", MST: "n", CollectedDate: day, CreatedAt: created},
	} {
		_, err := s.InsertChangeEvent(ctx, &ev)
		require.NoError(t, err)
	}

	pending, err := s.SelectPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, sameDayLate, pending[0].ChangeID)
	assert.Equal(t, sameDayEarly, pending[1].ChangeID)
	assert.Equal(t, older, pending[2].ChangeID)

	e := model.Enrichment{Summary: sql.NullString{String: "s", Valid: true}}
	saved, err := s.SaveEnrichment(ctx, older, e)
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = s.SaveEnrichment(ctx, older, e)
	require.NoError(t, err)
	assert.False(t, saved)

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.ChangeEvents)
	assert.Equal(t, 1, totals.EnrichedEvents)
	assert.Equal(t, 2, totals.PendingEnrichments)
}
