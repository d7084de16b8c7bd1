package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
	"github.com/jjenkins/lawtrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRegistry serves canned pages per collection date and counts detail fetches
type fakeRegistry struct {
	pages       map[string][][]model.ChangeRecord
	details     map[string]*model.RevisionDetail
	pageErr     map[string]error
	detailErr   error
	pageCalls   int
	detailCalls map[string]int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		pages:       make(map[string][][]model.ChangeRecord),
		details:     make(map[string]*model.RevisionDetail),
		pageErr:     make(map[string]error),
		detailCalls: make(map[string]int),
	}
}

func (f *fakeRegistry) FetchChangePage(ctx context.Context, date time.Time, page, pageSize int) ([]model.ChangeRecord, bool, error) {
	f.pageCalls++
	key := date.Format(dateLayout)
	if err := f.pageErr[key]; err != nil {
		return nil, false, err
	}
	pages := f.pages[key]
	if page > len(pages) {
		return nil, false, nil
	}
	return pages[page-1], page < len(pages), nil
}

func (f *fakeRegistry) FetchRevisionDetail(ctx context.Context, mst string) (*model.RevisionDetail, error) {
	f.detailCalls[mst]++
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if d, ok := f.details[mst]; ok {
		return d, nil
	}
	return &model.RevisionDetail{OldBasic: map[string]any{}, NewBasic: map[string]any{}}, nil
}

func articles(prefix string, n int) []model.ArticleText {
	out := make([]model.ArticleText, n)
	for i := range out {
		out[i] = model.ArticleText{No: prefix + string(rune('1'+i)), Content: prefix + " content"}
	}
	return out
}

func record(lawID, mst string) model.ChangeRecord {
	return model.ChangeRecord{
		LawID:            lawID,
		LawName:          "법령 " + lawID,
		LawTypeName:      "법률",
		MinistryNames:    "고용노동부",
		MST:              mst,
		ChangeType:       "일부개정",
		PromulgationDate: "20240209",
		EnforcementDate:  "2024-08-10",
	}
}

func newTestImporter(reg *fakeRegistry, repo store.Repository) *Importer {
	return NewImporter(reg, repo, 100, zap.NewNop().Sugar())
}

func TestIngestDate_SharedRevisionAcrossLaws(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "12345"), record("002", "12345")}}
	reg.details["12345"] = &model.RevisionDetail{
		OldBasic:    map[string]any{"법령명": "구법"},
		NewBasic:    map[string]any{"법령명": "신법"},
		OldArticles: articles("old", 3),
		NewArticles: articles("new", 5),
	}
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestDate(t.Context(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.RecordsSeen)
	assert.Equal(t, 2, stats.EventsCreated)
	assert.Equal(t, 2, stats.LawsTouched)
	assert.Equal(t, 1, reg.detailCalls["12345"])

	totals, err := repo.Totals(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, totals.ChangeEvents)
	assert.Equal(t, 1, totals.OldNewInfos)
	assert.Equal(t, 5, totals.ArticleDiffs)

	info, err := repo.GetOldNewInfo(t.Context(), "12345")
	require.NoError(t, err)
	assert.True(t, info.Comparable())

	diffs, err := repo.ListArticleDiffs(t.Context(), "12345")
	require.NoError(t, err)
	require.Len(t, diffs, 5)
	for i, d := range diffs {
		assert.Equal(t, i, d.Seq)
		assert.True(t, d.NewNo.Valid)
	}
	assert.True(t, diffs[2].OldContent.Valid)
	assert.False(t, diffs[3].OldNo.Valid)
	assert.False(t, diffs[3].OldContent.Valid)
	assert.False(t, diffs[4].OldContent.Valid)
}

func TestIngestDate_Idempotent(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{
		{record("001", "100"), record("002", "200")},
		{record("003", "300")},
	}
	repo := store.NewMemoryStore()
	imp := newTestImporter(reg, repo)

	first, err := imp.IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 3, first.EventsCreated)

	second, err := imp.IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 3, second.RecordsSeen)
	assert.Equal(t, 0, second.EventsCreated)
	assert.Equal(t, 3, second.LawsTouched)

	assert.Len(t, repo.ChangeEvents(), 3)
	for _, mst := range []string{"100", "200", "300"} {
		assert.Equal(t, 1, reg.detailCalls[mst], "mst %s", mst)
	}
}

func TestIngestDate_StopsOnEmptyPage(t *testing.T) {
	reg := newFakeRegistry()
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.RecordsSeen)
	assert.Equal(t, 1, reg.pageCalls)
}

func TestIngestDate_SkipsRecordWithoutLawID(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("", "100"), record("001", "200")}}
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RecordsSeen)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.EventsCreated)
	assert.Zero(t, reg.detailCalls["100"])
}

func TestIngestDate_RecordWithoutRevisionSerial(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "")}}
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EventsCreated)
	assert.Equal(t, 1, stats.LawsTouched)

	law, err := repo.GetLaw(t.Context(), "001")
	require.NoError(t, err)
	require.NotNil(t, law)
	assert.Empty(t, repo.ChangeEvents())
}

func TestIngestDate_PartialRecordKeepsLawMetadata(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100")}}
	reg.pages["2024-03-02"] = [][]model.ChangeRecord{{{LawID: "001", MST: "101", LawName: "개정된 이름"}}}
	repo := store.NewMemoryStore()
	imp := newTestImporter(reg, repo)

	_, err := imp.IngestRange(t.Context(), testDay, testDay.AddDate(0, 0, 1))
	require.NoError(t, err)

	law, err := repo.GetLaw(t.Context(), "001")
	require.NoError(t, err)
	assert.Equal(t, "개정된 이름", law.LawName)
	assert.Equal(t, "법률", law.LawTypeName)
	assert.Equal(t, "고용노동부", law.MinistryNames)
}

func TestIngestDate_DetailFailureRollsBackDate(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100"), record("002", "200")}}
	reg.detailErr = &RegistryError{Endpoint: endpointOldNew, Attempts: 5, Transient: true, Err: errors.New("timeout")}
	repo := store.NewMemoryStore()
	imp := newTestImporter(reg, repo)

	stats, err := imp.IngestDate(t.Context(), testDay)
	require.Error(t, err)
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, ErrRegistryExhausted)
	assert.Contains(t, err.Error(), "2024-03-01")
	assert.Empty(t, repo.ChangeEvents())

	// a rerun after the registry recovers fetches the content it missed
	reg.detailErr = nil
	stats, err = imp.IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EventsCreated)

	exists, err := repo.OldNewInfoExists(t.Context(), "100")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestIngestDate_ExistingEventIsNotRefetched(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100")}}
	repo := store.NewMemoryStore()

	// an event stored earlier whose old/new content was never saved
	_, err := repo.InsertChangeEvent(t.Context(), &model.ChangeEvent{
		ChangeID:      uuid.New(),
		LawID:         "001",
		MST:           "100",
		CollectedDate: testDay.AddDate(0, 0, -7),
		CreatedAt:     time.Now(),
	})
	require.NoError(t, err)

	stats, err := newTestImporter(reg, repo).IngestDate(t.Context(), testDay)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EventsCreated)
	assert.Zero(t, reg.detailCalls["100"])

	exists, err := repo.OldNewInfoExists(t.Context(), "100")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestRange_SumsDays(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100")}}
	reg.pages["2024-03-03"] = [][]model.ChangeRecord{{record("001", "101"), record("002", "200")}}
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestRange(t.Context(), testDay, testDay.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", stats.StartDate)
	assert.Equal(t, "2024-03-03", stats.EndDate)
	assert.Equal(t, 3, stats.Days)
	assert.Equal(t, 3, stats.RecordsSeen)
	assert.Equal(t, 3, stats.EventsCreated)
	assert.Equal(t, 3, stats.LawsTouched)
}

func TestIngestRange_AbortsOnFailingDay(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100")}}
	reg.pageErr["2024-03-02"] = &RegistryError{Endpoint: endpointHistory, Attempts: 1, Err: errors.New("unexpected status code: 500")}
	reg.pages["2024-03-03"] = [][]model.ChangeRecord{{record("002", "200")}}
	repo := store.NewMemoryStore()

	stats, err := newTestImporter(reg, repo).IngestRange(t.Context(), testDay, testDay.AddDate(0, 0, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistry)
	assert.Contains(t, err.Error(), "2024-03-02")

	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Days)
	assert.Equal(t, 1, stats.EventsCreated)
	assert.Len(t, repo.ChangeEvents(), 1)
}

func TestIngestRange_RejectsInvertedRange(t *testing.T) {
	_, err := newTestImporter(newFakeRegistry(), store.NewMemoryStore()).
		IngestRange(t.Context(), testDay, testDay.AddDate(0, 0, -1))
	assert.Error(t, err)
}

func TestIngestYesterday(t *testing.T) {
	reg := newFakeRegistry()
	reg.pages["2024-03-01"] = [][]model.ChangeRecord{{record("001", "100")}}
	imp := newTestImporter(reg, store.NewMemoryStore())
	imp.now = func() time.Time { return time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC) }

	stats, err := imp.IngestYesterday(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", stats.StartDate)
	assert.Equal(t, 1, stats.EventsCreated)
}

func TestIngestInitial_DefaultsStart(t *testing.T) {
	imp := newTestImporter(newFakeRegistry(), store.NewMemoryStore())
	imp.now = func() time.Time { return InitialStartDate.AddDate(0, 0, 3) }

	stats, err := imp.IngestInitial(t.Context(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "1990-01-01", stats.StartDate)
	assert.Equal(t, "1990-01-03", stats.EndDate)
	assert.Equal(t, 3, stats.Days)
}

func TestZipArticles(t *testing.T) {
	now := time.Now()

	diffs := zipArticles("1", articles("o", 3), articles("n", 5), now)
	require.Len(t, diffs, 5)
	assert.Equal(t, "o1", diffs[0].OldNo.String)
	assert.Equal(t, "n1", diffs[0].NewNo.String)
	assert.False(t, diffs[3].OldNo.Valid)
	assert.False(t, diffs[4].OldContent.Valid)

	diffs = zipArticles("1", articles("o", 2), nil, now)
	require.Len(t, diffs, 2)
	assert.False(t, diffs[1].NewContent.Valid)

	assert.Empty(t, zipArticles("1", nil, nil, now))
}

func TestParseRegistryDate(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"20240301", true},
		{"2024-03-01", true},
		{" 20240301 ", true},
		{"", false},
		{"2024031", false},
		{"20241399", false},
		{"abcdefgh", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseRegistryDate(tt.in)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, testDay, got.Time)
			}
		})
	}
}
