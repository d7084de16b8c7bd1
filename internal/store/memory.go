package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jjenkins/lawtrack/internal/model"
)

// MemoryStore is an in-process Repository used for dry runs and tests.
// Transactions are emulated by snapshotting state and restoring it when the
// transaction function fails; it assumes a single writer.
type MemoryStore struct {
	mu    sync.Mutex
	inTx  bool
	state memState
}

type memState struct {
	laws     map[string]model.Law
	events   []model.ChangeEvent
	eventIdx map[string]int
	oldNew   map[string]model.OldNewInfo
	diffs    map[string][]model.ArticleDiff
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func newMemState() memState {
	return memState{
		laws:     make(map[string]model.Law),
		eventIdx: make(map[string]int),
		oldNew:   make(map[string]model.OldNewInfo),
		diffs:    make(map[string][]model.ArticleDiff),
	}
}

func (st memState) clone() memState {
	c := newMemState()
	for k, v := range st.laws {
		c.laws[k] = v
	}
	c.events = append([]model.ChangeEvent(nil), st.events...)
	for k, v := range st.eventIdx {
		c.eventIdx[k] = v
	}
	for k, v := range st.oldNew {
		c.oldNew[k] = v
	}
	for k, v := range st.diffs {
		c.diffs[k] = append([]model.ArticleDiff(nil), v...)
	}
	return c
}

func eventKey(lawID, mst string) string {
	return lawID + "\x00" + mst
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(Repository) error) error {
	s.mu.Lock()
	if s.inTx {
		s.mu.Unlock()
		return fn(s)
	}
	s.inTx = true
	snapshot := s.state.clone()
	s.mu.Unlock()

	err := fn(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = snapshot
	}
	s.inTx = false
	return err
}

func (s *MemoryStore) UpsertLaw(ctx context.Context, l *model.Law) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	existing, ok := s.state.laws[l.LawID]
	if !ok {
		stored := *l
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.state.laws[l.LawID] = stored
		return nil
	}

	if l.LawName != "" {
		existing.LawName = l.LawName
	}
	if l.LawTypeName != "" {
		existing.LawTypeName = l.LawTypeName
	}
	if l.MinistryNames != "" {
		existing.MinistryNames = l.MinistryNames
	}
	if l.MinistryCodes != "" {
		existing.MinistryCodes = l.MinistryCodes
	}
	existing.UpdatedAt = now
	s.state.laws[l.LawID] = existing
	return nil
}

func (s *MemoryStore) GetLaw(ctx context.Context, lawID string) (*model.Law, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.state.laws[lawID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *MemoryStore) ChangeEventExists(ctx context.Context, lawID, mst string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.state.eventIdx[eventKey(lawID, mst)]
	return ok, nil
}

func (s *MemoryStore) InsertChangeEvent(ctx context.Context, ev *model.ChangeEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey(ev.LawID, ev.MST)
	if _, ok := s.state.eventIdx[key]; ok {
		return false, nil
	}
	s.state.eventIdx[key] = len(s.state.events)
	s.state.events = append(s.state.events, *ev)
	return true, nil
}

func (s *MemoryStore) SelectPending(ctx context.Context, limit int) ([]model.ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []model.ChangeEvent
	// newest insertions first so equal timestamps still order by recency
	for i := len(s.state.events) - 1; i >= 0; i-- {
		ev := s.state.events[i]
		if ev.ChangeSummary.Valid || ev.ActionRecommendation.Valid {
			continue
		}
		info, ok := s.state.oldNew[ev.MST]
		if !ok || !info.Comparable() {
			continue
		}
		pending = append(pending, ev)
	}

	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if !a.CollectedDate.Equal(b.CollectedDate) {
			return a.CollectedDate.After(b.CollectedDate)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if limit >= 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) SaveEnrichment(ctx context.Context, changeID uuid.UUID, e model.Enrichment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.events {
		ev := &s.state.events[i]
		if ev.ChangeID != changeID {
			continue
		}
		if ev.Enriched() {
			return false, nil
		}
		ev.ChangeSummary = e.Summary
		ev.ActionRecommendation = e.Actions
		ev.AIImportance = e.Importance
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) OldNewInfoExists(ctx context.Context, mst string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.state.oldNew[mst]
	return ok, nil
}

func (s *MemoryStore) InsertOldNewInfo(ctx context.Context, info *model.OldNewInfo) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.oldNew[info.MST]; ok {
		return false, nil
	}
	s.state.oldNew[info.MST] = *info
	return true, nil
}

func (s *MemoryStore) GetOldNewInfo(ctx context.Context, mst string) (*model.OldNewInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.state.oldNew[mst]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

func (s *MemoryStore) InsertArticleDiffs(ctx context.Context, diffs []model.ArticleDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range diffs {
		s.state.diffs[d.MST] = append(s.state.diffs[d.MST], d)
	}
	return nil
}

func (s *MemoryStore) ListArticleDiffs(ctx context.Context, mst string) ([]model.ArticleDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	diffs := append([]model.ArticleDiff(nil), s.state.diffs[mst]...)
	sort.SliceStable(diffs, func(i, j int) bool { return diffs[i].Seq < diffs[j].Seq })
	return diffs, nil
}

// ChangeEvents returns a copy of every stored change event in insertion order
func (s *MemoryStore) ChangeEvents() []model.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.ChangeEvent(nil), s.state.events...)
}

func (s *MemoryStore) Totals(ctx context.Context) (*model.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &model.Totals{
		Laws:         len(s.state.laws),
		ChangeEvents: len(s.state.events),
		OldNewInfos:  len(s.state.oldNew),
	}
	for _, ev := range s.state.events {
		info := s.state.oldNew[ev.MST]
		switch {
		case ev.Enriched():
			t.EnrichedEvents++
		case info.Comparable():
			t.PendingEnrichments++
		}
	}
	for _, d := range s.state.diffs {
		t.ArticleDiffs += len(d)
	}
	return t, nil
}
