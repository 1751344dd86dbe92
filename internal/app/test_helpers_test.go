package app

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/example/prodtrack/internal/apperr"
	"github.com/example/prodtrack/internal/ports/secondary"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// Ensure mocks implement the interfaces
var (
	_ secondary.Transactor        = (*mockTransactor)(nil)
	_ secondary.SessionRepository = (*mockSessionRepository)(nil)
	_ secondary.PauseRepository   = (*mockPauseRepository)(nil)
	_ secondary.EventRepository   = (*mockEventRepository)(nil)
	_ secondary.CatalogProvider   = (*mockCatalog)(nil)
	_ secondary.RateProvider      = (*mockRates)(nil)
	_ secondary.IdentityProvider  = (*mockIdentity)(nil)
)

// mockTransactor runs fn inline. It does not roll back.
type mockTransactor struct {
	calls int
}

func (m *mockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

// mockSessionRepository implements secondary.SessionRepository for testing.
// Records are copied in and out so callers cannot mutate stored state.
type mockSessionRepository struct {
	sessions  map[string]*secondary.SessionRecord
	createErr error
	saveErr   error
	listErr   error
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[string]*secondary.SessionRecord)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *secondary.SessionRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, s := range m.sessions {
		if s.LineID == session.LineID && (s.Status == "active" || s.Status == "paused") {
			return apperr.Conflict("line %s already has an open session", session.LineID)
		}
	}
	c := *session
	m.sessions[session.ID] = &c
	return nil
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*secondary.SessionRecord, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound("session %s not found", id)
	}
	c := *s
	return &c, nil
}

func (m *mockSessionRepository) GetOpenByLine(ctx context.Context, lineID string) (*secondary.SessionRecord, error) {
	for _, s := range m.sessions {
		if s.LineID == lineID && (s.Status == "active" || s.Status == "paused") {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockSessionRepository) Save(ctx context.Context, session *secondary.SessionRecord, expectedStatus string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	stored, ok := m.sessions[session.ID]
	if !ok || stored.Status != expectedStatus {
		return apperr.Conflict("session %s changed concurrently", session.ID)
	}
	c := *session
	m.sessions[session.ID] = &c
	return nil
}

func (m *mockSessionRepository) matching(filters secondary.SessionFilters) []*secondary.SessionRecord {
	var out []*secondary.SessionRecord
	for _, s := range m.sessions {
		if filters.LineID != "" && s.LineID != filters.LineID {
			continue
		}
		if len(filters.Statuses) > 0 && !containsString(filters.Statuses, s.Status) {
			continue
		}
		if filters.From != nil && s.StartTime.Before(*filters.From) {
			if !filters.Overlap || (s.EndTime != nil && s.EndTime.Before(*filters.From)) {
				continue
			}
		}
		if filters.To != nil && s.StartTime.After(*filters.To) {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (m *mockSessionRepository) List(ctx context.Context, filters secondary.SessionFilters) ([]*secondary.SessionRecord, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return paginate(m.matching(filters), filters.Limit, filters.Offset), nil
}

func (m *mockSessionRepository) Count(ctx context.Context, filters secondary.SessionFilters) (int, error) {
	if m.listErr != nil {
		return 0, m.listErr
	}
	return len(m.matching(filters)), nil
}

// mockPauseRepository implements secondary.PauseRepository for testing.
type mockPauseRepository struct {
	pauses    map[string]*secondary.PauseRecord
	createErr error
	closeErr  error
}

func newMockPauseRepository() *mockPauseRepository {
	return &mockPauseRepository{pauses: make(map[string]*secondary.PauseRecord)}
}

func (m *mockPauseRepository) Create(ctx context.Context, pause *secondary.PauseRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.pauses {
		if p.SessionID == pause.SessionID && p.EndTime == nil {
			return apperr.Conflict("session %s already has an open pause", pause.SessionID)
		}
	}
	c := *pause
	m.pauses[pause.ID] = &c
	return nil
}

func (m *mockPauseRepository) GetByID(ctx context.Context, id string) (*secondary.PauseRecord, error) {
	p, ok := m.pauses[id]
	if !ok {
		return nil, apperr.NotFound("pause %s not found", id)
	}
	c := *p
	return &c, nil
}

func (m *mockPauseRepository) GetOpenBySession(ctx context.Context, sessionID string) (*secondary.PauseRecord, error) {
	for _, p := range m.pauses {
		if p.SessionID == sessionID && p.EndTime == nil {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockPauseRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.PauseRecord, error) {
	return m.ListBySessions(ctx, []string{sessionID})
}

func (m *mockPauseRepository) ListBySessions(ctx context.Context, sessionIDs []string) ([]*secondary.PauseRecord, error) {
	var out []*secondary.PauseRecord
	for _, p := range m.pauses {
		if containsString(sessionIDs, p.SessionID) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *mockPauseRepository) Close(ctx context.Context, pause *secondary.PauseRecord) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	stored, ok := m.pauses[pause.ID]
	if !ok {
		return apperr.NotFound("pause %s not found", pause.ID)
	}
	if stored.EndTime != nil {
		return apperr.Conflict("pause %s is already closed", pause.ID)
	}
	c := *pause
	m.pauses[pause.ID] = &c
	return nil
}

func (m *mockPauseRepository) UpdateDetails(ctx context.Context, pause *secondary.PauseRecord) error {
	stored, ok := m.pauses[pause.ID]
	if !ok {
		return apperr.NotFound("pause %s not found", pause.ID)
	}
	stored.Reason = pause.Reason
	stored.ActionTaken = pause.ActionTaken
	stored.RawMaterialRefs = pause.RawMaterialRefs
	stored.PhaseRefs = pause.PhaseRefs
	stored.ProductRefs = pause.ProductRefs
	stored.UpdatedAt = pause.UpdatedAt
	return nil
}

func (m *mockPauseRepository) matching(filters secondary.PauseFilters) []*secondary.PauseRecord {
	var out []*secondary.PauseRecord
	for _, p := range m.pauses {
		if filters.SessionID != "" && p.SessionID != filters.SessionID {
			continue
		}
		if filters.LineID != "" && p.LineID != filters.LineID {
			continue
		}
		if filters.Category != "" && p.Category != filters.Category {
			continue
		}
		if filters.From != nil && p.StartTime.Before(*filters.From) {
			continue
		}
		if filters.To != nil && p.StartTime.After(*filters.To) {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	return out
}

func (m *mockPauseRepository) List(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.PauseRecord, error) {
	return paginate(m.matching(filters), filters.Limit, filters.Offset), nil
}

func (m *mockPauseRepository) Count(ctx context.Context, filters secondary.PauseFilters) (int, error) {
	return len(m.matching(filters)), nil
}

func (m *mockPauseRepository) SumByCategory(ctx context.Context, filters secondary.PauseFilters) ([]*secondary.CategoryTotalRecord, error) {
	byCategory := make(map[string]*secondary.CategoryTotalRecord)
	var order []string
	for _, p := range m.matching(filters) {
		row, ok := byCategory[p.Category]
		if !ok {
			row = &secondary.CategoryTotalRecord{Category: p.Category}
			byCategory[p.Category] = row
			order = append(order, p.Category)
		}
		row.Count++
		row.DurationSeconds += p.DurationSeconds
		row.LostUnits += p.LostUnits
	}
	out := make([]*secondary.CategoryTotalRecord, len(order))
	for i, c := range order {
		out[i] = byCategory[c]
	}
	return out, nil
}

// mockEventRepository implements secondary.EventRepository for testing.
type mockEventRepository struct {
	events    []*secondary.EventRecord
	createErr error
}

func (m *mockEventRepository) Create(ctx context.Context, event *secondary.EventRecord) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockEventRepository) ListBySession(ctx context.Context, sessionID string) ([]*secondary.EventRecord, error) {
	var out []*secondary.EventRecord
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEventRepository) actions() []string {
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

// mockCatalog implements secondary.CatalogProvider for testing.
type mockCatalog struct {
	lines map[string]string // id -> name
	err   error
}

func (m *mockCatalog) LineExists(ctx context.Context, lineID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.lines[lineID]
	return ok, nil
}

func (m *mockCatalog) ListLines(ctx context.Context) ([]*secondary.LineRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*secondary.LineRecord, 0, len(m.lines))
	for id, name := range m.lines {
		out = append(out, &secondary.LineRecord{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// mockRates implements secondary.RateProvider for testing. Keys are "line|ref".
type mockRates struct {
	rates map[string]float64
	err   error
}

func (m *mockRates) LookupRate(ctx context.Context, lineID, reference string) (float64, bool, error) {
	if m.err != nil {
		return 0, false, m.err
	}
	r, ok := m.rates[lineID+"|"+reference]
	return r, ok, nil
}

// mockIdentity implements secondary.IdentityProvider for testing.
type mockIdentity struct {
	names map[string]string
}

func (m *mockIdentity) ResolveUser(ctx context.Context, actorID string) (*secondary.UserIdentity, error) {
	if actorID == "ghost" {
		return nil, errors.New("directory unavailable")
	}
	name, ok := m.names[actorID]
	if !ok {
		name = actorID
	}
	return &secondary.UserIdentity{ID: actorID, Name: name, Role: "operator"}, nil
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(seconds int) { c.t = c.t.Add(time.Duration(seconds) * time.Second) }

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ============================================================================
// Test Fixture
// ============================================================================

var fixtureStart = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

type fixture struct {
	tx       *mockTransactor
	sessions *mockSessionRepository
	pauses   *mockPauseRepository
	events   *mockEventRepository
	catalog  *mockCatalog
	rates    *mockRates
	clock    *fakeClock
	service  *SessionServiceImpl
	stats    *StatsServiceImpl
}

// newFixture wires both services over shared in-memory mocks. Lines L04 and
// L05 exist; REF1 on L04 runs at 5 seconds per unit.
func newFixture() *fixture {
	f := &fixture{
		tx:       &mockTransactor{},
		sessions: newMockSessionRepository(),
		pauses:   newMockPauseRepository(),
		events:   &mockEventRepository{},
		catalog:  &mockCatalog{lines: map[string]string{"L04": "Line 4", "L05": "Line 5"}},
		rates:    &mockRates{rates: map[string]float64{"L04|REF1": 5}},
		clock:    &fakeClock{t: fixtureStart},
	}
	identity := &mockIdentity{names: map[string]string{"op-1": "Amina"}}
	f.service = NewSessionService(f.tx, f.sessions, f.pauses, f.events, f.catalog, f.rates, identity, nil).
		WithClock(f.clock.Now)
	f.stats = NewStatsService(f.sessions, f.pauses, f.catalog, f.rates, 0).WithClock(f.clock.Now)
	return f
}
