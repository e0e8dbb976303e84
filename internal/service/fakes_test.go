package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/ledger"
	"github.com/HoussemEK/Direction-Project/internal/projection"
	"github.com/HoussemEK/Direction-Project/internal/repository"
	"github.com/HoussemEK/Direction-Project/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
)

// fixedNow is a Monday afternoon.
var fixedNow = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

var errDB = errors.New("db down")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakePool hands out transactions that only count commits. Repositories
// below ignore the DBTX they are given.
type fakePool struct {
	repository.DBTX
	mu       sync.Mutex
	commits  int
	beginErr error
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return &fakeTx{pool: p}, nil
}

type fakeTx struct {
	pgx.Tx
	pool *fakePool
}

func (t *fakeTx) Commit(context.Context) error {
	t.pool.mu.Lock()
	t.pool.commits++
	t.pool.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

// --- users ---

type memUsers struct {
	rows map[uuid.UUID]domain.User
}

func (m *memUsers) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, _ repository.DBTX, email string) (*domain.User, error) {
	for _, u := range m.rows {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Create(_ context.Context, _ repository.DBTX, u *domain.User) error {
	for _, existing := range m.rows {
		if existing.Email == u.Email {
			return domain.ErrConflict("email already registered")
		}
	}
	m.rows[u.ID] = *u
	return nil
}

func (m *memUsers) Update(_ context.Context, _ repository.DBTX, u *domain.User) error {
	m.rows[u.ID] = *u
	return nil
}

// --- profiles ---

type memProfiles struct {
	rows    map[uuid.UUID]domain.GamificationProfile
	lockErr error
}

func (m *memProfiles) FindByUserID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.GamificationProfile, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	p.Badges = append([]domain.EarnedBadge(nil), p.Badges...)
	return &p, nil
}

func (m *memProfiles) EnsureExists(_ context.Context, _ repository.DBTX, p *domain.GamificationProfile) error {
	if _, ok := m.rows[p.UserID]; !ok {
		m.rows[p.UserID] = *p
	}
	return nil
}

func (m *memProfiles) LockForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.GamificationProfile, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	return m.FindByUserID(ctx, nil, id)
}

func (m *memProfiles) Update(_ context.Context, _ pgx.Tx, p *domain.GamificationProfile) error {
	cp := *p
	cp.Badges = append([]domain.EarnedBadge(nil), p.Badges...)
	m.rows[p.UserID] = cp
	return nil
}

func (m *memProfiles) ResetWeekly(_ context.Context, _ repository.DBTX, weekStart time.Time) (int64, error) {
	var n int64
	for id, p := range m.rows {
		if p.WeekStartDate.Before(weekStart) {
			p.WeeklyXP, p.WeeklyTasksCompleted, p.WeeklyRewardClaimed = 0, 0, false
			p.WeekStartDate = weekStart
			m.rows[id] = p
			n++
		}
	}
	return n, nil
}

func (m *memProfiles) ResetDaily(context.Context, repository.DBTX) (int64, error) {
	var n int64
	for id, p := range m.rows {
		if p.DailyRewardClaimed {
			p.DailyRewardClaimed = false
			m.rows[id] = p
			n++
		}
	}
	return n, nil
}

// --- tasks ---

type memTasks struct {
	rows map[uuid.UUID]domain.Task
}

func (m *memTasks) FindByID(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (*domain.Task, error) {
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

func (m *memTasks) LockForUpdate(ctx context.Context, _ pgx.Tx, userID, id uuid.UUID) (*domain.Task, error) {
	return m.FindByID(ctx, nil, userID, id)
}

func (m *memTasks) List(_ context.Context, _ repository.DBTX, userID uuid.UUID, f repository.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, t := range m.rows {
		if t.UserID != userID {
			continue
		}
		if f.Completed != nil && t.Completed != *f.Completed {
			continue
		}
		if f.TrackID != nil && (t.TrackID == nil || *t.TrackID != *f.TrackID) {
			continue
		}
		if f.TrackLevel != nil && (t.TrackLevel == nil || *t.TrackLevel != *f.TrackLevel) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memTasks) Create(_ context.Context, _ repository.DBTX, t *domain.Task) error {
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Update(_ context.Context, _ repository.DBTX, t *domain.Task) error {
	m.rows[t.ID] = *t
	return nil
}

func (m *memTasks) Delete(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (bool, error) {
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memTasks) CountCompletedForLevel(_ context.Context, _ repository.DBTX, userID, trackID uuid.UUID, level int) (int, error) {
	n := 0
	for _, t := range m.rows {
		if t.UserID == userID && t.Completed && t.TrackID != nil && *t.TrackID == trackID &&
			t.TrackLevel != nil && *t.TrackLevel == level {
			n++
		}
	}
	return n, nil
}

func (m *memTasks) CompletedPerDay(_ context.Context, _ repository.DBTX, userID uuid.UUID, since time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, t := range m.rows {
		if t.UserID == userID && t.CompletedAt != nil && !t.CompletedAt.Before(since) {
			out[t.CompletedAt.UTC().Format(time.DateOnly)]++
		}
	}
	return out, nil
}

// --- tracks ---

type memTracks struct {
	rows map[uuid.UUID]domain.Track
}

func (m *memTracks) FindByID(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (*domain.Track, error) {
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	t.Levels = append([]domain.TrackLevel(nil), t.Levels...)
	return &t, nil
}

func (m *memTracks) LockForUpdate(ctx context.Context, _ pgx.Tx, userID, id uuid.UUID) (*domain.Track, error) {
	return m.FindByID(ctx, nil, userID, id)
}

func (m *memTracks) List(_ context.Context, _ repository.DBTX, userID uuid.UUID, status *domain.TrackStatus) ([]domain.Track, error) {
	var out []domain.Track
	for _, t := range m.rows {
		if t.UserID == userID && (status == nil || t.Status == *status) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTracks) Create(_ context.Context, _ repository.DBTX, t *domain.Track) error {
	m.rows[t.ID] = *t
	return nil
}

func (m *memTracks) Update(_ context.Context, _ repository.DBTX, t *domain.Track) error {
	cp := *t
	cp.Levels = append([]domain.TrackLevel(nil), t.Levels...)
	m.rows[t.ID] = cp
	return nil
}

func (m *memTracks) Delete(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (bool, error) {
	t, ok := m.rows[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

// --- challenges ---

type memChallenges struct {
	rows map[uuid.UUID]domain.Challenge
}

func (m *memChallenges) FindByID(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (*domain.Challenge, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return nil, nil
	}
	return &c, nil
}

func (m *memChallenges) LockForUpdate(ctx context.Context, _ pgx.Tx, userID, id uuid.UUID) (*domain.Challenge, error) {
	return m.FindByID(ctx, nil, userID, id)
}

func (m *memChallenges) List(_ context.Context, _ repository.DBTX, userID uuid.UUID, f repository.ChallengeFilter) ([]domain.Challenge, error) {
	var out []domain.Challenge
	for _, c := range m.rows {
		if c.UserID == userID && (f.Status == nil || c.Status == *f.Status) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memChallenges) FindOpen(_ context.Context, _ repository.DBTX, userID uuid.UUID) (*domain.Challenge, error) {
	for _, st := range domain.OpenChallengeStatuses() {
		for _, c := range m.rows {
			if c.UserID == userID && c.Status == st {
				c := c
				return &c, nil
			}
		}
	}
	return nil, nil
}

func (m *memChallenges) FindRunning(_ context.Context, _ repository.DBTX, userID, exclude uuid.UUID) (*domain.Challenge, error) {
	for _, c := range m.rows {
		if c.UserID == userID && c.ID != exclude && c.Status.Running() {
			c := c
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memChallenges) Create(_ context.Context, _ repository.DBTX, c *domain.Challenge) error {
	m.rows[c.ID] = *c
	return nil
}

func (m *memChallenges) Update(_ context.Context, _ repository.DBTX, c *domain.Challenge) error {
	m.rows[c.ID] = *c
	return nil
}

func (m *memChallenges) Delete(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (bool, error) {
	c, ok := m.rows[id]
	if !ok || c.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memChallenges) ExpireDue(_ context.Context, _ repository.DBTX, now time.Time) ([]domain.Challenge, error) {
	var out []domain.Challenge
	for id, c := range m.rows {
		if c.ExpireIfDue(now) {
			m.rows[id] = c
			out = append(out, c)
		}
	}
	return out, nil
}

// --- reflections ---

type memReflections struct {
	rows map[uuid.UUID]domain.Reflection
}

func (m *memReflections) FindByID(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (*domain.Reflection, error) {
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	return &r, nil
}

func (m *memReflections) FindForDate(_ context.Context, _ repository.DBTX, userID uuid.UUID, day time.Time) (*domain.Reflection, error) {
	for _, r := range m.rows {
		if r.UserID == userID && r.ForDate.Equal(day) {
			r := r
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memReflections) List(_ context.Context, _ repository.DBTX, userID uuid.UUID, f domain.ReflectionFilter) ([]domain.Reflection, error) {
	var out []domain.Reflection
	for _, r := range m.rows {
		if r.UserID == userID && (f.Mood == "" || r.Mood == f.Mood) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReflections) occupied(r *domain.Reflection) bool {
	for _, other := range m.rows {
		if other.ID != r.ID && other.UserID == r.UserID && other.ForDate.Equal(r.ForDate) {
			return true
		}
	}
	return false
}

func (m *memReflections) Create(_ context.Context, _ repository.DBTX, r *domain.Reflection) error {
	if m.occupied(r) {
		return domain.ErrConflict("a reflection already exists for this day")
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memReflections) Update(_ context.Context, _ repository.DBTX, r *domain.Reflection) error {
	if m.occupied(r) {
		return domain.ErrConflict("a reflection already exists for this day")
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memReflections) Delete(_ context.Context, _ repository.DBTX, userID, id uuid.UUID) (bool, error) {
	r, ok := m.rows[id]
	if !ok || r.UserID != userID {
		return false, nil
	}
	delete(m.rows, id)
	return true, nil
}

func (m *memReflections) CreatedPerDay(_ context.Context, _ repository.DBTX, userID uuid.UUID, since time.Time) (map[string]int, error) {
	out := map[string]int{}
	for _, r := range m.rows {
		if r.UserID == userID && !r.CreatedAt.Before(since) {
			out[r.CreatedAt.UTC().Format(time.DateOnly)]++
		}
	}
	return out, nil
}

// --- ledger entries and outbox ---

type memEntries struct {
	rows []domain.XPLedgerEntry
}

func (m *memEntries) FindExisting(_ context.Context, _ repository.DBTX, key domain.LedgerKey) (*domain.XPLedgerEntry, error) {
	for i := range m.rows {
		e := m.rows[i]
		if e.UserID == key.UserID && e.Source == key.Source && e.SourceID == key.SourceID {
			return &e, nil
		}
	}
	return nil, nil
}

func (m *memEntries) Insert(_ context.Context, _ repository.DBTX, e *domain.XPLedgerEntry) (*domain.XPLedgerEntry, error) {
	cp := *e
	cp.ID = uuid.New()
	m.rows = append(m.rows, cp)
	return &cp, nil
}

func (m *memEntries) ListByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID, limit int) ([]domain.XPLedgerEntry, error) {
	var out []domain.XPLedgerEntry
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memEntries) SumByUser(_ context.Context, _ repository.DBTX, userID uuid.UUID) (int, int, error) {
	var count, total int
	for _, e := range m.rows {
		if e.UserID == userID {
			count++
			total += e.Amount
		}
	}
	return count, total, nil
}

type memOutbox struct {
	events []domain.OutboxDraft
}

func (m *memOutbox) Insert(_ context.Context, _ repository.DBTX, d domain.OutboxDraft) error {
	m.events = append(m.events, d)
	return nil
}

func (m *memOutbox) FetchUnpublished(context.Context, repository.DBTX, int) ([]domain.OutboxDraft, error) {
	return m.events, nil
}

func (m *memOutbox) MarkPublished(context.Context, repository.DBTX, []int64) error { return nil }

func (m *memOutbox) types() []domain.EventType {
	out := make([]domain.EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}

// env wires every service against the in-memory repositories.
type env struct {
	clock       *clockwork.FakeClock
	pool        *fakePool
	users       *memUsers
	profiles    *memProfiles
	tasks       *memTasks
	tracks      *memTracks
	challenges  *memChallenges
	reflections *memReflections
	entries     *memEntries
	outbox      *memOutbox
	cache       *projection.InMemoryStore
	engine      *ledger.Engine
	gate        *settlement.LevelGate
}

func newEnv() *env {
	e := &env{
		clock:       clockwork.NewFakeClockAt(fixedNow),
		pool:        &fakePool{},
		users:       &memUsers{rows: map[uuid.UUID]domain.User{}},
		profiles:    &memProfiles{rows: map[uuid.UUID]domain.GamificationProfile{}},
		tasks:       &memTasks{rows: map[uuid.UUID]domain.Task{}},
		tracks:      &memTracks{rows: map[uuid.UUID]domain.Track{}},
		challenges:  &memChallenges{rows: map[uuid.UUID]domain.Challenge{}},
		reflections: &memReflections{rows: map[uuid.UUID]domain.Reflection{}},
		entries:     &memEntries{},
		outbox:      &memOutbox{},
	}
	e.cache = projection.NewInMemoryStore(e.clock)
	e.engine = ledger.NewEngine(e.profiles, e.entries, e.outbox)
	e.gate = settlement.NewLevelGate(e.tasks, e.tracks, e.outbox)
	return e
}

func (e *env) addUser(tz string) uuid.UUID {
	u := domain.User{
		ID:        uuid.New(),
		Email:     uuid.NewString() + "@example.com",
		Name:      "Sam",
		Timezone:  tz,
		Settings:  domain.DefaultUserSettings(),
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}
	e.users.rows[u.ID] = u
	return u.ID
}

func (e *env) taskService() *TaskService {
	return NewTaskService(e.pool, e.tasks, e.tracks, e.users, e.engine, e.gate, e.cache, e.clock, testLogger())
}

func (e *env) challengeService() *ChallengeService {
	return NewChallengeService(e.pool, e.challenges, e.engine, e.outbox, e.clock, testLogger())
}

func (e *env) trackService(ai *AIService) *TrackService {
	return NewTrackService(e.pool, e.tracks, e.tasks, e.users, e.gate, ai, e.outbox, e.clock, testLogger())
}

func (e *env) gamificationService() *GamificationService {
	return NewGamificationService(e.pool, e.profiles, e.entries, e.tasks, e.reflections, e.outbox, e.engine, e.cache, e.clock, testLogger())
}

func (e *env) reflectionService() *ReflectionService {
	return NewReflectionService(e.pool, e.reflections, e.users, e.outbox, e.cache, e.clock, testLogger())
}
