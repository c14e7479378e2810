// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"interpretation-booking/internal/domain"
	"interpretation-booking/internal/domain/model"
	"interpretation-booking/internal/domain/ports/adapter"
	"interpretation-booking/internal/domain/ports/repository"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memJobRepo is a small in-memory implementation used by unit tests.
type memJobRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Job
	saveErr error // used by tests to simulate save failures
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{store: make(map[string]*model.Job)}
}

func (m *memJobRepo) Save(ctx context.Context, _ repository.Tx, job *model.Job) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.store[job.ID] = &cp
	return nil
}

func (m *memJobRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) FindPendingByCriteria(ctx context.Context, _ repository.Tx, languages []int64, jobType model.JobType, gender model.Gender, levels []model.TranslatorLevel) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	langSet := make(map[int64]bool, len(languages))
	for _, l := range languages {
		langSet[l] = true
	}
	var out []*model.Job
	for _, j := range m.store {
		if j.Status != model.JobStatusPending || j.JobType != jobType || !langSet[j.FromLanguageID] {
			continue
		}
		if j.Gender != model.GenderNone && j.Gender != gender {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memJobRepo) FindExpiredPending(ctx context.Context, _ repository.Tx, asOf time.Time) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Job
	for _, j := range m.store {
		if j.Status == model.JobStatusPending && !j.WillExpireAt.After(asOf) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJobRepo) List(ctx context.Context, _ repository.Tx, filter repository.JobFilter) ([]*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[model.JobStatus]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		want[s] = true
	}
	var out []*model.Job
	for _, j := range m.store {
		if len(want) > 0 && !want[j.Status] {
			continue
		}
		if filter.CustomerID != "" && j.CustomerID != filter.CustomerID {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

// memAssignmentRepo keeps assignments in memory. AcceptPending reproduces the
// store-level atomicity under its mutex so concurrency tests are faithful.
type memAssignmentRepo struct {
	mu    sync.Mutex
	jobs  *memJobRepo
	store map[string]*model.Assignment
}

func newMemAssignmentRepo(jobs *memJobRepo) *memAssignmentRepo {
	return &memAssignmentRepo{jobs: jobs, store: make(map[string]*model.Assignment)}
}

func (m *memAssignmentRepo) AcceptPending(ctx context.Context, jobID, translatorID string, at time.Time) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs.mu.Lock()
	defer m.jobs.mu.Unlock()

	job, ok := m.jobs.store[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if job.Status != model.JobStatusPending {
		return nil, domain.ErrAssignmentConflict
	}
	for _, a := range m.store {
		if a.JobID == jobID && a.Current() {
			return nil, domain.ErrAssignmentConflict
		}
	}
	for _, a := range m.store {
		if a.TranslatorID != translatorID || !a.Current() {
			continue
		}
		if other, ok := m.jobs.store[a.JobID]; ok && other.Due.Equal(job.Due) {
			return nil, domain.ErrDoubleBooked
		}
	}
	a := &model.Assignment{
		ID:           uuid.NewString(),
		JobID:        jobID,
		TranslatorID: translatorID,
		AssignedAt:   at,
	}
	m.store[a.ID] = a
	job.Status = model.JobStatusAssigned
	cp := *a
	return &cp, nil
}

func (m *memAssignmentRepo) Save(ctx context.Context, _ repository.Tx, a *model.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *memAssignmentRepo) FindCurrent(ctx context.Context, _ repository.Tx, jobID string) (*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.store {
		if a.JobID == jobID && a.Current() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memAssignmentRepo) FindByJob(ctx context.Context, _ repository.Tx, jobID string) ([]*model.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Assignment
	for _, a := range m.store {
		if a.JobID == jobID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssignmentRepo) Cancel(ctx context.Context, _ repository.Tx, assignmentID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[assignmentID]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	a.CancelAt = &t
	return nil
}

func (m *memAssignmentRepo) Complete(ctx context.Context, _ repository.Tx, assignmentID string, at time.Time, completedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.store[assignmentID]
	if !ok {
		return domain.ErrNotFound
	}
	t := at
	a.CompletedAt = &t
	a.CompletedBy = completedBy
	return nil
}

func (m *memAssignmentRepo) IsDoubleBooked(ctx context.Context, _ repository.Tx, translatorID string, due time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.store {
		if a.TranslatorID != translatorID || !a.Current() {
			continue
		}
		m.jobs.mu.RLock()
		j, ok := m.jobs.store[a.JobID]
		m.jobs.mu.RUnlock()
		if ok && j.Due.Equal(due) {
			return true, nil
		}
	}
	return false, nil
}

type memTranslatorRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Translator
}

func newMemTranslatorRepo() *memTranslatorRepo {
	return &memTranslatorRepo{store: make(map[string]*model.Translator)}
}

func (m *memTranslatorRepo) add(t *model.Translator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.store[t.ID] = &cp
}

func (m *memTranslatorRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Translator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTranslatorRepo) FindByEmail(ctx context.Context, _ repository.Tx, email string) (*model.Translator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.store {
		if t.Email == email {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memTranslatorRepo) FindCandidates(ctx context.Context, _ repository.Tx, c repository.CandidateCriteria) ([]*model.Translator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	skip := make(map[string]bool, len(c.ExcludeIDs))
	for _, id := range c.ExcludeIDs {
		skip[id] = true
	}
	var out []*model.Translator
	for _, t := range m.store {
		if skip[t.ID] || t.Type != c.Type || !t.Speaks(c.LanguageID) {
			continue
		}
		if c.Gender != model.GenderNone && t.Gender != c.Gender {
			continue
		}
		if !t.HasLevel(c.Levels) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

type memCustomerRepo struct {
	mu        sync.RWMutex
	store     map[string]*model.Customer
	blacklist map[string][]string // customerID -> blocked translator ids
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{store: make(map[string]*model.Customer), blacklist: make(map[string][]string)}
}

func (m *memCustomerRepo) add(c *model.Customer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.store[c.ID] = &cp
}

func (m *memCustomerRepo) block(customerID, translatorID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blacklist[customerID] = append(m.blacklist[customerID], translatorID)
}

func (m *memCustomerRepo) FindByID(ctx context.Context, _ repository.Tx, id string) (*model.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCustomerRepo) FindBlacklist(ctx context.Context, _ repository.Tx, customerID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.blacklist[customerID]...), nil
}

type memLanguageRepo struct {
	store map[int64]*model.Language
}

func newMemLanguageRepo(langs ...*model.Language) *memLanguageRepo {
	m := &memLanguageRepo{store: make(map[int64]*model.Language)}
	for _, l := range langs {
		m.store[l.ID] = l
	}
	return m
}

func (m *memLanguageRepo) FindByID(ctx context.Context, _ repository.Tx, id int64) (*model.Language, error) {
	l, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

// memTxManager runs the function directly; the in-memory repos have no
// transactional behavior to coordinate.
type memTxManager struct{}

func (memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// fakeClock is a settable clock for deterministic time-based assertions.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// captureNotifier records every dispatched intent.
type captureNotifier struct {
	mu      sync.Mutex
	intents []adapter.NotificationIntent
	err     error // used by tests to simulate delivery failures
}

func (n *captureNotifier) Dispatch(ctx context.Context, intents []adapter.NotificationIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = append(n.intents, intents...)
	return n.err
}

func (n *captureNotifier) all() []adapter.NotificationIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]adapter.NotificationIntent(nil), n.intents...)
}

func (n *captureNotifier) byChannel(ch adapter.Channel) []adapter.NotificationIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []adapter.NotificationIntent
	for _, i := range n.intents {
		if i.Channel == ch {
			out = append(out, i)
		}
	}
	return out
}

func (n *captureNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.intents = nil
}

// memLocker grants every lock unless a key is pre-held.
type memLocker struct {
	mu      sync.Mutex
	held    map[string]string
	lastTTL time.Duration
}

func newMemLocker() *memLocker { return &memLocker{held: make(map[string]string)} }

func (l *memLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastTTL = ttl
	if _, ok := l.held[key]; ok {
		return "", domain.ErrJobLocked
	}
	token := uuid.NewString()
	l.held[key] = token
	return token, nil
}

func (l *memLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] != token {
		return domain.ErrOperationFailed
	}
	delete(l.held, key)
	return nil
}

// testEnv bundles a fully wired BookingUseCase over the in-memory stack.
type testEnv struct {
	jobs        *memJobRepo
	assignments *memAssignmentRepo
	translators *memTranslatorRepo
	customers   *memCustomerRepo
	languages   *memLanguageRepo
	clock       *fakeClock
	notifier    *captureNotifier
	locker      *memLocker
	matcher     *Matcher
	uc          *BookingUseCase
}

func newTestEnv(now time.Time) *testEnv {
	jobs := newMemJobRepo()
	assignments := newMemAssignmentRepo(jobs)
	translators := newMemTranslatorRepo()
	customers := newMemCustomerRepo()
	languages := newMemLanguageRepo(
		&model.Language{ID: 1, Name: "French"},
		&model.Language{ID: 2, Name: "Arabic"},
	)
	clock := newFakeClock(now)
	notifier := &captureNotifier{}
	locker := newMemLocker()
	log := testLogger()
	matcher := NewMatcher(jobs, translators, customers, log)
	uc := NewBookingUseCase(jobs, assignments, translators, customers, languages,
		memTxManager{}, matcher, locker, 0, clock, notifier, log)
	return &testEnv{
		jobs:        jobs,
		assignments: assignments,
		translators: translators,
		customers:   customers,
		languages:   languages,
		clock:       clock,
		notifier:    notifier,
		locker:      locker,
		matcher:     matcher,
		uc:          uc,
	}
}
