package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"gatepass/internal/model"
	"gatepass/internal/repository"
)

// fakeUsers is an in-memory UserRepository.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUsers(users ...model.User) *fakeUsers {
	f := &fakeUsers{users: make(map[string]model.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) Upsert(ctx context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email != nil && *u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUsers) List(ctx context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakePasses is an in-memory GatePassRepository whose CompareAndSwap has the
// same single-winner semantics as the conditional UPDATE.
type fakePasses struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	passes map[uuid.UUID]*model.GatePass
	users  *fakeUsers
	seq    int

	// casMisses makes the next n CompareAndSwap calls report a lost race.
	casMisses int
	casCalls  int
}

func newFakePasses(users *fakeUsers) *fakePasses {
	return &fakePasses{passes: make(map[uuid.UUID]*model.GatePass), users: users}
}

func (f *fakePasses) put(p model.GatePass) *model.GatePass {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Code == "" {
		f.seq++
		p.Code = fmt.Sprintf("GP-TEST%04d", f.seq)
	}
	if p.CreatedAt.IsZero() {
		f.seq++
		p.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
	}
	f.passes[p.ID] = &p
	cp := p
	return &cp
}

func (f *fakePasses) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.passes)
}

func (f *fakePasses) Create(ctx context.Context, pass *model.GatePass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if pass.ID == uuid.Nil {
		pass.ID = uuid.New()
	}
	for _, p := range f.passes {
		if p.Code == pass.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	f.seq++
	pass.CreatedAt = time.Date(2025, 1, 1, 0, 0, f.seq, 0, time.UTC)
	pass.UpdatedAt = pass.CreatedAt
	cp := *pass
	f.passes[pass.ID] = &cp
	return nil
}

func (f *fakePasses) withRelations(p model.GatePass) model.GatePass {
	if u, err := f.users.FindByID(context.Background(), p.StudentID); err == nil {
		p.Student = u
	}
	if p.ApproverID != nil {
		if u, err := f.users.FindByID(context.Background(), *p.ApproverID); err == nil {
			p.Approver = u
		}
	}
	return p
}

func (f *fakePasses) FindByID(ctx context.Context, id uuid.UUID) (*model.GatePass, error) {
	f.mu.Lock()
	p, ok := f.passes[id]
	var cp model.GatePass
	if ok {
		cp = *p
	}
	f.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp = f.withRelations(cp)
	return &cp, nil
}

func (f *fakePasses) CompareAndSwap(ctx context.Context, id uuid.UUID, expected model.PassState, updates map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++
	if f.casMisses > 0 {
		f.casMisses--
		return false, nil
	}
	p, ok := f.passes[id]
	if !ok || p.State() != expected {
		return false, nil
	}
	next := *p
	for k, v := range updates {
		switch k {
		case "status":
			next.Status = v.(model.PassStatus)
		case "exit_status":
			next.ExitStatus = v.(model.ExitStatus)
		case "approver_id":
			s := v.(string)
			next.ApproverID = &s
		case "decided_at":
			t := v.(time.Time)
			next.DecidedAt = &t
		case "remarks":
			s := v.(string)
			next.Remarks = &s
		case "exited_at":
			t := v.(time.Time)
			next.ExitedAt = &t
		case "exit_marked_by":
			s := v.(string)
			next.ExitMarkedBy = &s
		case "returned_at":
			t := v.(time.Time)
			next.ReturnedAt = &t
		case "entry_marked_by":
			s := v.(string)
			next.EntryMarkedBy = &s
		case "security_remarks":
			s := v.(string)
			next.SecurityRemarks = &s
		default:
			return false, fmt.Errorf("unexpected column %q", k)
		}
	}
	f.passes[id] = &next
	return true, nil
}

func (f *fakePasses) list(match func(p *model.GatePass) bool, less func(a, b *model.GatePass) bool) []model.GatePass {
	f.mu.Lock()
	var out []model.GatePass
	for _, p := range f.passes {
		if match(p) {
			out = append(out, *p)
		}
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	for i := range out {
		out[i] = f.withRelations(out[i])
	}
	return out
}

func newestFirst(a, b *model.GatePass) bool { return a.CreatedAt.After(b.CreatedAt) }

func (f *fakePasses) ListByStudent(ctx context.Context, studentID string) ([]model.GatePass, error) {
	return f.list(func(p *model.GatePass) bool { return p.StudentID == studentID }, newestFirst), nil
}

func (f *fakePasses) ListByStatus(ctx context.Context, status model.PassStatus) ([]model.GatePass, error) {
	return f.list(func(p *model.GatePass) bool { return p.Status == status }, newestFirst), nil
}

func (f *fakePasses) ListCurrentlyOut(ctx context.Context) ([]model.GatePass, error) {
	return f.list(func(p *model.GatePass) bool {
		return p.Status == model.PassStatusApproved && p.ExitStatus == model.ExitStatusOut
	}, func(a, b *model.GatePass) bool { return a.ExitedAt.After(*b.ExitedAt) }), nil
}

func (f *fakePasses) Search(ctx context.Context, filter repository.PassFilter) ([]model.GatePass, error) {
	return f.list(func(p *model.GatePass) bool {
		return (filter.Status == "" || p.Status == filter.Status) &&
			(filter.StudentID == "" || p.StudentID == filter.StudentID) &&
			(filter.From == nil || !p.DepartAt.Before(*filter.From)) &&
			(filter.To == nil || p.DepartAt.Before(*filter.To))
	}, newestFirst), nil
}

func (f *fakePasses) CountByState(ctx context.Context, studentID string, state model.PassState) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.passes {
		if p.StudentID == studentID &&
			(state.Status == "" || p.Status == state.Status) &&
			(state.ExitStatus == "" || p.ExitStatus == state.ExitStatus) {
			n++
		}
	}
	return n, nil
}

func (f *fakePasses) Counts(ctx context.Context, studentID string, now time.Time) (*repository.PassCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &repository.PassCounts{}
	for _, p := range f.passes {
		if studentID != "" && p.StudentID != studentID {
			continue
		}
		c.Total++
		switch p.Status {
		case model.PassStatusPending:
			c.Pending++
		case model.PassStatusApproved:
			c.Approved++
		case model.PassStatusRejected:
			c.Rejected++
		}
		switch p.ExitStatus {
		case model.ExitStatusOut:
			c.CurrentlyOut++
		case model.ExitStatusReturned:
			c.Returned++
		}
		if p.IsOverdue(now) {
			c.Overdue++
		}
	}
	return c, nil
}

func (f *fakePasses) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.GatePassRepository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	snapshot := make(map[uuid.UUID]*model.GatePass, len(f.passes))
	for k, v := range f.passes {
		snapshot[k] = v
	}
	f.mu.Unlock()

	if err := fn(ctx, f); err != nil {
		f.mu.Lock()
		f.passes = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakePasses) LockStudent(ctx context.Context, studentID string) (*model.User, error) {
	return f.users.FindByID(ctx, studentID)
}

// MockPublisher is a mock implementation of events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, event any) error {
	args := m.Called(ctx, topic, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}
