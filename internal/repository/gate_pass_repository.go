package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gatepass/internal/model"
)

// PassFilter narrows Search. Zero fields are ignored; To is exclusive.
type PassFilter struct {
	Status    model.PassStatus
	StudentID string
	From      *time.Time
	To        *time.Time
	Limit     int
}

// PassCounts is an aggregate over a set of passes.
type PassCounts struct {
	Total        int64 `json:"total"`
	Pending      int64 `json:"pending"`
	Approved     int64 `json:"approved"`
	Rejected     int64 `json:"rejected"`
	CurrentlyOut int64 `json:"currently_out"`
	Returned     int64 `json:"returned"`
	Overdue      int64 `json:"overdue"`
}

// GatePassRepository defines gate pass persistence operations.
// Passes are never deleted, so there is no Delete.
type GatePassRepository interface {
	Create(ctx context.Context, pass *model.GatePass) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.GatePass, error)
	// CompareAndSwap applies updates only if the row is still in expected state.
	// It reports false when another writer moved the row first.
	CompareAndSwap(ctx context.Context, id uuid.UUID, expected model.PassState, updates map[string]any) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]model.GatePass, error)
	ListByStatus(ctx context.Context, status model.PassStatus) ([]model.GatePass, error)
	ListCurrentlyOut(ctx context.Context) ([]model.GatePass, error)
	Search(ctx context.Context, filter PassFilter) ([]model.GatePass, error)
	CountByState(ctx context.Context, studentID string, state model.PassState) (int64, error)
	Counts(ctx context.Context, studentID string, now time.Time) (*PassCounts, error)
	// Transaction methods
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo GatePassRepository) error) error
	LockStudent(ctx context.Context, studentID string) (*model.User, error)
}

const defaultSearchLimit = 500

type gatePassRepository struct {
	db *gorm.DB
}

// NewGatePassRepository creates a new gate pass repository.
func NewGatePassRepository(db *gorm.DB) GatePassRepository {
	return &gatePassRepository{db: db}
}

// Create inserts a new pass.
func (r *gatePassRepository) Create(ctx context.Context, pass *model.GatePass) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(pass).Error
}

// FindByID loads a pass together with its student and approver.
func (r *gatePassRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.GatePass, error) {
	var pass model.GatePass
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Approver").
		Where("id = ?", id).
		First(&pass).Error; err != nil {
		return nil, err
	}
	return &pass, nil
}

// CompareAndSwap issues a single conditional UPDATE guarded on status and exit_status.
func (r *gatePassRepository) CompareAndSwap(ctx context.Context, id uuid.UUID, expected model.PassState, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.GatePass{}).
		Where("id = ? AND status = ? AND exit_status = ?", id, expected.Status, expected.ExitStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListByStudent lists a student's passes, newest first.
func (r *gatePassRepository) ListByStudent(ctx context.Context, studentID string) ([]model.GatePass, error) {
	var passes []model.GatePass
	if err := r.withRelations(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&passes).Error; err != nil {
		return nil, err
	}
	return passes, nil
}

// ListByStatus lists passes in a status. Pending is ordered by request time,
// decided passes by planned departure.
func (r *gatePassRepository) ListByStatus(ctx context.Context, status model.PassStatus) ([]model.GatePass, error) {
	order := "created_at DESC"
	if status != model.PassStatusPending {
		order = "depart_at DESC"
	}
	var passes []model.GatePass
	if err := r.withRelations(ctx).
		Where("status = ?", status).
		Order(order).
		Find(&passes).Error; err != nil {
		return nil, err
	}
	return passes, nil
}

// ListCurrentlyOut lists approved passes whose student has left and not returned.
func (r *gatePassRepository) ListCurrentlyOut(ctx context.Context) ([]model.GatePass, error) {
	var passes []model.GatePass
	if err := r.withRelations(ctx).
		Where("status = ? AND exit_status = ?", model.PassStatusApproved, model.ExitStatusOut).
		Order("exited_at DESC").
		Find(&passes).Error; err != nil {
		return nil, err
	}
	return passes, nil
}

// Search filters all passes for reporting.
func (r *gatePassRepository) Search(ctx context.Context, filter PassFilter) ([]model.GatePass, error) {
	q := r.withRelations(ctx)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.From != nil {
		q = q.Where("depart_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("depart_at < ?", *filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var passes []model.GatePass
	if err := q.Order("created_at DESC").Limit(limit).Find(&passes).Error; err != nil {
		return nil, err
	}
	return passes, nil
}

// CountByState counts a student's passes in exactly the given state.
// An empty ExitStatus matches any exit status.
func (r *gatePassRepository) CountByState(ctx context.Context, studentID string, state model.PassState) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.GatePass{}).Where("student_id = ?", studentID)
	if state.Status != "" {
		q = q.Where("status = ?", state.Status)
	}
	if state.ExitStatus != "" {
		q = q.Where("exit_status = ?", state.ExitStatus)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

type stateCount struct {
	Status     model.PassStatus
	ExitStatus model.ExitStatus
	N          int64
}

// Counts aggregates passes by state. An empty studentID counts every pass.
func (r *gatePassRepository) Counts(ctx context.Context, studentID string, now time.Time) (*PassCounts, error) {
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.GatePass{})
		if studentID != "" {
			q = q.Where("student_id = ?", studentID)
		}
		return q
	}

	var rows []stateCount
	if err := scope().
		Select("status, exit_status, COUNT(*) AS n").
		Group("status, exit_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := &PassCounts{}
	for _, row := range rows {
		counts.Total += row.N
		switch row.Status {
		case model.PassStatusPending:
			counts.Pending += row.N
		case model.PassStatusApproved:
			counts.Approved += row.N
		case model.PassStatusRejected:
			counts.Rejected += row.N
		}
		switch row.ExitStatus {
		case model.ExitStatusOut:
			counts.CurrentlyOut += row.N
		case model.ExitStatusReturned:
			counts.Returned += row.N
		}
	}

	if err := scope().
		Where("exit_status = ? AND return_by < ?", model.ExitStatusOut, now).
		Count(&counts.Overdue).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

// WithTransaction executes a function within a database transaction.
func (r *gatePassRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo GatePassRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &gatePassRepository{db: tx}
		return fn(ctx, txRepo)
	})
}

// LockStudent reads the owner row with SELECT ... FOR UPDATE, serializing pass creation per student.
func (r *gatePassRepository) LockStudent(ctx context.Context, studentID string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", studentID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gatePassRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Student").Preload("Approver")
}
