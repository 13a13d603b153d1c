package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/cache"
	apperrors "gatepass/internal/errors"
	"gatepass/internal/events"
	"gatepass/internal/idgen"
	"gatepass/internal/model"
	"gatepass/internal/policy"
	"gatepass/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"

	// maxTransitionAttempts bounds the compare-and-set loop: one attempt plus one retry.
	maxTransitionAttempts = 2

	maxReasonLength      = 500
	maxDestinationLength = 255
	maxRemarksLength     = 500

	dashboardCacheTTL = 30 * time.Second
)

// CreatePassInput is a student's request as entered on the form.
// Dates are YYYY-MM-DD and times HH:MM in the hostel time zone.
type CreatePassInput struct {
	Reason      string
	Destination string
	FromDate    string
	ToDate      string
	OutTime     string
	ReturnTime  string
}

// SearchQuery filters the warden's report of all passes. Empty fields are ignored.
type SearchQuery struct {
	Status    string
	StudentID string
	FromDate  string
	ToDate    string
}

// PassView is a pass plus values derived at read time.
type PassView struct {
	model.GatePass
	Overdue    bool  `json:"overdue"`
	MinutesOut int64 `json:"minutes_out"`
}

// Dashboard holds the counters shown on each role's landing page.
type Dashboard struct {
	Scope string `json:"scope"`
	repository.PassCounts
}

// GatePassService is the ledger: the only component that changes pass state.
type GatePassService interface {
	Create(ctx context.Context, actor policy.Actor, in CreatePassInput) (*model.GatePass, error)
	Decide(ctx context.Context, actor policy.Actor, passID string, outcome model.Outcome, remarks string) (*model.GatePass, error)
	MarkExit(ctx context.Context, actor policy.Actor, passID string, remarks string) (*model.GatePass, error)
	MarkEntry(ctx context.Context, actor policy.Actor, passID string, remarks string) (*model.GatePass, error)

	Get(ctx context.Context, actor policy.Actor, passID string) (*PassView, error)
	ListForStudent(ctx context.Context, actor policy.Actor, studentID string) ([]PassView, error)
	ListPending(ctx context.Context, actor policy.Actor) ([]PassView, error)
	ListApproved(ctx context.Context, actor policy.Actor) ([]PassView, error)
	ListCurrentlyOut(ctx context.Context, actor policy.Actor) ([]PassView, error)
	Search(ctx context.Context, actor policy.Actor, q SearchQuery) ([]PassView, error)
	Dashboard(ctx context.Context, actor policy.Actor) (*Dashboard, error)
}

// LedgerConfig carries the ledger's ambient dependencies. Zero values get defaults.
type LedgerConfig struct {
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

type gatePassService struct {
	passes    repository.GatePassRepository
	users     repository.UserRepository
	publisher events.Publisher
	cache     *cache.Client
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewGatePassService creates the gate pass ledger.
func NewGatePassService(
	passes repository.GatePassRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	cache *cache.Client,
	cfg LedgerConfig,
) GatePassService {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &gatePassService{
		passes:    passes,
		users:     users,
		publisher: publisher,
		cache:     cache,
		loc:       cfg.Location,
		logger:    ResolveLogger(cfg.Logger),
		now:       cfg.Now,
	}
}

// Create records a new Pending / Not-Out pass for the acting student.
func (s *gatePassService) Create(ctx context.Context, actor policy.Actor, in CreatePassInput) (*model.GatePass, error) {
	if err := policy.Authorize(actor, policy.ActionCreatePass, actor.ID); err != nil {
		return nil, err
	}

	departAt, returnBy, err := s.parseSchedule(in)
	if err != nil {
		return nil, err
	}

	code, err := idgen.PassCode()
	if err != nil {
		return nil, err
	}

	pass := &model.GatePass{
		Code:        code,
		StudentID:   actor.ID,
		Reason:      strings.TrimSpace(in.Reason),
		Destination: strings.TrimSpace(in.Destination),
		DepartAt:    departAt,
		ReturnBy:    returnBy,
		Status:      model.PassStatusPending,
		ExitStatus:  model.ExitStatusNotOut,
	}

	err = s.passes.WithTransaction(ctx, func(ctx context.Context, tx repository.GatePassRepository) error {
		owner, err := tx.LockStudent(ctx, actor.ID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperrors.Validation("student %s does not exist", actor.ID)
			}
			return fmt.Errorf("lock student: %w", err)
		}
		if !owner.Active {
			return apperrors.Validation("student %s is not active", owner.ID)
		}
		if owner.Role != model.RoleStudent {
			return apperrors.Validation("%s is not a student", owner.ID)
		}

		pending, err := tx.CountByState(ctx, owner.ID, model.PassState{Status: model.PassStatusPending})
		if err != nil {
			return fmt.Errorf("count pending passes: %w", err)
		}
		if pending > 0 {
			return apperrors.Validation("a pending gate pass already exists, wait for the warden's decision")
		}

		out, err := tx.CountByState(ctx, owner.ID, model.PassState{Status: model.PassStatusApproved, ExitStatus: model.ExitStatusOut})
		if err != nil {
			return fmt.Errorf("count open passes: %w", err)
		}
		if out > 0 {
			return apperrors.Validation("student is currently out, mark entry before requesting a new pass")
		}

		if err := tx.Create(ctx, pass); err != nil {
			return fmt.Errorf("create gate pass: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate pass created", "pass_id", pass.ID, "code", pass.Code, "student_id", pass.StudentID)
	s.afterChange(ctx, events.TopicPassCreated, pass, actor.ID)
	return pass, nil
}

// Decide approves or rejects a pending pass. The first decision wins.
func (s *gatePassService) Decide(ctx context.Context, actor policy.Actor, passID string, outcome model.Outcome, remarks string) (*model.GatePass, error) {
	if err := policy.Authorize(actor, policy.ActionDecidePass, ""); err != nil {
		return nil, err
	}
	status, ok := outcome.Status()
	if !ok {
		return nil, apperrors.Validation("unknown outcome %q", outcome)
	}
	remarks, err := cleanRemarks(remarks)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, actor); err != nil {
		return nil, err
	}

	pass, err := s.transition(ctx, passID,
		func(p *model.GatePass) error {
			if !p.CanDecide() {
				return apperrors.InvalidState("gate pass %s is already %s", p.Code, p.Status)
			}
			return nil
		},
		func(p *model.GatePass, now time.Time) map[string]any {
			updates := map[string]any{
				"status":      status,
				"approver_id": actor.ID,
				"decided_at":  now,
			}
			if remarks != "" {
				updates["remarks"] = remarks
			}
			return updates
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("gate pass decided", "pass_id", pass.ID, "status", pass.Status, "approver_id", actor.ID)
	s.afterChange(ctx, events.TopicPassDecided, pass, actor.ID)
	return pass, nil
}

// MarkExit records the student leaving on an approved pass.
func (s *gatePassService) MarkExit(ctx context.Context, actor policy.Actor, passID string, remarks string) (*model.GatePass, error) {
	if err := policy.Authorize(actor, policy.ActionMarkExit, ""); err != nil {
		return nil, err
	}
	remarks, err := cleanRemarks(remarks)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, actor); err != nil {
		return nil, err
	}

	pass, err := s.transition(ctx, passID,
		func(p *model.GatePass) error {
			if p.CanMarkExit() {
				return nil
			}
			if p.Status != model.PassStatusApproved {
				return apperrors.InvalidState("gate pass %s is %s, not approved", p.Code, p.Status)
			}
			return apperrors.InvalidState("gate pass %s is already %s", p.Code, p.ExitStatus)
		},
		func(p *model.GatePass, now time.Time) map[string]any {
			updates := map[string]any{
				"exit_status":    model.ExitStatusOut,
				"exited_at":      now,
				"exit_marked_by": actor.ID,
			}
			if remarks != "" {
				updates["security_remarks"] = remarks
			}
			return updates
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("student marked out", "pass_id", pass.ID, "student_id", pass.StudentID, "security_id", actor.ID)
	s.afterChange(ctx, events.TopicPassExited, pass, actor.ID)
	return pass, nil
}

// MarkEntry records the student returning on a pass that is Out.
func (s *gatePassService) MarkEntry(ctx context.Context, actor policy.Actor, passID string, remarks string) (*model.GatePass, error) {
	if err := policy.Authorize(actor, policy.ActionMarkEntry, ""); err != nil {
		return nil, err
	}
	remarks, err := cleanRemarks(remarks)
	if err != nil {
		return nil, err
	}
	if err := s.requireActive(ctx, actor); err != nil {
		return nil, err
	}

	pass, err := s.transition(ctx, passID,
		func(p *model.GatePass) error {
			if !p.CanMarkEntry() {
				return apperrors.InvalidState("gate pass %s is %s, student is not out", p.Code, p.ExitStatus)
			}
			return nil
		},
		func(p *model.GatePass, now time.Time) map[string]any {
			updates := map[string]any{
				"exit_status":     model.ExitStatusReturned,
				"returned_at":     now,
				"entry_marked_by": actor.ID,
			}
			if remarks != "" {
				updates["security_remarks"] = appendReturnRemarks(p.SecurityRemarks, remarks)
			}
			return updates
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("student marked in", "pass_id", pass.ID, "student_id", pass.StudentID, "security_id", actor.ID)
	s.afterChange(ctx, events.TopicPassReturned, pass, actor.ID)
	return pass, nil
}

// transition runs load, guard and compare-and-set. A lost race re-reads once,
// so the guard sees the winner's state and reports InvalidState.
func (s *gatePassService) transition(
	ctx context.Context,
	passID string,
	guard func(p *model.GatePass) error,
	apply func(p *model.GatePass, now time.Time) map[string]any,
) (*model.GatePass, error) {
	id, err := parsePassID(passID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		pass, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := guard(pass); err != nil {
			return nil, err
		}

		ok, err := s.passes.CompareAndSwap(ctx, id, pass.State(), apply(pass, s.now().UTC()))
		if err != nil {
			return nil, fmt.Errorf("update gate pass: %w", err)
		}
		if ok {
			return s.load(ctx, id)
		}
		s.logger.Debug("gate pass changed concurrently", "pass_id", id, "attempt", attempt)
	}
	return nil, apperrors.InvalidState("gate pass %s changed concurrently, retry", id)
}

// Get returns a single pass. Students may only see their own.
func (s *gatePassService) Get(ctx context.Context, actor policy.Actor, passID string) (*PassView, error) {
	id, err := parsePassID(passID)
	if err != nil {
		return nil, err
	}
	pass, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionViewPass, pass.StudentID); err != nil {
		return nil, err
	}
	view := s.view(pass)
	return &view, nil
}

// ListForStudent lists a student's passes, newest first. An empty studentID means the actor.
func (s *gatePassService) ListForStudent(ctx context.Context, actor policy.Actor, studentID string) ([]PassView, error) {
	studentID = model.NormalizeUserID(studentID)
	if studentID == "" {
		studentID = actor.ID
	}
	if err := policy.Authorize(actor, policy.ActionViewOwnPasses, studentID); err != nil {
		return nil, err
	}
	passes, err := s.passes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student passes: %w", err)
	}
	return s.views(passes), nil
}

// ListPending lists passes awaiting a decision.
func (s *gatePassService) ListPending(ctx context.Context, actor policy.Actor) ([]PassView, error) {
	if err := policy.Authorize(actor, policy.ActionViewQueues, ""); err != nil {
		return nil, err
	}
	passes, err := s.passes.ListByStatus(ctx, model.PassStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending passes: %w", err)
	}
	return s.views(passes), nil
}

// ListApproved lists approved passes by planned departure.
func (s *gatePassService) ListApproved(ctx context.Context, actor policy.Actor) ([]PassView, error) {
	if err := policy.Authorize(actor, policy.ActionViewApproved, ""); err != nil {
		return nil, err
	}
	passes, err := s.passes.ListByStatus(ctx, model.PassStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("list approved passes: %w", err)
	}
	return s.views(passes), nil
}

// ListCurrentlyOut lists passes whose student is outside the hostel.
func (s *gatePassService) ListCurrentlyOut(ctx context.Context, actor policy.Actor) ([]PassView, error) {
	if err := policy.Authorize(actor, policy.ActionViewQueues, ""); err != nil {
		return nil, err
	}
	passes, err := s.passes.ListCurrentlyOut(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currently out: %w", err)
	}
	return s.views(passes), nil
}

// Search filters every pass for reporting.
func (s *gatePassService) Search(ctx context.Context, actor policy.Actor, q SearchQuery) ([]PassView, error) {
	if err := policy.Authorize(actor, policy.ActionSearchPasses, ""); err != nil {
		return nil, err
	}

	filter := repository.PassFilter{StudentID: model.NormalizeUserID(q.StudentID)}
	if q.Status != "" {
		status, err := parseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if q.FromDate != "" {
		from, err := time.ParseInLocation(dateLayout, q.FromDate, s.loc)
		if err != nil {
			return nil, apperrors.Validation("invalid from_date, use YYYY-MM-DD")
		}
		filter.From = &from
	}
	if q.ToDate != "" {
		to, err := time.ParseInLocation(dateLayout, q.ToDate, s.loc)
		if err != nil {
			return nil, apperrors.Validation("invalid to_date, use YYYY-MM-DD")
		}
		// inclusive of the whole last day
		to = to.AddDate(0, 0, 1)
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, apperrors.Validation("from_date must not be after to_date")
	}

	passes, err := s.passes.Search(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search passes: %w", err)
	}
	return s.views(passes), nil
}

// Dashboard returns pass counters: a student's own, or hostel-wide for staff.
func (s *gatePassService) Dashboard(ctx context.Context, actor policy.Actor) (*Dashboard, error) {
	if !actor.Role.Valid() || actor.ID == "" {
		return nil, apperrors.Authorization("unknown role may not view dashboard")
	}
	scope := dashboardScopeAll
	studentID := ""
	if actor.Role == model.RoleStudent {
		scope = actor.ID
		studentID = actor.ID
	}

	key := dashboardCacheKey(scope)
	var cached Dashboard
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	counts, err := s.passes.Counts(ctx, studentID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("count passes: %w", err)
	}
	d := &Dashboard{Scope: scope, PassCounts: *counts}
	s.cache.SetJSON(ctx, key, d, dashboardCacheTTL)
	return d, nil
}

func (s *gatePassService) parseSchedule(in CreatePassInput) (departAt, returnBy time.Time, err error) {
	reason := strings.TrimSpace(in.Reason)
	destination := strings.TrimSpace(in.Destination)
	switch {
	case reason == "":
		return departAt, returnBy, apperrors.Validation("reason is required")
	case destination == "":
		return departAt, returnBy, apperrors.Validation("destination is required")
	case len(reason) > maxReasonLength:
		return departAt, returnBy, apperrors.Validation("reason must be at most %d characters", maxReasonLength)
	case len(destination) > maxDestinationLength:
		return departAt, returnBy, apperrors.Validation("destination must be at most %d characters", maxDestinationLength)
	}

	departAt, err = s.combine(in.FromDate, in.OutTime, "fromDate", "outTime")
	if err != nil {
		return departAt, returnBy, err
	}
	returnBy, err = s.combine(in.ToDate, in.ReturnTime, "toDate", "returnTime")
	if err != nil {
		return departAt, returnBy, err
	}
	if returnBy.Before(departAt) {
		return departAt, returnBy, apperrors.Validation("return must not be before departure")
	}

	now := s.now().In(s.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if departAt.Before(today) {
		return departAt, returnBy, apperrors.Validation("fromDate cannot be in the past")
	}
	return departAt, returnBy, nil
}

func (s *gatePassService) combine(date, clock, dateField, clockField string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, apperrors.Validation("%s is required", dateField)
	}
	if clock == "" {
		return time.Time{}, apperrors.Validation("%s is required", clockField)
	}
	d, err := time.ParseInLocation(dateLayout, date, s.loc)
	if err != nil {
		return time.Time{}, apperrors.Validation("%s must be YYYY-MM-DD", dateField)
	}
	c, err := time.Parse(timeLayout, clock)
	if err != nil {
		return time.Time{}, apperrors.Validation("%s must be HH:MM", clockField)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, s.loc), nil
}

// requireActive rejects actors whose account was deactivated or changed role after the token was issued.
func (s *gatePassService) requireActive(ctx context.Context, actor policy.Actor) error {
	user, err := s.users.FindByID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.Authorization("%s %s does not exist", actor.Role, actor.ID)
		}
		return fmt.Errorf("load actor: %w", err)
	}
	if !user.Active || user.Role != actor.Role {
		return apperrors.Authorization("%s is not an active %s", actor.ID, actor.Role)
	}
	return nil
}

func (s *gatePassService) load(ctx context.Context, id uuid.UUID) (*model.GatePass, error) {
	return loadPass(ctx, s.passes, id)
}

func loadPass(ctx context.Context, passes repository.GatePassRepository, id uuid.UUID) (*model.GatePass, error) {
	pass, err := passes.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NotFound("gate pass %s not found", id)
		}
		return nil, fmt.Errorf("load gate pass: %w", err)
	}
	return pass, nil
}

// afterChange runs the best-effort side channels of a committed transition.
func (s *gatePassService) afterChange(ctx context.Context, topic string, pass *model.GatePass, actorID string) {
	_ = s.cache.Delete(ctx, dashboardCacheKey(dashboardScopeAll), dashboardCacheKey(pass.StudentID))
	if err := s.publisher.Publish(ctx, topic, events.NewPassEvent(pass, actorID, s.now().UTC())); err != nil {
		s.logger.Warn("publish gate pass event", "topic", topic, "pass_id", pass.ID, "error", err)
	}
}

func (s *gatePassService) view(p *model.GatePass) PassView {
	return newPassView(p, s.now())
}

func newPassView(p *model.GatePass, now time.Time) PassView {
	return PassView{GatePass: *p, Overdue: p.IsOverdue(now), MinutesOut: p.MinutesOut(now)}
}

func (s *gatePassService) views(passes []model.GatePass) []PassView {
	out := make([]PassView, 0, len(passes))
	for i := range passes {
		out = append(out, s.view(&passes[i]))
	}
	return out
}

const dashboardScopeAll = "all"

func dashboardCacheKey(scope string) string {
	return "gatepass:dashboard:" + scope
}

func parsePassID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.NotFound("gate pass %q not found", raw)
	}
	return id, nil
}

func parseStatus(raw string) (model.PassStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return model.PassStatusPending, nil
	case "approved":
		return model.PassStatusApproved, nil
	case "rejected":
		return model.PassStatusRejected, nil
	}
	return "", apperrors.Validation("unknown status %q", raw)
}

func cleanRemarks(remarks string) (string, error) {
	remarks = strings.TrimSpace(remarks)
	if len(remarks) > maxRemarksLength {
		return "", apperrors.Validation("remarks must be at most %d characters", maxRemarksLength)
	}
	return remarks, nil
}

func appendReturnRemarks(existing *string, remarks string) string {
	if existing == nil || *existing == "" {
		return "Return: " + remarks
	}
	return *existing + " | Return: " + remarks
}
