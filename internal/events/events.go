package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"gatepass/internal/model"
)

// Event topic constants
const (
	TopicPassCreated  = "gatepass.pass.created"
	TopicPassDecided  = "gatepass.pass.decided"
	TopicPassExited   = "gatepass.pass.exited"
	TopicPassReturned = "gatepass.pass.returned"
)

// PassEvent is published after every committed lifecycle transition.
type PassEvent struct {
	PassID     uuid.UUID        `json:"pass_id"`
	Code       string           `json:"code"`
	StudentID  string           `json:"student_id"`
	ActorID    string           `json:"actor_id"`
	Status     model.PassStatus `json:"status"`
	ExitStatus model.ExitStatus `json:"exit_status"`
	At         time.Time        `json:"at"`
}

// NewPassEvent snapshots pass after a transition performed by actorID.
func NewPassEvent(pass *model.GatePass, actorID string, at time.Time) PassEvent {
	return PassEvent{
		PassID:     pass.ID,
		Code:       pass.Code,
		StudentID:  pass.StudentID,
		ActorID:    actorID,
		Status:     pass.Status,
		ExitStatus: pass.ExitStatus,
		At:         at,
	}
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
