package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PassStatus is the approval state of a gate pass.
type PassStatus string

const (
	PassStatusPending  PassStatus = "Pending"
	PassStatusApproved PassStatus = "Approved"
	PassStatusRejected PassStatus = "Rejected"
)

// ExitStatus is the physical in/out state observed by security.
type ExitStatus string

const (
	ExitStatusNotOut   ExitStatus = "Not-Out"
	ExitStatusOut      ExitStatus = "Out"
	ExitStatusReturned ExitStatus = "Returned"
)

// Outcome is a warden's decision on a pending pass.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// Status returns the PassStatus an outcome moves a pending pass to.
func (o Outcome) Status() (PassStatus, bool) {
	switch o {
	case OutcomeApprove:
		return PassStatusApproved, true
	case OutcomeReject:
		return PassStatusRejected, true
	}
	return "", false
}

// PassState is the pair of columns every transition is conditioned on.
type PassState struct {
	Status     PassStatus
	ExitStatus ExitStatus
}

// GatePass is a student's request to leave and return to the hostel.
// Passes are never deleted; decisions and gate events are recorded on the row.
type GatePass struct {
	ID          uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Code        string     `json:"code" gorm:"size:16;not null;uniqueIndex"`
	StudentID   string     `json:"student_id" gorm:"size:20;not null;index"`
	Reason      string     `json:"reason" gorm:"type:text;not null"`
	Destination string     `json:"destination" gorm:"size:255;not null"`
	DepartAt    time.Time  `json:"depart_at" gorm:"not null;index"`
	ReturnBy    time.Time  `json:"return_by" gorm:"not null"`
	Status      PassStatus `json:"status" gorm:"type:varchar(20);not null;default:'Pending';index"`
	ExitStatus  ExitStatus `json:"exit_status" gorm:"type:varchar(20);not null;default:'Not-Out';index"`

	ApproverID *string    `json:"approver_id,omitempty" gorm:"size:20;index"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	Remarks    *string    `json:"remarks,omitempty" gorm:"type:text"`

	ExitedAt        *time.Time `json:"exited_at,omitempty"`
	ExitMarkedBy    *string    `json:"exit_marked_by,omitempty" gorm:"size:20"`
	ReturnedAt      *time.Time `json:"returned_at,omitempty"`
	EntryMarkedBy   *string    `json:"entry_marked_by,omitempty" gorm:"size:20"`
	SecurityRemarks *string    `json:"security_remarks,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Student  *User `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Approver *User `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *GatePass) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// State returns the current transition guard columns.
func (p *GatePass) State() PassState {
	return PassState{Status: p.Status, ExitStatus: p.ExitStatus}
}

// CanDecide reports whether a warden decision is still possible.
func (p *GatePass) CanDecide() bool {
	return p.Status == PassStatusPending
}

// CanMarkExit reports whether security may log the student leaving.
func (p *GatePass) CanMarkExit() bool {
	return p.Status == PassStatusApproved && p.ExitStatus == ExitStatusNotOut
}

// CanMarkEntry reports whether security may log the student returning.
func (p *GatePass) CanMarkEntry() bool {
	return p.Status == PassStatusApproved && p.ExitStatus == ExitStatusOut
}

// IsOverdue reports whether the student is still out after the planned return.
func (p *GatePass) IsOverdue(now time.Time) bool {
	return p.ExitStatus == ExitStatusOut && now.After(p.ReturnBy)
}

// MinutesOut is how long the student has been out, or zero when not out.
func (p *GatePass) MinutesOut(now time.Time) int64 {
	if p.ExitStatus != ExitStatusOut || p.ExitedAt == nil {
		return 0
	}
	return int64(now.Sub(*p.ExitedAt) / time.Minute)
}
