package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of user kinds the hostel knows about.
type Role string

const (
	RoleStudent  Role = "student"
	RoleWarden   Role = "warden"
	RoleSecurity Role = "security"
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleWarden, RoleSecurity}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleWarden, RoleSecurity:
		return true
	}
	return false
}

// User is a student, warden or security staff member.
// Student and staff profile columns share one table; the ones that do not apply stay empty.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:20"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;index"`
	Email        *string   `json:"email,omitempty" gorm:"size:120;uniqueIndex"`
	Phone        string    `json:"phone,omitempty" gorm:"size:20"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	Active       bool      `json:"active" gorm:"not null;default:true;index"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Student profile
	Room          string `json:"room,omitempty" gorm:"size:20"`
	Course        string `json:"course,omitempty" gorm:"size:100"`
	Year          string `json:"year,omitempty" gorm:"size:20"`
	GuardianName  string `json:"guardian_name,omitempty" gorm:"size:100"`
	GuardianPhone string `json:"guardian_phone,omitempty" gorm:"size:20"`

	// Staff profile
	Designation      string `json:"designation,omitempty" gorm:"size:50"`
	Department       string `json:"department,omitempty" gorm:"size:100"`
	Shift            string `json:"shift,omitempty" gorm:"size:50"`
	EmergencyContact string `json:"emergency_contact,omitempty" gorm:"size:20"`
}

// NormalizeUserID upper-cases and trims an identifier the way ids are stored.
func NormalizeUserID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
