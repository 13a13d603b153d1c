// Package policy decides whether an actor may perform an action on a gate pass.
//
// The decision is a pure function of the actor's role and id, the action, and
// the owner of the target record. Every action is listed in one table; an
// action missing from the table is denied.
package policy

import (
	apperrors "gatepass/internal/errors"
	"gatepass/internal/model"
)

// Actor is an authenticated caller.
type Actor struct {
	ID   string
	Role model.Role
}

// Action is the closed set of operations the policy knows about.
type Action int

const (
	ActionCreatePass Action = iota + 1
	ActionDecidePass
	ActionMarkExit
	ActionMarkEntry
	ActionViewOwnPasses
	ActionViewQueues
	ActionDownloadDocument
	ActionViewPass
	ActionViewApproved
	ActionSearchPasses
	ActionVerifyDocument
)

var actionNames = map[Action]string{
	ActionCreatePass:       "create pass",
	ActionDecidePass:       "decide pass",
	ActionMarkExit:         "mark exit",
	ActionMarkEntry:        "mark entry",
	ActionViewOwnPasses:    "view own passes",
	ActionViewQueues:       "view pending/currently-out",
	ActionDownloadDocument: "download pass document",
	ActionViewPass:         "view pass",
	ActionViewApproved:     "view approved passes",
	ActionSearchPasses:     "search passes",
	ActionVerifyDocument:   "verify pass document",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown action"
}

type rule struct {
	roles map[model.Role]bool
	// ownedBy lists roles that must also own the target.
	ownedBy map[model.Role]bool
}

func roles(rs ...model.Role) map[model.Role]bool {
	m := make(map[model.Role]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}

var table = map[Action]rule{
	ActionCreatePass:       {roles: roles(model.RoleStudent), ownedBy: roles(model.RoleStudent)},
	ActionDecidePass:       {roles: roles(model.RoleWarden)},
	ActionMarkExit:         {roles: roles(model.RoleSecurity)},
	ActionMarkEntry:        {roles: roles(model.RoleSecurity)},
	ActionViewOwnPasses:    {roles: roles(model.RoleStudent), ownedBy: roles(model.RoleStudent)},
	ActionViewQueues:       {roles: roles(model.RoleWarden, model.RoleSecurity)},
	ActionDownloadDocument: {roles: roles(model.RoleStudent, model.RoleWarden, model.RoleSecurity), ownedBy: roles(model.RoleStudent)},
	ActionViewPass:         {roles: roles(model.RoleStudent, model.RoleWarden, model.RoleSecurity), ownedBy: roles(model.RoleStudent)},
	ActionViewApproved:     {roles: roles(model.RoleWarden, model.RoleSecurity)},
	ActionSearchPasses:     {roles: roles(model.RoleWarden)},
	ActionVerifyDocument:   {roles: roles(model.RoleWarden, model.RoleSecurity)},
}

// Allow reports whether actor may perform action on a record owned by ownerID.
// ownerID is ignored for actions without an ownership rule.
func Allow(actor Actor, action Action, ownerID string) bool {
	r, ok := table[action]
	if !ok || actor.ID == "" || !r.roles[actor.Role] {
		return false
	}
	if r.ownedBy[actor.Role] && actor.ID != ownerID {
		return false
	}
	return true
}

// Authorize is Allow returning an authorization error on denial.
func Authorize(actor Actor, action Action, ownerID string) error {
	if Allow(actor, action, ownerID) {
		return nil
	}
	if actor.Role.Valid() {
		return apperrors.Authorization("%s may not %s", actor.Role, action)
	}
	return apperrors.Authorization("unknown role may not %s", action)
}
