// Package policy is the single authorization table for letters, users and
// settings. Every lifecycle operation asks Can before touching storage.
package policy

import "letterdesk/internal/model"

// Operation is something an actor may attempt.
type Operation string

const (
	OpView           Operation = "view"
	OpDownload       Operation = "download"
	OpReview         Operation = "review"
	OpDelete         Operation = "delete"
	OpManageUsers    Operation = "manage_users"
	OpManageSettings Operation = "manage_settings"
)

// Actor is the caller resolved by the session boundary.
type Actor struct {
	ID   uint
	Role model.Role
}

// IsReviewer reports whether the actor may adjudicate letters.
func (a Actor) IsReviewer() bool {
	return a.Role == model.RoleCEO || a.Role == model.RoleAdmin
}

// Can reports whether actor may perform op on letter. letter may be nil for
// operations that do not concern a letter; letter operations then deny.
func Can(actor Actor, letter *model.Letter, op Operation) bool {
	switch op {
	case OpManageUsers, OpManageSettings:
		return actor.Role == model.RoleAdmin
	}

	if letter == nil {
		return false
	}

	switch op {
	case OpView, OpDownload:
		return actor.IsReviewer() || (actor.Role == model.RoleUser && letter.UploadedBy == actor.ID)
	case OpReview:
		return actor.IsReviewer()
	case OpDelete:
		return actor.Role == model.RoleAdmin
	default:
		return false
	}
}
