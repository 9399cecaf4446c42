package model

import "time"

// Activity action tags. Free-form in the schema but every engine
// operation writes one of these.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionSubmitted = "submitted"
	ActionClosed    = "closed"
	ActionReturned  = "returned"
	ActionReopened  = "reopened"
)

// ActivityEntry is one row of a SCAR's append-only activity trail.
// Entries are never mutated or deleted individually; they cascade with
// their SCAR. UserID is empty for system-originated entries.
type ActivityEntry struct {
	ID        string
	ScarID    string
	UserID    string
	UserName  string // joined from users, not a column
	Action    string
	Details   string
	CreatedAt time.Time
}
