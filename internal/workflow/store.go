package workflow

import (
	"context"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// ScarFilter narrows ListScars. Zero values mean "no filter".
type ScarFilter struct {
	VendorID string
	Status   model.ScarStatus
}

// Store is the persistence contract the engine runs against. The SQL
// implementation lives in internal/repository; tests use an in-memory
// implementation.
//
// Both mutating methods are atomic: the SCAR write and the activity
// entry insert either both succeed or neither does. A state change with
// no audit trail (or the reverse) must be impossible.
type Store interface {
	// GetScar returns the SCAR or ErrNotFound.
	GetScar(ctx context.Context, id string) (model.Scar, error)

	// ListScars returns matching SCARs ordered by created_at descending.
	ListScars(ctx context.Context, f ScarFilter) ([]model.Scar, error)

	// ScarStats aggregates counts, optionally restricted to one vendor.
	ScarStats(ctx context.Context, vendorID string) (model.ScarStats, error)

	// CreateScar assigns s.ScarNumber (sequential per calendar year,
	// serialized against concurrent creations) and persists the SCAR
	// together with its creation entry. The entry's details are derived
	// from the assigned number via CreationDetails.
	CreateScar(ctx context.Context, s *model.Scar, e *model.ActivityEntry) error

	// UpdateScar applies a section update and/or a status change to one
	// SCAR, bumps updated_at, and appends the activity entry. At least
	// one of upd and status is non-nil.
	UpdateScar(ctx context.Context, id string, upd SectionUpdate, status *model.ScarStatus, e *model.ActivityEntry) error

	// ListActivity returns the SCAR's trail ordered newest-first.
	ListActivity(ctx context.Context, scarID string) ([]model.ActivityEntry, error)
}

// CreationDetails is the activity detail line for a freshly numbered
// SCAR. Stores call it after assigning the number so the creation entry
// and the insert share one transaction.
func CreationDetails(scarNumber string) string {
	return "SCAR " + scarNumber + " created"
}
