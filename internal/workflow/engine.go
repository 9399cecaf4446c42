package workflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// Actor is the request-scoped identity every operation is judged
// against. It is passed explicitly on each call; the engine keeps no
// session state.
type Actor struct {
	UserID   string
	Role     model.Role
	VendorID string // empty for admins
}

// owns reports whether a supplier actor belongs to the SCAR's vendor.
// Admins own everything.
func (a Actor) owns(s model.Scar) bool {
	return a.Role == model.RoleAdmin || (a.VendorID != "" && a.VendorID == s.VendorID)
}

// Engine is the SCAR workflow state machine. All authorization and
// status precondition checks happen here; the store only persists.
type Engine struct {
	store Store
}

func New(store Store) *Engine { return &Engine{store: store} }

// CreateScarInput carries the two creation-time sections: SCAR details
// and the non-conformity description. Everything else starts empty and
// is filled through section edits.
type CreateScarInput struct {
	DateIssued       string
	ResponseDueDate  string
	VendorID         string
	VendorContactID  string
	NCRNumber        string
	POSONumber       string
	PartSKUNumber    string
	AffectedQuantity int
	LotNumbers       string

	ProductName              string
	DefectType               string
	NonconformityDescription string
	Severity                 model.Severity
}

// CreateScar opens a new SCAR against a vendor. Admin only. The SCAR
// number is assigned by the store inside the creation transaction and
// the status is forced to open; the schema's 'new' value is never
// produced here.
func (e *Engine) CreateScar(ctx context.Context, in CreateScarInput, actor Actor) (model.Scar, error) {
	if actor.Role != model.RoleAdmin {
		return model.Scar{}, ErrForbidden
	}

	var missing []string
	if in.VendorID == "" {
		missing = append(missing, "vendor_id")
	}
	if in.VendorContactID == "" {
		missing = append(missing, "vendor_contact_id")
	}
	if in.ProductName == "" {
		missing = append(missing, "product_name")
	}
	if in.DefectType == "" {
		missing = append(missing, "defect_type")
	}
	if in.NonconformityDescription == "" {
		missing = append(missing, "nonconformity_description")
	}
	if len(missing) > 0 {
		return model.Scar{}, &ValidationError{Missing: missing}
	}
	if !in.Severity.Valid() {
		return model.Scar{}, &ValidationError{Missing: []string{"severity"}}
	}

	s := model.Scar{
		ID:     uuid.NewString(),
		Status: model.StatusOpen,

		DateIssued:       in.DateIssued,
		ResponseDueDate:  in.ResponseDueDate,
		VendorID:         in.VendorID,
		VendorContactID:  in.VendorContactID,
		NCRNumber:        in.NCRNumber,
		POSONumber:       in.POSONumber,
		PartSKUNumber:    in.PartSKUNumber,
		AffectedQuantity: in.AffectedQuantity,
		LotNumbers:       in.LotNumbers,

		ProductName:              in.ProductName,
		DefectType:               in.DefectType,
		NonconformityDescription: in.NonconformityDescription,
		Severity:                 in.Severity,

		CreatedBy: actor.UserID,
	}
	entry := model.ActivityEntry{
		ID:     uuid.NewString(),
		ScarID: s.ID,
		UserID: actor.UserID,
		Action: model.ActionCreated,
	}
	if err := e.store.CreateScar(ctx, &s, &entry); err != nil {
		return model.Scar{}, fmt.Errorf("create scar: %w", err)
	}
	return e.store.GetScar(ctx, s.ID)
}

// GetScar loads one SCAR. Suppliers only see SCARs of their own vendor.
func (e *Engine) GetScar(ctx context.Context, id string, actor Actor) (model.Scar, error) {
	s, err := e.store.GetScar(ctx, id)
	if err != nil {
		return model.Scar{}, err
	}
	if !actor.owns(s) {
		return model.Scar{}, ErrForbidden
	}
	return s, nil
}

// ListScars applies the filter, forcing the vendor filter for supplier
// actors so they cannot widen their visible set.
func (e *Engine) ListScars(ctx context.Context, f ScarFilter, actor Actor) ([]model.Scar, error) {
	if actor.Role != model.RoleAdmin {
		f.VendorID = actor.VendorID
	}
	return e.store.ListScars(ctx, f)
}

// Stats aggregates dashboard counts, scoped the same way as ListScars.
func (e *Engine) Stats(ctx context.Context, vendorID string, actor Actor) (model.ScarStats, error) {
	if actor.Role != model.RoleAdmin {
		vendorID = actor.VendorID
	}
	return e.store.ScarStats(ctx, vendorID)
}

// Activity returns the SCAR's trail newest-first, subject to the same
// ownership check as GetScar.
func (e *Engine) Activity(ctx context.Context, scarID string, actor Actor) ([]model.ActivityEntry, error) {
	s, err := e.store.GetScar(ctx, scarID)
	if err != nil {
		return nil, err
	}
	if !actor.owns(s) {
		return nil, ErrForbidden
	}
	return e.store.ListActivity(ctx, scarID)
}

// EditSection applies one section's field changes.
//
// Supplier sections (containment, root cause, correction, prevention)
// are writable by an admin or the owning supplier while the status is
// new or open. The verification section is admin-only and not
// constrained by status; locking it after close is a UI convention, not
// an engine rule. Role and ownership violations return ErrForbidden;
// a status that blocks an otherwise-permitted write returns
// ErrInvalidTransition.
func (e *Engine) EditSection(ctx context.Context, id string, upd SectionUpdate, actor Actor) (model.Scar, error) {
	s, err := e.store.GetScar(ctx, id)
	if err != nil {
		return model.Scar{}, err
	}
	if !actor.owns(s) {
		return model.Scar{}, ErrForbidden
	}
	if upd.Section().adminOnly() {
		if actor.Role != model.RoleAdmin {
			return model.Scar{}, ErrForbidden
		}
	} else if !s.Status.Editable() {
		return model.Scar{}, ErrInvalidTransition
	}

	entry := model.ActivityEntry{
		ID:      uuid.NewString(),
		ScarID:  s.ID,
		UserID:  actor.UserID,
		Action:  model.ActionUpdated,
		Details: "SCAR updated",
	}
	if err := e.store.UpdateScar(ctx, s.ID, upd, nil, &entry); err != nil {
		return model.Scar{}, fmt.Errorf("edit section: %w", err)
	}
	return e.store.GetScar(ctx, s.ID)
}

// Labels used when naming incomplete sections back to the supplier.
const (
	labelContainment = "Containment - Isolate Affected Inventory"
	labelRootCause   = "Root Cause Analysis"
	labelCorrection  = "Corrective Action"
	labelPrevention  = "Preventive Action"
)

// Submit transitions an open SCAR to submitted on behalf of the owning
// supplier. The four supplier sections must each have content; the
// returned IncompleteSubmissionError names the ones that do not.
func (e *Engine) Submit(ctx context.Context, id string, actor Actor) (model.Scar, error) {
	if actor.Role != model.RoleSupplier {
		return model.Scar{}, ErrForbidden
	}
	s, err := e.store.GetScar(ctx, id)
	if err != nil {
		return model.Scar{}, err
	}
	if !actor.owns(s) {
		return model.Scar{}, ErrForbidden
	}
	if !s.Status.Editable() {
		return model.Scar{}, ErrInvalidTransition
	}

	var missing []string
	if s.ContainmentIsolate == "" {
		missing = append(missing, labelContainment)
	}
	if s.RootCause == "" {
		missing = append(missing, labelRootCause)
	}
	if s.CorrectiveAction == "" {
		missing = append(missing, labelCorrection)
	}
	if s.PreventiveAction == "" {
		missing = append(missing, labelPrevention)
	}
	if len(missing) > 0 {
		return model.Scar{}, &IncompleteSubmissionError{Missing: missing}
	}

	return e.transition(ctx, s, model.StatusSubmitted, actor, model.ActionSubmitted, "Supplier response submitted")
}

// Verify resolves a submitted SCAR (admin only). accept closes it,
// otherwise it returns to the supplier as open. With reopen set it
// instead reopens a closed SCAR; accept is ignored in that case.
func (e *Engine) Verify(ctx context.Context, id string, actor Actor, accept, reopen bool) (model.Scar, error) {
	if actor.Role != model.RoleAdmin {
		return model.Scar{}, ErrForbidden
	}
	s, err := e.store.GetScar(ctx, id)
	if err != nil {
		return model.Scar{}, err
	}

	if reopen {
		if s.Status != model.StatusClosed {
			return model.Scar{}, ErrInvalidTransition
		}
		return e.transition(ctx, s, model.StatusOpen, actor, model.ActionReopened, "SCAR reopened for revision")
	}

	if s.Status != model.StatusSubmitted {
		return model.Scar{}, ErrInvalidTransition
	}
	if accept {
		return e.transition(ctx, s, model.StatusClosed, actor, model.ActionClosed, "SCAR verified and closed")
	}
	return e.transition(ctx, s, model.StatusOpen, actor, model.ActionReturned, "SCAR returned to supplier for revision")
}

// transition persists a status change together with its activity entry.
func (e *Engine) transition(ctx context.Context, s model.Scar, to model.ScarStatus, actor Actor, action, details string) (model.Scar, error) {
	entry := model.ActivityEntry{
		ID:      uuid.NewString(),
		ScarID:  s.ID,
		UserID:  actor.UserID,
		Action:  action,
		Details: details,
	}
	if err := e.store.UpdateScar(ctx, s.ID, nil, &to, &entry); err != nil {
		return model.Scar{}, fmt.Errorf("transition to %s: %w", to, err)
	}
	return e.store.GetScar(ctx, s.ID)
}
