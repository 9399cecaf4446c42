package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// memStore is an in-memory Store used to exercise the engine without a
// database. It mirrors the SQL store's observable behavior: per-year
// sequential numbering, newest-first ordering and atomic write+entry
// pairs.
type memStore struct {
	mu      sync.Mutex
	year    int
	seq     map[int]int
	scars   map[string]model.Scar
	order   []string
	entries map[string][]model.ActivityEntry
	clock   time.Time
}

func newMemStore() *memStore {
	return &memStore{
		year:    2026,
		seq:     map[int]int{},
		scars:   map[string]model.Scar{},
		entries: map[string][]model.ActivityEntry{},
		clock:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) GetScar(_ context.Context, id string) (model.Scar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scars[id]
	if !ok {
		return model.Scar{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) ListScars(_ context.Context, f ScarFilter) ([]model.Scar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Scar
	for i := len(m.order) - 1; i >= 0; i-- {
		s := m.scars[m.order[i]]
		if f.VendorID != "" && s.VendorID != f.VendorID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) ScarStats(_ context.Context, vendorID string) (model.ScarStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	today := m.clock.Format("2006-01-02")
	var stats model.ScarStats
	for _, s := range m.scars {
		if vendorID != "" && s.VendorID != vendorID {
			continue
		}
		stats.Total++
		switch s.Status {
		case model.StatusNew:
			stats.New++
		case model.StatusOpen:
			stats.Open++
		case model.StatusSubmitted:
			stats.Submitted++
		case model.StatusClosed:
			stats.Closed++
		}
		if s.Overdue(today) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func (m *memStore) CreateScar(_ context.Context, s *model.Scar, e *model.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[m.year]++
	s.ScarNumber = fmt.Sprintf("SCAR-%d-%03d", m.year, m.seq[m.year])
	now := m.tick()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.scars[s.ID] = *s
	m.order = append(m.order, s.ID)

	e.Details = CreationDetails(s.ScarNumber)
	e.CreatedAt = now
	m.entries[s.ID] = append(m.entries[s.ID], *e)
	return nil
}

func (m *memStore) UpdateScar(_ context.Context, id string, upd SectionUpdate, status *model.ScarStatus, e *model.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scars[id]
	if !ok {
		return ErrNotFound
	}
	if upd != nil {
		upd.Apply(&s)
	}
	if status != nil {
		s.Status = *status
	}
	now := m.tick()
	s.UpdatedAt = now
	m.scars[id] = s

	e.CreatedAt = now
	m.entries[id] = append(m.entries[id], *e)
	return nil
}

func (m *memStore) ListActivity(_ context.Context, scarID string) ([]model.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.entries[scarID]
	out := make([]model.ActivityEntry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, src[i])
	}
	return out, nil
}

var _ Store = (*memStore)(nil)

var (
	admin     = Actor{UserID: "admin-1", Role: model.RoleAdmin}
	supplier  = Actor{UserID: "sup-1", Role: model.RoleSupplier, VendorID: "vendor-a"}
	outsider  = Actor{UserID: "sup-2", Role: model.RoleSupplier, VendorID: "vendor-b"}
)

func validInput() CreateScarInput {
	return CreateScarInput{
		DateIssued:               "2026-03-10",
		ResponseDueDate:          "2026-03-24",
		VendorID:                 "vendor-a",
		VendorContactID:          "contact-a",
		ProductName:              "16oz amber jar",
		DefectType:               "Cracked glass",
		NonconformityDescription: "Hairline cracks found in 3 of 50 sampled units.",
		Severity:                 model.SeverityMajor,
	}
}

func mustCreate(t *testing.T, eng *Engine) model.Scar {
	t.Helper()
	s, err := eng.CreateScar(context.Background(), validInput(), admin)
	require.NoError(t, err)
	return s
}

// fillSections completes the four supplier sections so Submit can pass.
func fillSections(t *testing.T, eng *Engine, id string, actor Actor) {
	t.Helper()
	ctx := context.Background()
	updates := []SectionUpdate{
		ContainmentUpdate{Isolate: "Quarantined lot 42", ScreenSort: "100% inspection", PreparedBy: "J. Smith", Date: "2026-03-11"},
		RootCauseUpdate{RootCause: "Annealing oven ran cold", Evidence: "Temp logs attached", ApprovedBy: "J. Smith", Date: "2026-03-12"},
		CorrectionUpdate{CorrectiveAction: "Recalibrated oven zone 2", ApprovedBy: "J. Smith", Date: "2026-03-13"},
		PreventionUpdate{PreventiveAction: "Weekly calibration check added", ApprovedBy: "J. Smith", Date: "2026-03-13"},
	}
	for _, u := range updates {
		_, err := eng.EditSection(ctx, id, u, actor)
		require.NoError(t, err)
	}
}

func TestCreateScar(t *testing.T) {
	store := newMemStore()
	eng := New(store)
	ctx := context.Background()

	s, err := eng.CreateScar(ctx, validInput(), admin)
	require.NoError(t, err)
	assert.Equal(t, "SCAR-2026-001", s.ScarNumber)
	assert.Equal(t, model.StatusOpen, s.Status)
	assert.Equal(t, "admin-1", s.CreatedBy)

	trail, err := eng.Activity(ctx, s.ID, admin)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, model.ActionCreated, trail[0].Action)
	assert.Equal(t, "SCAR SCAR-2026-001 created", trail[0].Details)
}

func TestCreateScarNumbersArePerYear(t *testing.T) {
	store := newMemStore()
	eng := New(store)
	ctx := context.Background()

	a, err := eng.CreateScar(ctx, validInput(), admin)
	require.NoError(t, err)
	b, err := eng.CreateScar(ctx, validInput(), admin)
	require.NoError(t, err)
	assert.Equal(t, "SCAR-2026-001", a.ScarNumber)
	assert.Equal(t, "SCAR-2026-002", b.ScarNumber)

	// The sequence restarts from 001 when the calendar year rolls over.
	store.year = 2027
	c, err := eng.CreateScar(ctx, validInput(), admin)
	require.NoError(t, err)
	assert.Equal(t, "SCAR-2027-001", c.ScarNumber)
}

func TestCreateScarValidation(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()

	in := validInput()
	in.VendorID = ""
	in.ProductName = ""
	_, err := eng.CreateScar(ctx, in, admin)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"vendor_id", "product_name"}, vErr.Missing)

	in = validInput()
	in.Severity = "catastrophic"
	_, err = eng.CreateScar(ctx, in, admin)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, []string{"severity"}, vErr.Missing)

	_, err = eng.CreateScar(ctx, validInput(), supplier)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGetScarVendorScoping(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)

	got, err := eng.GetScar(ctx, s.ID, supplier)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = eng.GetScar(ctx, s.ID, outsider)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = eng.GetScar(ctx, "missing", admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListScarsSupplierPinnedToOwnVendor(t *testing.T) {
	store := newMemStore()
	eng := New(store)
	ctx := context.Background()

	mustCreate(t, eng)
	in := validInput()
	in.VendorID = "vendor-b"
	_, err := eng.CreateScar(ctx, in, admin)
	require.NoError(t, err)

	// A supplier asking for another vendor's SCARs still only gets its
	// own.
	got, err := eng.ListScars(ctx, ScarFilter{VendorID: "vendor-b"}, supplier)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "vendor-a", got[0].VendorID)

	all, err := eng.ListScars(ctx, ScarFilter{}, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListScarsNewestFirst(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	first := mustCreate(t, eng)
	second := mustCreate(t, eng)

	got, err := eng.ListScars(ctx, ScarFilter{}, admin)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestEditSectionAuthorization(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)

	cu := ContainmentUpdate{Isolate: "Quarantined", PreparedBy: "J. Smith", Date: "2026-03-11"}

	// Owning supplier and admin may both write supplier sections.
	_, err := eng.EditSection(ctx, s.ID, cu, supplier)
	require.NoError(t, err)
	_, err = eng.EditSection(ctx, s.ID, cu, admin)
	require.NoError(t, err)

	// A supplier from another vendor may not touch it at all.
	_, err = eng.EditSection(ctx, s.ID, cu, outsider)
	assert.ErrorIs(t, err, ErrForbidden)

	// Verification is reserved for admins regardless of ownership.
	vu := VerificationUpdate{Acceptable: "yes", VerifiedBy: "QA", Date: "2026-03-15"}
	_, err = eng.EditSection(ctx, s.ID, vu, supplier)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = eng.EditSection(ctx, s.ID, vu, admin)
	require.NoError(t, err)
}

func TestEditSectionBlockedAfterSubmit(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)
	fillSections(t, eng, s.ID, supplier)
	_, err := eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)

	// Supplier sections freeze once the SCAR leaves open.
	_, err = eng.EditSection(ctx, s.ID, ContainmentUpdate{Isolate: "late edit"}, supplier)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = eng.EditSection(ctx, s.ID, RootCauseUpdate{RootCause: "late edit"}, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// The verification section stays writable for the reviewer.
	_, err = eng.EditSection(ctx, s.ID, VerificationUpdate{Acceptable: "no", VerifiedBy: "QA"}, admin)
	require.NoError(t, err)
}

func TestSubmitRequiresAllSupplierSections(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)

	_, err := eng.Submit(ctx, s.ID, supplier)
	var iErr *IncompleteSubmissionError
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, []string{
		"Containment - Isolate Affected Inventory",
		"Root Cause Analysis",
		"Corrective Action",
		"Preventive Action",
	}, iErr.Missing)

	// Filling some sections narrows the list to what is still empty.
	_, err = eng.EditSection(ctx, s.ID, ContainmentUpdate{Isolate: "Quarantined"}, supplier)
	require.NoError(t, err)
	_, err = eng.EditSection(ctx, s.ID, CorrectionUpdate{CorrectiveAction: "Recalibrated"}, supplier)
	require.NoError(t, err)

	_, err = eng.Submit(ctx, s.ID, supplier)
	require.ErrorAs(t, err, &iErr)
	assert.Equal(t, []string{"Root Cause Analysis", "Preventive Action"}, iErr.Missing)
}

func TestSubmit(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)
	fillSections(t, eng, s.ID, supplier)

	// Admins issue SCARs; only the owning supplier submits the response.
	_, err := eng.Submit(ctx, s.ID, admin)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = eng.Submit(ctx, s.ID, outsider)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, got.Status)

	// A second submit is a status violation, not a validation error.
	_, err = eng.Submit(ctx, s.ID, supplier)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	trail, err := eng.Activity(ctx, s.ID, supplier)
	require.NoError(t, err)
	assert.Equal(t, model.ActionSubmitted, trail[0].Action)
	assert.Equal(t, "Supplier response submitted", trail[0].Details)
}

func TestVerifyAccept(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)
	fillSections(t, eng, s.ID, supplier)
	_, err := eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)

	before, err := eng.Activity(ctx, s.ID, admin)
	require.NoError(t, err)

	_, err = eng.Verify(ctx, s.ID, supplier, true, false)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := eng.Verify(ctx, s.ID, admin, true, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, got.Status)

	after, err := eng.Activity(ctx, s.ID, admin)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, model.ActionClosed, after[0].Action)
	assert.Equal(t, "SCAR verified and closed", after[0].Details)

	// Closed SCARs cannot be verified again.
	_, err = eng.Verify(ctx, s.ID, admin, true, false)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVerifyRejectReturnsToSupplier(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)
	fillSections(t, eng, s.ID, supplier)
	_, err := eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)

	got, err := eng.Verify(ctx, s.ID, admin, false, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)

	trail, err := eng.Activity(ctx, s.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.ActionReturned, trail[0].Action)
	assert.Equal(t, "SCAR returned to supplier for revision", trail[0].Details)

	// The supplier can revise and resubmit.
	_, err = eng.EditSection(ctx, s.ID, RootCauseUpdate{RootCause: "Revised analysis"}, supplier)
	require.NoError(t, err)
	got, err = eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, got.Status)
}

func TestReopenClosedScar(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)

	// Reopen only applies to closed SCARs.
	_, err := eng.Verify(ctx, s.ID, admin, false, true)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	fillSections(t, eng, s.ID, supplier)
	_, err = eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)
	_, err = eng.Verify(ctx, s.ID, admin, true, false)
	require.NoError(t, err)

	got, err := eng.Verify(ctx, s.ID, admin, false, true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, got.Status)

	trail, err := eng.Activity(ctx, s.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.ActionReopened, trail[0].Action)
	assert.Equal(t, "SCAR reopened for revision", trail[0].Details)

	// Back to open means the supplier sections are editable again.
	_, err = eng.EditSection(ctx, s.ID, ContainmentUpdate{Isolate: "Expanded quarantine"}, supplier)
	require.NoError(t, err)
}

func TestActivityOrderingAndScoping(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)
	fillSections(t, eng, s.ID, supplier)
	_, err := eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)

	// create + four section edits + submit
	trail, err := eng.Activity(ctx, s.ID, supplier)
	require.NoError(t, err)
	require.Len(t, trail, 6)
	assert.Equal(t, model.ActionSubmitted, trail[0].Action)
	assert.Equal(t, model.ActionCreated, trail[len(trail)-1].Action)
	for i := 1; i < len(trail); i++ {
		assert.False(t, trail[i].CreatedAt.After(trail[i-1].CreatedAt))
	}

	_, err = eng.Activity(ctx, s.ID, outsider)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStatsScoping(t *testing.T) {
	store := newMemStore()
	eng := New(store)
	ctx := context.Background()

	overdue := validInput()
	overdue.ResponseDueDate = "2026-01-01"
	_, err := eng.CreateScar(ctx, overdue, admin)
	require.NoError(t, err)

	other := validInput()
	other.VendorID = "vendor-b"
	_, err = eng.CreateScar(ctx, other, admin)
	require.NoError(t, err)

	all, err := eng.Stats(ctx, "", admin)
	require.NoError(t, err)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 2, all.Open)
	assert.Equal(t, 1, all.Overdue)

	// A supplier's stats request is pinned to its own vendor even when
	// it asks for another.
	mine, err := eng.Stats(ctx, "vendor-b", supplier)
	require.NoError(t, err)
	assert.Equal(t, 1, mine.Total)
	assert.Equal(t, 1, mine.Overdue)
}

// Full lifecycle with verification recorded before the supplier
// submits; the section edit order must not matter.
func TestLifecycleVerificationBeforeSubmit(t *testing.T) {
	eng := New(newMemStore())
	ctx := context.Background()
	s := mustCreate(t, eng)

	_, err := eng.EditSection(ctx, s.ID, VerificationUpdate{Acceptable: "yes", VerifiedBy: "QA", Date: "2026-03-20"}, admin)
	require.NoError(t, err)

	fillSections(t, eng, s.ID, supplier)
	_, err = eng.Submit(ctx, s.ID, supplier)
	require.NoError(t, err)

	got, err := eng.Verify(ctx, s.ID, admin, true, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, got.Status)
	assert.Equal(t, "yes", got.VerificationAcceptable)
}
