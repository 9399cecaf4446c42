package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calyxcontainers/scar-service/internal/model"
)

func TestUpdateForSection(t *testing.T) {
	f := SectionFields{
		ContainmentIsolate: "Quarantined lot 42",
		RootCause:          "Annealing oven ran cold",
		CorrectiveAction:   "Recalibrated oven zone 2",
		PreventiveAction:   "Weekly calibration check",
		VerifiedBy:         "QA",
	}

	for _, sec := range []Section{
		SectionContainment, SectionRootCause, SectionCorrection,
		SectionPrevention, SectionVerification,
	} {
		upd, err := UpdateForSection(sec, f)
		require.NoError(t, err, string(sec))
		assert.Equal(t, sec, upd.Section())
	}

	_, err := UpdateForSection(Section("shipping"), f)
	assert.Error(t, err)
}

func TestUpdateForSectionVerificationAcceptable(t *testing.T) {
	for _, v := range []string{"", "yes", "no"} {
		_, err := UpdateForSection(SectionVerification, SectionFields{VerificationAcceptable: v})
		assert.NoError(t, err, v)
	}
	_, err := UpdateForSection(SectionVerification, SectionFields{VerificationAcceptable: "maybe"})
	assert.Error(t, err)
}

// Columns and Apply must describe the same write: the SQL store uses
// one, in-memory stores the other.
func TestSectionUpdateColumnsMatchApply(t *testing.T) {
	u := RootCauseUpdate{
		RootCause:  "Annealing oven ran cold",
		Evidence:   "Temp logs",
		ApprovedBy: "J. Smith",
		Date:       "2026-03-12",
	}

	var s model.Scar
	u.Apply(&s)
	assert.Equal(t, u.RootCause, s.RootCause)
	assert.Equal(t, u.Evidence, s.RootCauseEvidence)
	assert.Equal(t, u.ApprovedBy, s.RootCauseApprovedBy)
	assert.Equal(t, u.Date, s.RootCauseDate)

	cols := u.Columns()
	assert.Equal(t, u.RootCause, cols["root_cause"])
	assert.Equal(t, u.Evidence, cols["root_cause_evidence"])
	assert.Equal(t, u.ApprovedBy, cols["root_cause_approved_by"])
	assert.Equal(t, u.Date, cols["root_cause_date"])

	// Only this section's columns may appear; a section edit must not
	// clobber fields it does not own.
	for name := range cols {
		assert.Contains(t, name, "root_cause")
	}
}

func TestAdminOnlySections(t *testing.T) {
	assert.True(t, SectionVerification.adminOnly())
	for _, sec := range []Section{SectionContainment, SectionRootCause, SectionCorrection, SectionPrevention} {
		assert.False(t, sec.adminOnly(), string(sec))
	}
}
