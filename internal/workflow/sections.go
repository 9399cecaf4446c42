package workflow

import (
	"fmt"

	"github.com/calyxcontainers/scar-service/internal/model"
)

// Section names the five writable workflow sections. Header details and
// the non-conformity description are set once at creation and have no
// Section value because nothing may edit them afterward.
type Section string

const (
	SectionContainment  Section = "containment"
	SectionRootCause    Section = "root_cause"
	SectionCorrection   Section = "correction"
	SectionPrevention   Section = "prevention"
	SectionVerification Section = "verification"
)

// adminOnly reports whether the section belongs to the issuing quality
// team rather than the supplier.
func (s Section) adminOnly() bool { return s == SectionVerification }

// SectionUpdate is one section's worth of field changes. Columns feeds
// the SQL store's UPDATE statement; Apply mutates an in-memory record
// the same way, so alternate store implementations stay in agreement.
type SectionUpdate interface {
	Section() Section
	Columns() map[string]any
	Apply(s *model.Scar)
}

// ContainmentUpdate writes section 3.
type ContainmentUpdate struct {
	Isolate    string
	ScreenSort string
	PreparedBy string
	Date       string
}

func (u ContainmentUpdate) Section() Section { return SectionContainment }

func (u ContainmentUpdate) Columns() map[string]any {
	return map[string]any{
		"containment_isolate":     u.Isolate,
		"containment_screen_sort": u.ScreenSort,
		"containment_prepared_by": u.PreparedBy,
		"containment_date":        u.Date,
	}
}

func (u ContainmentUpdate) Apply(s *model.Scar) {
	s.ContainmentIsolate = u.Isolate
	s.ContainmentScreenSort = u.ScreenSort
	s.ContainmentPreparedBy = u.PreparedBy
	s.ContainmentDate = u.Date
}

// RootCauseUpdate writes section 4.
type RootCauseUpdate struct {
	RootCause  string
	Evidence   string
	ApprovedBy string
	Date       string
}

func (u RootCauseUpdate) Section() Section { return SectionRootCause }

func (u RootCauseUpdate) Columns() map[string]any {
	return map[string]any{
		"root_cause":             u.RootCause,
		"root_cause_evidence":    u.Evidence,
		"root_cause_approved_by": u.ApprovedBy,
		"root_cause_date":        u.Date,
	}
}

func (u RootCauseUpdate) Apply(s *model.Scar) {
	s.RootCause = u.RootCause
	s.RootCauseEvidence = u.Evidence
	s.RootCauseApprovedBy = u.ApprovedBy
	s.RootCauseDate = u.Date
}

// CorrectionUpdate writes section 5.
type CorrectionUpdate struct {
	CorrectiveAction string
	ApprovedBy       string
	Date             string
}

func (u CorrectionUpdate) Section() Section { return SectionCorrection }

func (u CorrectionUpdate) Columns() map[string]any {
	return map[string]any{
		"corrective_action":      u.CorrectiveAction,
		"correction_approved_by": u.ApprovedBy,
		"correction_date":        u.Date,
	}
}

func (u CorrectionUpdate) Apply(s *model.Scar) {
	s.CorrectiveAction = u.CorrectiveAction
	s.CorrectionApprovedBy = u.ApprovedBy
	s.CorrectionDate = u.Date
}

// PreventionUpdate writes section 6.
type PreventionUpdate struct {
	PreventiveAction string
	ApprovedBy       string
	Date             string
}

func (u PreventionUpdate) Section() Section { return SectionPrevention }

func (u PreventionUpdate) Columns() map[string]any {
	return map[string]any{
		"preventive_action":      u.PreventiveAction,
		"prevention_approved_by": u.ApprovedBy,
		"prevention_date":        u.Date,
	}
}

func (u PreventionUpdate) Apply(s *model.Scar) {
	s.PreventiveAction = u.PreventiveAction
	s.PreventionApprovedBy = u.ApprovedBy
	s.PreventionDate = u.Date
}

// VerificationUpdate writes section 7. Acceptable must be "", "yes" or
// "no"; the empty string means the reviewer has not decided yet.
type VerificationUpdate struct {
	Acceptable         string
	EffectivenessCheck string
	VerifiedBy         string
	Date               string
}

func (u VerificationUpdate) Section() Section { return SectionVerification }

func (u VerificationUpdate) Columns() map[string]any {
	return map[string]any{
		"verification_acceptable": u.Acceptable,
		"effectiveness_check":     u.EffectivenessCheck,
		"verified_by":             u.VerifiedBy,
		"verification_date":       u.Date,
	}
}

func (u VerificationUpdate) Apply(s *model.Scar) {
	s.VerificationAcceptable = u.Acceptable
	s.EffectivenessCheck = u.EffectivenessCheck
	s.VerifiedBy = u.VerifiedBy
	s.VerificationDate = u.Date
}

// SectionFields is the flat wire shape for a section edit. Callers bind
// the request body into it and UpdateForSection picks the fields that
// belong to the named section.
type SectionFields struct {
	ContainmentIsolate    string `json:"containment_isolate"`
	ContainmentScreenSort string `json:"containment_screen_sort"`
	ContainmentPreparedBy string `json:"containment_prepared_by"`
	ContainmentDate       string `json:"containment_date"`

	RootCause           string `json:"root_cause"`
	RootCauseEvidence   string `json:"root_cause_evidence"`
	RootCauseApprovedBy string `json:"root_cause_approved_by"`
	RootCauseDate       string `json:"root_cause_date"`

	CorrectiveAction     string `json:"corrective_action"`
	CorrectionApprovedBy string `json:"correction_approved_by"`
	CorrectionDate       string `json:"correction_date"`

	PreventiveAction     string `json:"preventive_action"`
	PreventionApprovedBy string `json:"prevention_approved_by"`
	PreventionDate       string `json:"prevention_date"`

	VerificationAcceptable string `json:"verification_acceptable"`
	EffectivenessCheck     string `json:"effectiveness_check"`
	VerifiedBy             string `json:"verified_by"`
	VerificationDate       string `json:"verification_date"`
}

// UpdateForSection builds the typed update for the named section.
func UpdateForSection(section Section, f SectionFields) (SectionUpdate, error) {
	switch section {
	case SectionContainment:
		return ContainmentUpdate{
			Isolate:    f.ContainmentIsolate,
			ScreenSort: f.ContainmentScreenSort,
			PreparedBy: f.ContainmentPreparedBy,
			Date:       f.ContainmentDate,
		}, nil
	case SectionRootCause:
		return RootCauseUpdate{
			RootCause:  f.RootCause,
			Evidence:   f.RootCauseEvidence,
			ApprovedBy: f.RootCauseApprovedBy,
			Date:       f.RootCauseDate,
		}, nil
	case SectionCorrection:
		return CorrectionUpdate{
			CorrectiveAction: f.CorrectiveAction,
			ApprovedBy:       f.CorrectionApprovedBy,
			Date:             f.CorrectionDate,
		}, nil
	case SectionPrevention:
		return PreventionUpdate{
			PreventiveAction: f.PreventiveAction,
			ApprovedBy:       f.PreventionApprovedBy,
			Date:             f.PreventionDate,
		}, nil
	case SectionVerification:
		switch f.VerificationAcceptable {
		case "", "yes", "no":
		default:
			return nil, fmt.Errorf("verification_acceptable must be empty, yes or no")
		}
		return VerificationUpdate{
			Acceptable:         f.VerificationAcceptable,
			EffectivenessCheck: f.EffectivenessCheck,
			VerifiedBy:         f.VerifiedBy,
			Date:               f.VerificationDate,
		}, nil
	}
	return nil, fmt.Errorf("unknown section %q", section)
}
