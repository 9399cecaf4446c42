package model

import "time"

// ScarStatus is the lifecycle state of a SCAR. The legal transitions are
// open -> submitted -> closed, submitted -> open (returned), and
// closed -> open (reopened). The 'new' value exists in the schema's
// enumerated domain but no production path creates it; authorization
// treats it exactly like 'open'.
type ScarStatus string

const (
	StatusNew       ScarStatus = "new"
	StatusOpen      ScarStatus = "open"
	StatusSubmitted ScarStatus = "submitted"
	StatusClosed    ScarStatus = "closed"
)

func (s ScarStatus) Valid() bool {
	switch s {
	case StatusNew, StatusOpen, StatusSubmitted, StatusClosed:
		return true
	}
	return false
}

// Editable reports whether supplier sections may still be written. 'new'
// is deliberately equivalent to 'open' here.
func (s ScarStatus) Editable() bool { return s == StatusNew || s == StatusOpen }

// Severity classifies the non-conformity.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	return s == SeverityMinor || s == SeverityMajor || s == SeverityCritical
}

// Scar mirrors the 'scars' table. The fields group into the seven
// workflow sections: header details and non-conformity are written once
// at creation, containment through prevention belong to the supplier,
// verification to the issuing quality team.
//
// All date fields except the audit timestamps are fixed-width
// "YYYY-MM-DD" strings; the fixed width makes lexicographic comparison
// a correct date comparison, which the overdue query relies on.
type Scar struct {
	ID         string
	ScarNumber string
	Status     ScarStatus

	// Section 1: SCAR details, immutable after creation.
	DateIssued       string
	ResponseDueDate  string
	VendorID         string
	VendorContactID  string
	NCRNumber        string
	POSONumber       string
	PartSKUNumber    string
	AffectedQuantity int
	LotNumbers       string

	// Section 2: non-conformity, immutable after creation.
	ProductName              string
	DefectType               string
	NonconformityDescription string
	Severity                 Severity

	// Section 3: containment (supplier).
	ContainmentIsolate    string
	ContainmentScreenSort string
	ContainmentPreparedBy string
	ContainmentDate       string

	// Section 4: root cause (supplier).
	RootCause           string
	RootCauseEvidence   string
	RootCauseApprovedBy string
	RootCauseDate       string

	// Section 5: correction (supplier).
	CorrectiveAction     string
	CorrectionApprovedBy string
	CorrectionDate       string

	// Section 6: prevention (supplier).
	PreventiveAction     string
	PreventionApprovedBy string
	PreventionDate       string

	// Section 7: verification (admin). Acceptable is '', 'yes' or 'no'.
	VerificationAcceptable string
	EffectivenessCheck     string
	VerifiedBy             string
	VerificationDate       string

	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Joined display fields, not columns of 'scars'.
	VendorName   string
	ContactName  string
	ContactEmail string
}

// Overdue reports whether the SCAR is still awaiting a supplier response
// past its due date. today must be a "YYYY-MM-DD" string.
func (s Scar) Overdue(today string) bool {
	return s.Status.Editable() && s.ResponseDueDate != "" && s.ResponseDueDate < today
}

// ScarStats aggregates counts for the dashboard.
type ScarStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Open      int `json:"open"`
	Submitted int `json:"submitted"`
	Closed    int `json:"closed"`
	Overdue   int `json:"overdue"`
}
