package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScarStatusEditable(t *testing.T) {
	// 'new' never appears on new records but legacy rows carrying it
	// behave exactly like open ones.
	assert.True(t, StatusNew.Editable())
	assert.True(t, StatusOpen.Editable())
	assert.False(t, StatusSubmitted.Editable())
	assert.False(t, StatusClosed.Editable())
}

func TestScarStatusValid(t *testing.T) {
	for _, s := range []ScarStatus{StatusNew, StatusOpen, StatusSubmitted, StatusClosed} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, ScarStatus("").Valid())
	assert.False(t, ScarStatus("archived").Valid())
}

func TestSeverityValid(t *testing.T) {
	assert.True(t, SeverityMinor.Valid())
	assert.True(t, SeverityMajor.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("catastrophic").Valid())
	assert.False(t, Severity("").Valid())
}

func TestScarOverdue(t *testing.T) {
	today := "2026-03-10"
	s := Scar{Status: StatusOpen, ResponseDueDate: "2026-03-01"}
	assert.True(t, s.Overdue(today))

	// Due today is not overdue yet.
	s.ResponseDueDate = today
	assert.False(t, s.Overdue(today))

	// A response already in review or accepted cannot be overdue.
	s.ResponseDueDate = "2026-03-01"
	s.Status = StatusSubmitted
	assert.False(t, s.Overdue(today))
	s.Status = StatusClosed
	assert.False(t, s.Overdue(today))

	// No due date means nothing to be late against.
	s = Scar{Status: StatusOpen}
	assert.False(t, s.Overdue(today))
}
