package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextScarNumber(t *testing.T) {
	// First number of a year.
	assert.Equal(t, "SCAR-2026-001", nextScarNumber(2026, ""))

	// Successor of the highest existing number.
	assert.Equal(t, "SCAR-2026-002", nextScarNumber(2026, "SCAR-2026-001"))
	assert.Equal(t, "SCAR-2026-100", nextScarNumber(2026, "SCAR-2026-099"))

	// Width grows past 999 instead of wrapping.
	assert.Equal(t, "SCAR-2026-1000", nextScarNumber(2026, "SCAR-2026-999"))

	// A new year starts its own sequence regardless of other years.
	assert.Equal(t, "SCAR-2027-001", nextScarNumber(2027, ""))
}

func TestIsDuplicate(t *testing.T) {
	assert.False(t, isDuplicate(nil))
	assert.True(t, isDuplicate(errMsg("Error 1062 (23000): Duplicate entry 'SCAR-2026-001' for key 'scars.scar_number'")))
	assert.False(t, isDuplicate(errMsg("Error 1452 (23000): Cannot add or update a child row")))
}

type errMsg string

func (e errMsg) Error() string { return string(e) }
