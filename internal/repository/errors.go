// Package repository implements the MySQL persistence layer. Sentinel
// errors defined here let handlers distinguish failure modes without
// string matching; workflow-level errors (not found, forbidden, invalid
// transition) live in internal/workflow.
package repository

import (
	"errors"
	"strings"
)

// ErrEmailExists is returned when a user registration collides with an
// existing email. Handlers translate it to HTTP 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned when a vendor name collides with an
// existing vendor. Vendor names carry a unique constraint.
var ErrNameExists = errors.New("vendor name already exists")

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062). The driver does not expose a typed error for it.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
