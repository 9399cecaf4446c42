package model

import "time"

// Role distinguishes the issuing organization's quality team from the
// supplier-side responders. Stored in the users.role enum column.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupplier Role = "supplier"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleAdmin || r == RoleSupplier }

// UserStatus tracks the registration approval state. Only approved users
// may authenticate; self-registered supplier accounts start pending.
type UserStatus string

const (
	UserPending  UserStatus = "pending"
	UserApproved UserStatus = "approved"
	UserRejected UserStatus = "rejected"
)

func (s UserStatus) Valid() bool {
	return s == UserPending || s == UserApproved || s == UserRejected
}

// User mirrors the 'users' table. VendorID is empty for admin accounts
// and required for supplier accounts; a supplier only sees SCARs whose
// vendor matches their own.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Role         Role
	VendorID     string // empty for admins
	VendorName   string // joined from vendors, not a column
	Status       UserStatus
	CreatedAt    time.Time
}

// IsAdmin is a convenience for authorization checks.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
