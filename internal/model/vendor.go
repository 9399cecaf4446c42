package model

import "time"

// Vendor is a supplier organization. Vendor names are unique; deleting a
// vendor cascades to its contacts while SCARs keep a nulled reference.
type Vendor struct {
	ID        string
	Name      string
	Address   string
	Phone     string
	CreatedAt time.Time
}

// VendorContact is a named contact at a vendor. At most one contact per
// vendor is conventionally flagged primary; this is not enforced by the
// schema.
type VendorContact struct {
	ID        string
	VendorID  string
	Name      string
	Email     string
	Phone     string
	IsPrimary bool
}
