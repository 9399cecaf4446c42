package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// schemaDDL creates every table the service uses. Statements are
// ordered so foreign key targets exist before their referers, and all
// are idempotent (IF NOT EXISTS); errors propagate instead of being
// swallowed.
//
// Referential behavior: vendor contacts cascade with their vendor,
// activity entries cascade with their SCAR, and every other reference
// (user->vendor, scar->vendor, scar->contact, scar->creator,
// activity->user) is nulled when the target goes away.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS vendors (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		address VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS vendor_contacts (
		id CHAR(36) PRIMARY KEY,
		vendor_id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		phone VARCHAR(64) NOT NULL DEFAULT '',
		is_primary TINYINT(1) NOT NULL DEFAULT 0,
		FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS users (
		id CHAR(36) PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		role ENUM('admin','supplier') NOT NULL,
		vendor_id CHAR(36) NULL,
		status ENUM('pending','approved','rejected') NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS scars (
		id CHAR(36) PRIMARY KEY,
		scar_number VARCHAR(32) NOT NULL UNIQUE,
		status ENUM('new','open','submitted','closed') NOT NULL DEFAULT 'new',

		date_issued CHAR(10) NOT NULL DEFAULT '',
		response_due_date CHAR(10) NOT NULL DEFAULT '',
		vendor_id CHAR(36) NULL,
		vendor_contact_id CHAR(36) NULL,
		ncr_number VARCHAR(64) NOT NULL DEFAULT '',
		po_so_number VARCHAR(64) NOT NULL DEFAULT '',
		part_sku_number VARCHAR(64) NOT NULL DEFAULT '',
		affected_quantity INT NOT NULL DEFAULT 0,
		lot_numbers VARCHAR(255) NOT NULL DEFAULT '',

		product_name VARCHAR(255) NOT NULL,
		defect_type VARCHAR(64) NOT NULL,
		nonconformity_description TEXT NOT NULL,
		severity ENUM('minor','major','critical') NOT NULL,

		containment_isolate TEXT NOT NULL,
		containment_screen_sort TEXT NOT NULL,
		containment_prepared_by VARCHAR(255) NOT NULL DEFAULT '',
		containment_date CHAR(10) NOT NULL DEFAULT '',

		root_cause TEXT NOT NULL,
		root_cause_evidence TEXT NOT NULL,
		root_cause_approved_by VARCHAR(255) NOT NULL DEFAULT '',
		root_cause_date CHAR(10) NOT NULL DEFAULT '',

		corrective_action TEXT NOT NULL,
		correction_approved_by VARCHAR(255) NOT NULL DEFAULT '',
		correction_date CHAR(10) NOT NULL DEFAULT '',

		preventive_action TEXT NOT NULL,
		prevention_approved_by VARCHAR(255) NOT NULL DEFAULT '',
		prevention_date CHAR(10) NOT NULL DEFAULT '',

		verification_acceptable ENUM('','yes','no') NOT NULL DEFAULT '',
		effectiveness_check TEXT NOT NULL,
		verified_by VARCHAR(255) NOT NULL DEFAULT '',
		verification_date CHAR(10) NOT NULL DEFAULT '',

		created_by CHAR(36) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

		FOREIGN KEY (vendor_id) REFERENCES vendors(id) ON DELETE SET NULL,
		FOREIGN KEY (vendor_contact_id) REFERENCES vendor_contacts(id) ON DELETE SET NULL,
		FOREIGN KEY (created_by) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS scar_activity (
		id CHAR(36) PRIMARY KEY,
		scar_id CHAR(36) NOT NULL,
		user_id CHAR(36) NULL,
		action VARCHAR(32) NOT NULL,
		details TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (scar_id) REFERENCES scars(id) ON DELETE CASCADE,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id CHAR(36) NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_refresh_tokens_hash (token_hash),
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// EnsureSchema creates any missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	for i, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	log.Info("schema ensured", zap.Int("tables", len(schemaDDL)))
	return nil
}
