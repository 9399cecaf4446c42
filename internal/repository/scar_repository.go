package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/workflow"
)

// ScarRepo owns the 'scars' and 'scar_activity' tables and is the SQL
// implementation of workflow.Store. Every mutation spans the SCAR row
// and its activity entry in one transaction.
type ScarRepo struct{ DB *sql.DB }

func NewScarRepo(db *sql.DB) *ScarRepo { return &ScarRepo{DB: db} }

// compile-time check that ScarRepo satisfies the engine's contract
var _ workflow.Store = (*ScarRepo)(nil)

const scarSelect = `SELECT s.id, s.scar_number, s.status,
	s.date_issued, s.response_due_date,
	COALESCE(s.vendor_id,''), COALESCE(s.vendor_contact_id,''),
	s.ncr_number, s.po_so_number, s.part_sku_number, s.affected_quantity, s.lot_numbers,
	s.product_name, s.defect_type, s.nonconformity_description, s.severity,
	s.containment_isolate, s.containment_screen_sort, s.containment_prepared_by, s.containment_date,
	s.root_cause, s.root_cause_evidence, s.root_cause_approved_by, s.root_cause_date,
	s.corrective_action, s.correction_approved_by, s.correction_date,
	s.preventive_action, s.prevention_approved_by, s.prevention_date,
	s.verification_acceptable, s.effectiveness_check, s.verified_by, s.verification_date,
	COALESCE(s.created_by,''), s.created_at, s.updated_at,
	COALESCE(v.name,''), COALESCE(vc.name,''), COALESCE(vc.email,'')
	FROM scars s
	LEFT JOIN vendors v ON s.vendor_id = v.id
	LEFT JOIN vendor_contacts vc ON s.vendor_contact_id = vc.id`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface{ Scan(dest ...any) error }

func scanScar(row rowScanner) (model.Scar, error) {
	var s model.Scar
	err := row.Scan(&s.ID, &s.ScarNumber, &s.Status,
		&s.DateIssued, &s.ResponseDueDate,
		&s.VendorID, &s.VendorContactID,
		&s.NCRNumber, &s.POSONumber, &s.PartSKUNumber, &s.AffectedQuantity, &s.LotNumbers,
		&s.ProductName, &s.DefectType, &s.NonconformityDescription, &s.Severity,
		&s.ContainmentIsolate, &s.ContainmentScreenSort, &s.ContainmentPreparedBy, &s.ContainmentDate,
		&s.RootCause, &s.RootCauseEvidence, &s.RootCauseApprovedBy, &s.RootCauseDate,
		&s.CorrectiveAction, &s.CorrectionApprovedBy, &s.CorrectionDate,
		&s.PreventiveAction, &s.PreventionApprovedBy, &s.PreventionDate,
		&s.VerificationAcceptable, &s.EffectivenessCheck, &s.VerifiedBy, &s.VerificationDate,
		&s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
		&s.VendorName, &s.ContactName, &s.ContactEmail)
	return s, err
}

// GetScar returns one SCAR with vendor and contact names joined.
func (r *ScarRepo) GetScar(ctx context.Context, id string) (model.Scar, error) {
	s, err := scanScar(r.DB.QueryRowContext(ctx, scarSelect+" WHERE s.id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return model.Scar{}, workflow.ErrNotFound
	}
	return s, err
}

// ListScars returns SCARs newest-first, optionally filtered by vendor
// and/or status.
func (r *ScarRepo) ListScars(ctx context.Context, f workflow.ScarFilter) ([]model.Scar, error) {
	q := scarSelect + " WHERE 1=1"
	var args []any
	if f.VendorID != "" {
		q += " AND s.vendor_id=?"
		args = append(args, f.VendorID)
	}
	if f.Status != "" {
		q += " AND s.status=?"
		args = append(args, f.Status)
	}
	q += " ORDER BY s.created_at DESC, s.scar_number DESC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Scar
	for rows.Next() {
		s, err := scanScar(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ScarStats aggregates total, per-status and overdue counts. Overdue
// means still awaiting a response (new/open) past the due date; the
// comparison is lexicographic on fixed-width YYYY-MM-DD strings.
func (r *ScarRepo) ScarStats(ctx context.Context, vendorID string) (model.ScarStats, error) {
	q := "SELECT status, COUNT(*) FROM scars WHERE 1=1"
	var args []any
	if vendorID != "" {
		q += " AND vendor_id=?"
		args = append(args, vendorID)
	}
	rows, err := r.DB.QueryContext(ctx, q+" GROUP BY status", args...)
	if err != nil {
		return model.ScarStats{}, err
	}
	defer rows.Close()

	var stats model.ScarStats
	for rows.Next() {
		var status model.ScarStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return model.ScarStats{}, err
		}
		stats.Total += n
		switch status {
		case model.StatusNew:
			stats.New = n
		case model.StatusOpen:
			stats.Open = n
		case model.StatusSubmitted:
			stats.Submitted = n
		case model.StatusClosed:
			stats.Closed = n
		}
	}
	if err := rows.Err(); err != nil {
		return model.ScarStats{}, err
	}

	today := time.Now().UTC().Format("2006-01-02")
	oq := "SELECT COUNT(*) FROM scars WHERE status IN ('new','open') AND response_due_date <> '' AND response_due_date < ?"
	oargs := []any{today}
	if vendorID != "" {
		oq += " AND vendor_id=?"
		oargs = append(oargs, vendorID)
	}
	if err := r.DB.QueryRowContext(ctx, oq, oargs...).Scan(&stats.Overdue); err != nil {
		return model.ScarStats{}, err
	}
	return stats, nil
}

// nextScarNumber computes the successor of the highest existing number
// for a year. last is the highest existing scar_number for that year's
// prefix, or "" when the year has none.
func nextScarNumber(year int, last string) string {
	seq := 1
	if last != "" {
		parts := strings.Split(last, "-")
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			seq = n + 1
		}
	}
	return fmt.Sprintf("SCAR-%d-%03d", year, seq)
}

// CreateScar assigns the next per-year SCAR number and inserts the row
// together with its creation activity entry in one transaction. The
// number scan takes a row lock (FOR UPDATE) so two concurrent creations
// serialize; the unique constraint on scar_number backstops the lock
// and a duplicate-key conflict is retried with a fresh number.
func (r *ScarRepo) CreateScar(ctx context.Context, s *model.Scar, e *model.ActivityEntry) error {
	year := time.Now().UTC().Year()
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := r.createOnce(ctx, s, e, year)
		if err == nil {
			return nil
		}
		if !isDuplicate(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("scar number conflict persisted: %w", lastErr)
}

func (r *ScarRepo) createOnce(ctx context.Context, s *model.Scar, e *model.ActivityEntry, year int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var last string
	err = tx.QueryRowContext(ctx,
		"SELECT scar_number FROM scars WHERE scar_number LIKE ? ORDER BY scar_number DESC LIMIT 1 FOR UPDATE",
		fmt.Sprintf("SCAR-%d-%%", year)).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	s.ScarNumber = nextScarNumber(year, last)

	if _, err := tx.ExecContext(ctx, `INSERT INTO scars (
		id, scar_number, status,
		date_issued, response_due_date, vendor_id, vendor_contact_id,
		ncr_number, po_so_number, part_sku_number, affected_quantity, lot_numbers,
		product_name, defect_type, nonconformity_description, severity,
		containment_isolate, containment_screen_sort, containment_prepared_by, containment_date,
		root_cause, root_cause_evidence, root_cause_approved_by, root_cause_date,
		corrective_action, correction_approved_by, correction_date,
		preventive_action, prevention_approved_by, prevention_date,
		verification_acceptable, effectiveness_check, verified_by, verification_date,
		created_by
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ScarNumber, s.Status,
		s.DateIssued, s.ResponseDueDate, nullIfEmpty(s.VendorID), nullIfEmpty(s.VendorContactID),
		s.NCRNumber, s.POSONumber, s.PartSKUNumber, s.AffectedQuantity, s.LotNumbers,
		s.ProductName, s.DefectType, s.NonconformityDescription, s.Severity,
		s.ContainmentIsolate, s.ContainmentScreenSort, s.ContainmentPreparedBy, s.ContainmentDate,
		s.RootCause, s.RootCauseEvidence, s.RootCauseApprovedBy, s.RootCauseDate,
		s.CorrectiveAction, s.CorrectionApprovedBy, s.CorrectionDate,
		s.PreventiveAction, s.PreventionApprovedBy, s.PreventionDate,
		s.VerificationAcceptable, s.EffectivenessCheck, s.VerifiedBy, s.VerificationDate,
		nullIfEmpty(s.CreatedBy)); err != nil {
		return err
	}

	e.Details = workflow.CreationDetails(s.ScarNumber)
	if err := insertActivity(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateScar applies a section update and/or status change plus the
// activity entry atomically. Section updates write only that section's
// columns; concurrent edits to different sections do not clobber each
// other.
func (r *ScarRepo) UpdateScar(ctx context.Context, id string, upd workflow.SectionUpdate, status *model.ScarStatus, e *model.ActivityEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"updated_at=NOW()"}
	var args []any
	if upd != nil {
		cols := upd.Columns()
		names := make([]string, 0, len(cols))
		for name := range cols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sets = append(sets, name+"=?")
			args = append(args, cols[name])
		}
	}
	if status != nil {
		sets = append(sets, "status=?")
		args = append(args, *status)
	}
	args = append(args, id)

	res, err := tx.ExecContext(ctx,
		"UPDATE scars SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a vanished row from a no-op update.
		var one int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM scars WHERE id=?", id).Scan(&one); err == sql.ErrNoRows {
			return workflow.ErrNotFound
		} else if err != nil {
			return err
		}
	}

	if err := insertActivity(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

// ListActivity returns a SCAR's trail newest-first with actor names
// joined. Entries with no user are system-originated.
func (r *ScarRepo) ListActivity(ctx context.Context, scarID string) ([]model.ActivityEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT a.id, a.scar_id, COALESCE(a.user_id,''),
		COALESCE(u.name,''), a.action, a.details, a.created_at
		FROM scar_activity a
		LEFT JOIN users u ON a.user_id = u.id
		WHERE a.scar_id=?
		ORDER BY a.created_at DESC, a.id DESC`, scarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ActivityEntry
	for rows.Next() {
		var a model.ActivityEntry
		if err := rows.Scan(&a.ID, &a.ScarID, &a.UserID, &a.UserName, &a.Action, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func insertActivity(ctx context.Context, tx *sql.Tx, e *model.ActivityEntry) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO scar_activity (id, scar_id, user_id, action, details) VALUES (?,?,?,?,?)",
		e.ID, e.ScarID, nullIfEmpty(e.UserID), e.Action, e.Details)
	return err
}
