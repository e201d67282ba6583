// Package store provides SQLite-backed persistence for the lead pipeline.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrLeadNotFound indicates no lead row matched the given id.
var ErrLeadNotFound = errors.New("lead not found")

// Store provides access to the leadboard SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		suburb TEXT NOT NULL DEFAULT '',
		postcode TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		service_type TEXT NOT NULL,
		urgency TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'NEW',
		estimated_value REAL,
		notes TEXT NOT NULL DEFAULT '',
		assigned_to TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		lead_id TEXT NOT NULL,
		scheduled_at DATETIME NOT NULL,
		inspector TEXT,
		findings TEXT,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (lead_id) REFERENCES leads(id)
	);

	CREATE TABLE IF NOT EXISTS lead_events (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		lead_id TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
	CREATE INDEX IF NOT EXISTS idx_inspections_lead_id ON inspections(lead_id);
	CREATE INDEX IF NOT EXISTS idx_lead_events_lead_id ON lead_events(lead_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Lead Operations ---

const leadColumns = `id, first_name, last_name, email, phone, suburb, postcode, address,
	service_type, urgency, source, status, estimated_value, notes, assigned_to, created_at, updated_at`

// ListFilter narrows ListLeads. Zero values match everything.
type ListFilter struct {
	Status models.Status
	Query  string
}

// CreateLead inserts lead, assigning its id, timestamps and enum defaults.
func (s *Store) CreateLead(ctx context.Context, lead *models.Lead) error {
	now := time.Now().UTC()
	lead.ID = uuid.New().String()
	lead.CreatedAt = now
	lead.UpdatedAt = now
	applyDefaults(lead)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.Suburb, lead.Postcode, lead.Address,
		lead.ServiceType, lead.Urgency, lead.Source, lead.Status, nullFloat(lead.EstimatedValue), lead.Notes,
		nullString(lead.AssignedTo), lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func applyDefaults(lead *models.Lead) {
	if lead.Status == "" {
		lead.Status = models.StatusNew
	}
	if lead.ServiceType == "" {
		lead.ServiceType = models.ServiceMouldInspection
	}
	if lead.Urgency == "" {
		lead.Urgency = models.UrgencyMedium
	}
	if lead.Source == "" {
		lead.Source = models.SourceWebsite
	}
}

// GetLead retrieves a lead by ID. It returns nil, nil when no row matches.
func (s *Store) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns leads newest first, optionally filtered.
func (s *Store) ListLeads(ctx context.Context, f ListFilter) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var where []string
	var args []interface{}

	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		where = append(where, `(lower(first_name || ' ' || last_name) LIKE ? OR lower(email) LIKE ? OR lower(phone) LIKE ? OR lower(suburb) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

// UpdateLead applies patch to the stored lead and returns the updated row.
func (s *Store) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) (*models.Lead, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	lead, err := scanLead(tx.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}

	patch.Apply(lead)
	lead.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET first_name = ?, last_name = ?, email = ?, phone = ?, suburb = ?, postcode = ?, address = ?,
			service_type = ?, urgency = ?, source = ?, status = ?, estimated_value = ?, notes = ?, assigned_to = ?, updated_at = ?
		 WHERE id = ?`,
		lead.FirstName, lead.LastName, lead.Email, lead.Phone, lead.Suburb, lead.Postcode, lead.Address,
		lead.ServiceType, lead.Urgency, lead.Source, lead.Status, nullFloat(lead.EstimatedValue), lead.Notes,
		nullString(lead.AssignedTo), lead.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update lead: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return lead, nil
}

// DeleteLead removes a lead and its inspections.
func (s *Store) DeleteLead(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inspections WHERE lead_id = ?`, id); err != nil {
		return fmt.Errorf("delete inspections: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return ErrLeadNotFound
	}
	return tx.Commit()
}

// CountByStatus returns lead counts keyed by status.
func (s *Store) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.Status(status)] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	var lead models.Lead
	var serviceType, urgency, source, status string
	var estimated sql.NullFloat64
	var assignedTo sql.NullString

	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone, &lead.Suburb, &lead.Postcode, &lead.Address,
		&serviceType, &urgency, &source, &status, &estimated, &lead.Notes, &assignedTo, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Rows are written through validated enums; a bad value means the file was edited by hand.
	if lead.Status, err = models.ParseStatus(status); err != nil {
		return nil, err
	}
	if lead.ServiceType, err = models.ParseServiceType(serviceType); err != nil {
		return nil, err
	}
	if lead.Urgency, err = models.ParseUrgency(urgency); err != nil {
		return nil, err
	}
	if lead.Source, err = models.ParseSource(source); err != nil {
		return nil, err
	}
	if estimated.Valid {
		v := estimated.Float64
		lead.EstimatedValue = &v
	}
	if assignedTo.Valid {
		lead.AssignedTo = assignedTo.String
	}
	return &lead, nil
}

// --- Inspection Operations ---

// AddInspection books an inspection against a lead.
func (s *Store) AddInspection(ctx context.Context, in *models.Inspection) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads WHERE id = ?`, in.LeadID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check lead: %w", err)
	}
	if exists == 0 {
		return ErrLeadNotFound
	}

	in.ID = uuid.New().String()
	in.CreatedAt = time.Now().UTC()
	in.ScheduledAt = in.ScheduledAt.UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO inspections (id, lead_id, scheduled_at, inspector, findings, completed, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.LeadID, in.ScheduledAt, nullString(in.Inspector), nullString(in.Findings), in.Completed, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inspection: %w", err)
	}
	return nil
}

// ListInspections returns inspections for a lead, soonest first.
func (s *Store) ListInspections(ctx context.Context, leadID string) ([]models.Inspection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, scheduled_at, inspector, findings, completed, created_at FROM inspections WHERE lead_id = ? ORDER BY scheduled_at ASC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("query inspections: %w", err)
	}
	defer rows.Close()

	var items []models.Inspection
	for rows.Next() {
		var in models.Inspection
		var inspector, findings sql.NullString
		if err := rows.Scan(&in.ID, &in.LeadID, &in.ScheduledAt, &inspector, &findings, &in.Completed, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		in.Inspector = inspector.String
		in.Findings = findings.String
		items = append(items, in)
	}
	return items, rows.Err()
}

// --- Event Operations ---

// WriteEvent writes an audit record for a lead mutation.
func (s *Store) WriteEvent(ctx context.Context, action, inputsHash, outcome, leadID, details string) (*models.LeadEvent, error) {
	ev := &models.LeadEvent{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		LeadID:     leadID,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lead_events (id, action, inputs_hash, outcome, lead_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Action, ev.InputsHash, ev.Outcome, ev.LeadID, ev.Details, ev.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// ListEvents returns the audit trail for a lead, newest first.
func (s *Store) ListEvents(ctx context.Context, leadID string) ([]models.LeadEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, inputs_hash, outcome, lead_id, details, timestamp FROM lead_events WHERE lead_id = ? ORDER BY timestamp DESC, rowid DESC`,
		leadID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.LeadEvent
	for rows.Next() {
		var ev models.LeadEvent
		var lid, details sql.NullString
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.InputsHash, &ev.Outcome, &lid, &details, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.LeadID = lid.String
		ev.Details = details.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
