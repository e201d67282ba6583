package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/leadboard/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestLeadCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	// Create
	lead := &models.Lead{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Suburb: "Parramatta"}
	if err := s.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}
	if lead.ID == "" {
		t.Error("Lead ID should not be empty")
	}
	if lead.Status != models.StatusNew {
		t.Errorf("Expected status NEW, got %s", lead.Status)
	}
	if lead.Urgency != models.UrgencyMedium {
		t.Errorf("Expected default urgency MEDIUM, got %s", lead.Urgency)
	}

	// Get
	got, err := s.GetLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("GetLead failed: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("Expected email ada@example.com, got %s", got.Email)
	}
	if got.EstimatedValue != nil {
		t.Errorf("Expected nil estimated value, got %v", *got.EstimatedValue)
	}

	missing, err := s.GetLead(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for missing lead, got %v, %v", missing, err)
	}

	// Update
	value := 4500.0
	patch := models.StatusPatch(models.StatusQuoted)
	patch.EstimatedValue = &value
	updated, err := s.UpdateLead(ctx, lead.ID, patch)
	if err != nil {
		t.Fatalf("UpdateLead failed: %v", err)
	}
	if updated.Status != models.StatusQuoted {
		t.Errorf("Expected status QUOTED, got %s", updated.Status)
	}
	if updated.FirstName != "Ada" {
		t.Errorf("Patch must not clear untouched fields, got first name %q", updated.FirstName)
	}

	got, _ = s.GetLead(ctx, lead.ID)
	if got.Status != models.StatusQuoted || got.EstimatedValue == nil || *got.EstimatedValue != 4500 {
		t.Errorf("Update not persisted: %+v", got)
	}

	// Delete
	if err := s.DeleteLead(ctx, lead.ID); err != nil {
		t.Fatalf("DeleteLead failed: %v", err)
	}
	got, _ = s.GetLead(ctx, lead.ID)
	if got != nil {
		t.Error("Lead should be gone after delete")
	}
}

func TestUpdateAndDeleteMissingLead(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	_, err := s.UpdateLead(ctx, "missing", models.StatusPatch(models.StatusContacted))
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("Expected ErrLeadNotFound from update, got %v", err)
	}
	if err := s.DeleteLead(ctx, "missing"); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("Expected ErrLeadNotFound from delete, got %v", err)
	}
}

func TestListLeadsFilters(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	seed := []models.Lead{
		{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Suburb: "Parramatta"},
		{FirstName: "Grace", LastName: "Hopper", Phone: "0400 111 222", Suburb: "Bondi", Status: models.StatusContacted},
		{FirstName: "Alan", LastName: "Turing", Email: "alan@bletchley.uk", Suburb: "Manly"},
	}
	for i := range seed {
		if err := s.CreateLead(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateLead failed: %v", err)
		}
	}

	all, err := s.ListLeads(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListLeads failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 leads, got %d", len(all))
	}
	// Newest first
	if all[0].FirstName != "Alan" {
		t.Errorf("Expected newest lead first, got %s", all[0].FirstName)
	}

	contacted, _ := s.ListLeads(ctx, ListFilter{Status: models.StatusContacted})
	if len(contacted) != 1 || contacted[0].FirstName != "Grace" {
		t.Errorf("Expected only Grace in CONTACTED, got %+v", contacted)
	}

	byQuery, _ := s.ListLeads(ctx, ListFilter{Query: "BONDI"})
	if len(byQuery) != 1 || byQuery[0].FirstName != "Grace" {
		t.Errorf("Expected suburb search to match Grace, got %+v", byQuery)
	}

	byName, _ := s.ListLeads(ctx, ListFilter{Query: "ada love"})
	if len(byName) != 1 || byName[0].FirstName != "Ada" {
		t.Errorf("Expected full-name search to match Ada, got %+v", byName)
	}
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	for _, st := range []models.Status{models.StatusNew, models.StatusNew, models.StatusQuoted} {
		if err := s.CreateLead(ctx, &models.Lead{FirstName: "x", Status: st}); err != nil {
			t.Fatalf("CreateLead failed: %v", err)
		}
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[models.StatusNew] != 2 || counts[models.StatusQuoted] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestInspections(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	lead := &models.Lead{FirstName: "Ada"}
	if err := s.CreateLead(ctx, lead); err != nil {
		t.Fatalf("CreateLead failed: %v", err)
	}

	later := &models.Inspection{LeadID: lead.ID, ScheduledAt: time.Now().Add(48 * time.Hour), Inspector: "Sam"}
	sooner := &models.Inspection{LeadID: lead.ID, ScheduledAt: time.Now().Add(2 * time.Hour)}
	for _, in := range []*models.Inspection{later, sooner} {
		if err := s.AddInspection(ctx, in); err != nil {
			t.Fatalf("AddInspection failed: %v", err)
		}
	}

	items, err := s.ListInspections(ctx, lead.ID)
	if err != nil {
		t.Fatalf("ListInspections failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 inspections, got %d", len(items))
	}
	if items[0].ID != sooner.ID {
		t.Errorf("Expected soonest inspection first")
	}
	if items[1].Inspector != "Sam" {
		t.Errorf("Expected inspector Sam, got %q", items[1].Inspector)
	}

	err = s.AddInspection(ctx, &models.Inspection{LeadID: "missing", ScheduledAt: time.Now()})
	if !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("Expected ErrLeadNotFound, got %v", err)
	}

	// Deleting the lead removes its inspections
	if err := s.DeleteLead(ctx, lead.ID); err != nil {
		t.Fatalf("DeleteLead failed: %v", err)
	}
	items, _ = s.ListInspections(ctx, lead.ID)
	if len(items) != 0 {
		t.Errorf("Expected inspections to be deleted, got %d", len(items))
	}
}

func TestEvents(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.WriteEvent(ctx, "lead.create", "h1", "success", "lead-1", ""); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}
	if _, err := s.WriteEvent(ctx, "lead.update", "h2", "success", "lead-1", "status=QUOTED"); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	events, err := s.ListEvents(ctx, "lead-1")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Action != "lead.update" || events[0].Details != "status=QUOTED" {
		t.Errorf("Expected newest event first, got %+v", events[0])
	}
}

func TestConnectionPragmas(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}

	// NORMAL
	var sync int
	if err := s.db.QueryRow("PRAGMA synchronous").Scan(&sync); err != nil {
		t.Fatalf("synchronous: %v", err)
	}
	if sync != 1 {
		t.Errorf("synchronous = %d, want 1", sync)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}
