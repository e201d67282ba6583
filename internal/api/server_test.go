package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/fentz26/leadboard/internal/audit"
	"github.com/fentz26/leadboard/internal/models"
	"github.com/fentz26/leadboard/internal/store"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorBody      `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, audit.NewRecorder(st, nil), nil, nil)
	return NewServer(svc, "127.0.0.1:0", nil), st
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func createLead(t *testing.T, s *Server, body string) models.Lead {
	t.Helper()
	w, env := do(t, s, http.MethodPost, "/leads", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var lead models.Lead
	if err := json.Unmarshal(env.Data, &lead); err != nil {
		t.Fatalf("Failed to decode lead: %v", err)
	}
	return lead
}

func TestHealthEndpoint_OK(t *testing.T) {
	s, _ := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var health HealthResponse
	if err := json.Unmarshal(env.Data, &health); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !health.OK {
		t.Error("Expected health.OK to be true")
	}
	if health.DB != "ok" {
		t.Errorf("Expected DB status 'ok', got '%s'", health.DB)
	}
	if health.Version == "" {
		t.Error("Expected version to be set")
	}
	if health.Time == "" {
		t.Error("Expected time to be set")
	}
}

func TestHealthEndpoint_DBDown(t *testing.T) {
	s, st := newTestServer(t)
	st.Close()

	w, env := do(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected status 503, got %d", w.Code)
	}
	if env.Success || env.Error == nil || env.Error.Code != CodeUnavailable {
		t.Errorf("Unexpected envelope: %+v", env)
	}
}

func TestCreateAndGetLead(t *testing.T) {
	s, _ := newTestServer(t)

	lead := createLead(t, s, `{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","suburb":"Parramatta","urgency":"high"}`)
	if lead.ID == "" {
		t.Fatal("Expected an ID")
	}
	if lead.Status != models.StatusNew {
		t.Errorf("Expected default status NEW, got %s", lead.Status)
	}
	if lead.Urgency != models.UrgencyHigh {
		t.Errorf("Expected urgency HIGH, got %s", lead.Urgency)
	}

	w, env := do(t, s, http.MethodGet, "/leads/"+lead.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got models.Lead
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.FullName() != "Ada Lovelace" {
		t.Errorf("Expected Ada Lovelace, got %q", got.FullName())
	}
}

func TestCreateLead_OmittedEnumsTakeDefaults(t *testing.T) {
	s, _ := newTestServer(t)

	lead := createLead(t, s, `{"first_name":"Bo","phone":"0400111222"}`)
	if lead.Status != models.StatusNew {
		t.Errorf("Expected default status NEW, got %s", lead.Status)
	}
	if lead.Urgency == "" || lead.Source == "" || lead.ServiceType == "" {
		t.Errorf("Expected store defaults for omitted enums, got urgency=%q source=%q service=%q",
			lead.Urgency, lead.Source, lead.ServiceType)
	}
}

func TestCreateLead_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"bad json", `{"first_name":`, http.StatusBadRequest, CodeInvalidJSON},
		{"missing name", `{"email":"a@b.co"}`, http.StatusUnprocessableEntity, CodeValidation},
		{"no contact", `{"first_name":"A"}`, http.StatusUnprocessableEntity, CodeValidation},
		{"bad email", `{"first_name":"A","email":"nope"}`, http.StatusUnprocessableEntity, CodeValidation},
		{"unknown status", `{"first_name":"A","phone":"0400","status":"WON"}`, http.StatusUnprocessableEntity, CodeInvalidStatus},
		{"unknown source", `{"first_name":"A","phone":"0400","source":"FAX"}`, http.StatusUnprocessableEntity, CodeValidation},
		{"empty status", `{"first_name":"A","phone":"0400","status":""}`, http.StatusUnprocessableEntity, CodeInvalidStatus},
		{"empty urgency", `{"first_name":"A","phone":"0400","urgency":""}`, http.StatusUnprocessableEntity, CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, http.MethodPost, "/leads", tt.body)
			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if env.Success || env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %+v", tt.code, env.Error)
			}
		})
	}
}

func TestUpdateLeadStatus(t *testing.T) {
	s, _ := newTestServer(t)
	lead := createLead(t, s, `{"first_name":"Grace","phone":"0400111222"}`)

	w, env := do(t, s, http.MethodPatch, "/leads/"+lead.ID, `{"status":"QUALIFIED"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var updated models.Lead
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Status != models.StatusQualified {
		t.Errorf("Expected QUALIFIED, got %s", updated.Status)
	}

	w, env = do(t, s, http.MethodPatch, "/leads/"+lead.ID, `{"status":"ARCHIVED"}`)
	if w.Code != http.StatusUnprocessableEntity || env.Error.Code != CodeInvalidStatus {
		t.Errorf("Expected 422 INVALID_STATUS, got %d %+v", w.Code, env.Error)
	}

	w, env = do(t, s, http.MethodPatch, "/leads/missing", `{"status":"QUOTED"}`)
	if w.Code != http.StatusNotFound || env.Error.Code != CodeLeadNotFound {
		t.Errorf("Expected 404 LEAD_NOT_FOUND, got %d %+v", w.Code, env.Error)
	}

	w, env = do(t, s, http.MethodGet, "/leads/"+lead.ID+"/events", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var events []models.LeadEvent
	if err := json.Unmarshal(env.Data, &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) < 2 {
		t.Errorf("Expected create and update events, got %d", len(events))
	}
}

func TestListLeadsFilters(t *testing.T) {
	s, _ := newTestServer(t)
	a := createLead(t, s, `{"first_name":"Alice","suburb":"Bondi","phone":"1"}`)
	createLead(t, s, `{"first_name":"Bob","suburb":"Manly","phone":"2"}`)
	do(t, s, http.MethodPatch, "/leads/"+a.ID, `{"status":"CONTACTED"}`)

	list := func(path string) []models.Lead {
		w, env := do(t, s, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s: %d", path, w.Code)
		}
		var leads []models.Lead
		if err := json.Unmarshal(env.Data, &leads); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return leads
	}

	if got := list("/leads"); len(got) != 2 || got[0].FirstName != "Bob" {
		t.Errorf("Expected newest first, got %+v", got)
	}
	if got := list("/leads?status=contacted"); len(got) != 1 || got[0].ID != a.ID {
		t.Errorf("Expected Alice only, got %+v", got)
	}
	if got := list("/leads?q=manly"); len(got) != 1 || got[0].FirstName != "Bob" {
		t.Errorf("Expected Bob only, got %+v", got)
	}

	w, _ := do(t, s, http.MethodGet, "/leads?status=bogus", "")
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for bogus status, got %d", w.Code)
	}
}

func TestStatsHasEveryStatus(t *testing.T) {
	s, _ := newTestServer(t)
	createLead(t, s, `{"first_name":"A","phone":"1"}`)

	w, env := do(t, s, http.MethodGet, "/leads/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var counts map[models.Status]int
	if err := json.Unmarshal(env.Data, &counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, st := range models.Statuses() {
		if _, ok := counts[st]; !ok {
			t.Errorf("Missing status %s", st)
		}
	}
	if counts[models.StatusNew] != 1 {
		t.Errorf("Expected 1 NEW, got %d", counts[models.StatusNew])
	}
}

func TestDeleteLead(t *testing.T) {
	s, _ := newTestServer(t)
	lead := createLead(t, s, `{"first_name":"A","phone":"1"}`)

	w, _ := do(t, s, http.MethodDelete, "/leads/"+lead.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	w, _ = do(t, s, http.MethodDelete, "/leads/"+lead.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", w.Code)
	}
	w, _ = do(t, s, http.MethodGet, "/leads/"+lead.ID, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", w.Code)
	}
}

func TestAddInspection(t *testing.T) {
	s, _ := newTestServer(t)
	lead := createLead(t, s, `{"first_name":"A","phone":"1"}`)

	w, _ := do(t, s, http.MethodPost, "/leads/"+lead.ID+"/inspections",
		`{"scheduled_at":"2026-11-02T09:30:00Z","inspector":"Sam"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w, env := do(t, s, http.MethodGet, "/leads/"+lead.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var got models.Lead
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Inspections) != 1 || got.Inspections[0].Inspector != "Sam" {
		t.Errorf("Expected one inspection by Sam, got %+v", got.Inspections)
	}

	w, _ = do(t, s, http.MethodPost, "/leads/missing/inspections", `{"scheduled_at":"2026-11-02T09:30:00Z"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
	w, _ = do(t, s, http.MethodPost, "/leads/"+lead.ID+"/inspections", `{"inspector":"Sam"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 without scheduled_at, got %d", w.Code)
	}
}
