// Package client talks to the lead store daemon over HTTP.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// DefaultTimeout is used when New is given a zero timeout.
const DefaultTimeout = 10 * time.Second

// ErrNotFound is wrapped by APIError for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (%d)", e.Status)
	}
	return fmt.Sprintf("API error (%d %s): %s", e.Status, e.Code, e.Message)
}

// Unwrap lets errors.Is(err, ErrNotFound) match 404s.
func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Health mirrors the daemon's /health payload.
type Health struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// Client is a lead store API client.
type Client struct {
	http *resty.Client
	log  *zap.Logger
}

// New creates a client for the daemon at baseURL.
func New(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	h := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: h, log: log}
}

// ListLeads fetches every lead, newest first.
func (c *Client) ListLeads(ctx context.Context) ([]models.Lead, error) {
	return c.SearchLeads(ctx, "", "")
}

// SearchLeads fetches leads filtered by status and free-text query. Empty
// arguments are ignored.
func (c *Client) SearchLeads(ctx context.Context, status models.Status, query string) ([]models.Lead, error) {
	params := map[string]string{}
	if status != "" {
		params["status"] = string(status)
	}
	if query != "" {
		params["q"] = query
	}

	var leads []models.Lead
	if err := c.do(ctx, http.MethodGet, "/leads", params, nil, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// GetLead fetches one lead with its inspections.
func (c *Client) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	var lead models.Lead
	if err := c.do(ctx, http.MethodGet, "/leads/"+id, nil, nil, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// CreateLead submits a new lead and returns the stored copy.
func (c *Client) CreateLead(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	var created models.Lead
	if err := c.do(ctx, http.MethodPost, "/leads", nil, lead, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateLead applies a partial update and returns the server copy.
func (c *Client) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) (*models.Lead, error) {
	var lead models.Lead
	if err := c.do(ctx, http.MethodPatch, "/leads/"+id, nil, patch, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// DeleteLead removes a lead.
func (c *Client) DeleteLead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/leads/"+id, nil, nil, nil)
}

// AddInspection books an inspection for a lead.
func (c *Client) AddInspection(ctx context.Context, leadID string, scheduledAt time.Time, inspector, findings string) (*models.Inspection, error) {
	body := map[string]interface{}{
		"scheduled_at": scheduledAt.UTC(),
		"inspector":    inspector,
		"findings":     findings,
	}
	var in models.Inspection
	if err := c.do(ctx, http.MethodPost, "/leads/"+leadID+"/inspections", nil, body, &in); err != nil {
		return nil, err
	}
	return &in, nil
}

// Events fetches the audit trail for a lead.
func (c *Client) Events(ctx context.Context, leadID string) ([]models.LeadEvent, error) {
	var events []models.LeadEvent
	if err := c.do(ctx, http.MethodGet, "/leads/"+leadID+"/events", nil, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Stats fetches lead counts per status.
func (c *Client) Stats(ctx context.Context) (map[models.Status]int, error) {
	counts := map[models.Status]int{}
	if err := c.do(ctx, http.MethodGet, "/leads/stats", nil, nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// Health checks the daemon. The payload is returned alongside the error on
// non-200 responses so callers can show why the daemon is unhealthy.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var env envelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env).
		Get("/health")
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}

	var h Health
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &h); err != nil {
			return nil, fmt.Errorf("decode health: %w", err)
		}
	}
	if resp.IsError() {
		return &h, apiError(resp.StatusCode(), &env)
	}
	return &h, nil
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body, out interface{}) error {
	var env envelope
	req := c.http.R().
		SetContext(ctx).
		SetResult(&env).
		SetError(&env)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("api request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := apiError(resp.StatusCode(), &env)
		c.log.Debug("api error", zap.String("method", method), zap.String("path", path), zap.Error(apiErr))
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func apiError(status int, env *envelope) *APIError {
	e := &APIError{Status: status}
	if env != nil && env.Error != nil {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
	}
	return e
}
