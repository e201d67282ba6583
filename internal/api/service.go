// Package api provides the lead store service and its HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/leadboard/internal/audit"
	"github.com/fentz26/leadboard/internal/cache"
	"github.com/fentz26/leadboard/internal/models"
	"github.com/fentz26/leadboard/internal/store"
	"go.uber.org/zap"
)

// Service provides the lead store business logic.
type Service struct {
	store  *store.Store
	events *audit.Recorder
	cache  cache.ListCache
	log    *zap.Logger
}

// NewService creates a new lead store service. A nil cache disables caching.
func NewService(s *store.Store, events *audit.Recorder, c cache.ListCache, log *zap.Logger) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:  s,
		events: events,
		cache:  c,
		log:    log,
	}
}

// Ping checks the backing database.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// CreateLead creates a new lead. Status defaults to NEW.
func (s *Service) CreateLead(ctx context.Context, lead *models.Lead) (*models.Lead, error) {
	if err := s.store.CreateLead(ctx, lead); err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	s.events.Record(ctx, "lead.create", map[string]string{"email": lead.Email, "phone": lead.Phone}, audit.OutcomeSuccess, lead.ID, "")
	s.log.Info("lead created", zap.String("lead_id", lead.ID), zap.String("source", string(lead.Source)))
	return lead, nil
}

// GetLead returns a lead with its inspections.
func (s *Service) GetLead(ctx context.Context, id string) (*models.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, ErrLeadNotFound
	}

	inspections, err := s.store.ListInspections(ctx, id)
	if err != nil {
		return nil, err
	}
	lead.Inspections = inspections
	return lead, nil
}

// ListLeads returns leads newest first. The unfiltered list is served from
// the cache when one is configured.
func (s *Service) ListLeads(ctx context.Context, f store.ListFilter) ([]models.Lead, error) {
	unfiltered := f == store.ListFilter{}
	cacheable := false
	var gen int64
	if unfiltered {
		leads, g, ok, err := s.cache.GetList(ctx)
		if err != nil {
			s.log.Warn("lead cache read failed", zap.Error(err))
		}
		if ok {
			return leads, nil
		}
		gen, cacheable = g, err == nil
	}

	leads, err := s.store.ListLeads(ctx, f)
	if err != nil {
		return nil, err
	}
	if leads == nil {
		leads = []models.Lead{}
	}

	if cacheable {
		if err := s.cache.SetList(ctx, gen, leads); err != nil {
			s.log.Warn("lead cache write failed", zap.Error(err))
		}
	}
	return leads, nil
}

// UpdateLead applies a partial update. An empty patch returns the lead unchanged.
func (s *Service) UpdateLead(ctx context.Context, id string, patch models.LeadPatch) (*models.Lead, error) {
	if patch.IsEmpty() {
		return s.GetLead(ctx, id)
	}

	var before models.Status
	if patch.Status != nil {
		current, err := s.store.GetLead(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrLeadNotFound
		}
		before = current.Status
	}

	lead, err := s.store.UpdateLead(ctx, id, patch)
	if errors.Is(err, store.ErrLeadNotFound) {
		s.events.Record(ctx, "lead.update", patch, audit.OutcomeError, id, "not found")
		return nil, ErrLeadNotFound
	}
	if err != nil {
		s.events.Record(ctx, "lead.update", patch, audit.OutcomeError, id, err.Error())
		return nil, err
	}
	s.invalidate(ctx)

	details := ""
	if patch.Status != nil && before != *patch.Status {
		details = fmt.Sprintf("status %s -> %s", before, *patch.Status)
		s.log.Info("lead moved", zap.String("lead_id", id), zap.Stringer("from", before), zap.Stringer("to", *patch.Status))
	}
	s.events.Record(ctx, "lead.update", patch, audit.OutcomeSuccess, id, details)
	return lead, nil
}

// DeleteLead removes a lead entirely.
func (s *Service) DeleteLead(ctx context.Context, id string) error {
	err := s.store.DeleteLead(ctx, id)
	if errors.Is(err, store.ErrLeadNotFound) {
		return ErrLeadNotFound
	}
	if err != nil {
		return err
	}
	s.invalidate(ctx)

	s.events.Record(ctx, "lead.delete", map[string]string{"lead_id": id}, audit.OutcomeSuccess, id, "")
	s.log.Info("lead deleted", zap.String("lead_id", id))
	return nil
}

// AddInspection books an inspection against a lead.
func (s *Service) AddInspection(ctx context.Context, in *models.Inspection) (*models.Inspection, error) {
	err := s.store.AddInspection(ctx, in)
	if errors.Is(err, store.ErrLeadNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}

	s.events.Record(ctx, "inspection.add", in, audit.OutcomeSuccess, in.LeadID, "")
	return in, nil
}

// ListEvents returns the audit trail for a lead.
func (s *Service) ListEvents(ctx context.Context, leadID string) ([]models.LeadEvent, error) {
	events, err := s.store.ListEvents(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.LeadEvent{}
	}
	return events, nil
}

// Stats returns lead counts for every pipeline stage, zero-filled.
func (s *Service) Stats(ctx context.Context) (map[models.Status]int, error) {
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range models.Statuses() {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log.Warn("lead cache invalidate failed", zap.Error(err))
	}
}
