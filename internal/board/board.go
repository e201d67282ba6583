// Package board holds the kanban board state for the lead pipeline and
// applies status transitions optimistically against a LeadStore.
//
// All reads return copies; the board may be shared between the UI loop and
// the goroutines that commit transitions.
package board

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fentz26/leadboard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LeadStore is the remote CRUD collaborator the board runs against.
type LeadStore interface {
	ListLeads(ctx context.Context) ([]models.Lead, error)
	UpdateLead(ctx context.Context, id string, patch models.LeadPatch) (*models.Lead, error)
	DeleteLead(ctx context.Context, id string) error
}

// Column is one pipeline stage and the leads currently in it.
type Column struct {
	Status models.Status
	Label  string
	Leads  []models.Lead
}

// Board is the in-memory lead cache grouped into pipeline columns.
type Board struct {
	mu       sync.Mutex
	store    LeadStore
	notify   Notifier
	log      *zap.Logger
	leads    []models.Lead
	inFlight map[string]*Transition
	search   string
	version  uint64

	// confirmed holds mutations the store acknowledged since the last reload
	// landed, keyed by lead id. A nil lead marks a delete.
	confirmed  map[string]confirmedChange
	confirmSeq uint64

	reloads singleflight.Group
}

type confirmedChange struct {
	seq  uint64
	lead *models.Lead
}

// New creates an empty board. Call Load to populate it.
func New(store LeadStore, notify Notifier, log *zap.Logger) *Board {
	if notify == nil {
		notify = NotifierFuncs{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Board{
		store:     store,
		notify:    notify,
		log:       log,
		inFlight:  make(map[string]*Transition),
		confirmed: make(map[string]confirmedChange),
	}
}

// Load replaces the board with a fresh snapshot from the store. On failure
// the previous state is kept and an error is shown.
func (b *Board) Load(ctx context.Context) error {
	if err := b.reload(ctx); err != nil {
		b.log.Warn("load leads failed", zap.Error(err))
		b.notify.Error(fmt.Sprintf("Failed to load leads: %v", err))
		return fmt.Errorf("load leads: %w", err)
	}
	return nil
}

// reload fetches the list and swaps it in, re-applying any moves still in
// flight and any change confirmed after the fetch started. Concurrent calls
// share one fetch.
func (b *Board) reload(ctx context.Context) error {
	_, err, _ := b.reloads.Do("leads", func() (interface{}, error) {
		b.mu.Lock()
		start := b.confirmSeq
		b.mu.Unlock()

		leads, err := b.store.ListLeads(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		defer b.mu.Unlock()
		fresh := make([]models.Lead, 0, len(leads))
		for _, l := range leads {
			if c, ok := b.confirmed[l.ID]; ok && c.seq > start {
				if c.lead == nil {
					continue
				}
				l = *c.lead
			}
			if t, ok := b.inFlight[l.ID]; ok {
				l.Status = t.to
			}
			fresh = append(fresh, l)
		}
		// Only one fetch runs at a time, so every later reload starts after
		// these changes and will see them from the store.
		b.confirmed = make(map[string]confirmedChange)

		b.leads = fresh
		b.version++
		b.log.Debug("board reloaded", zap.Int("leads", len(fresh)), zap.Int("in_flight", len(b.inFlight)))
		return nil, nil
	})
	return err
}

// confirm records a change the store acknowledged. lead is nil for a delete.
// Must be called with mu held.
func (b *Board) confirm(id string, lead *models.Lead) {
	b.confirmSeq++
	b.confirmed[id] = confirmedChange{seq: b.confirmSeq, lead: lead}
}

// SetSearch narrows Columns to leads matching term.
func (b *Board) SetSearch(term string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = term
}

// Search returns the current filter term.
func (b *Board) Search() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.search
}

// Columns returns the filtered leads grouped by status, one column per stage
// in board order. Empty columns are included.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Group(Filter(b.leads, b.search))
}

// Leads returns a copy of every loaded lead in store order.
func (b *Board) Leads() []models.Lead {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.Lead, len(b.leads))
	copy(out, b.leads)
	return out
}

// Lead returns the loaded lead with id.
func (b *Board) Lead(id string) (models.Lead, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(id); i >= 0 {
		return b.leads[i], true
	}
	return models.Lead{}, false
}

// InFlight reports whether id has an unconfirmed move.
func (b *Board) InFlight(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.inFlight[id]
	return ok
}

// Version increases on every change to board state.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Delete removes a lead from the store and then from the board.
func (b *Board) Delete(ctx context.Context, id string) error {
	lead, ok := b.Lead(id)
	if !ok {
		return ErrLeadNotFound
	}
	if b.InFlight(id) {
		b.notify.Error(fmt.Sprintf("%s is still moving", lead.FullName()))
		return ErrTransitionInFlight
	}

	if err := b.store.DeleteLead(ctx, id); err != nil {
		b.log.Warn("delete lead failed", zap.String("lead_id", id), zap.Error(err))
		b.notify.Error(fmt.Sprintf("Failed to delete %s: %v", lead.FullName(), err))
		return fmt.Errorf("delete lead %s: %w", id, err)
	}

	b.mu.Lock()
	b.confirm(id, nil)
	if i := b.index(id); i >= 0 {
		b.leads = append(b.leads[:i], b.leads[i+1:]...)
		b.version++
	}
	b.mu.Unlock()

	b.notify.Success(fmt.Sprintf("Deleted %s", lead.FullName()))
	return nil
}

// index must be called with mu held.
func (b *Board) index(id string) int {
	for i := range b.leads {
		if b.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// Filter returns the leads whose name, email, phone or suburb contains term,
// ignoring case. An empty term matches everything.
func Filter(leads []models.Lead, term string) []models.Lead {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		if term == "" || matches(l, term) {
			out = append(out, l)
		}
	}
	return out
}

func matches(l models.Lead, term string) bool {
	for _, field := range []string{l.FullName(), l.Email, l.Phone, l.Suburb} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Group partitions leads by status into one column per stage, keeping input
// order within each column.
func Group(leads []models.Lead) []Column {
	statuses := models.Statuses()
	cols := make([]Column, len(statuses))
	for i, st := range statuses {
		cols[i] = Column{Status: st, Label: st.Label(), Leads: []models.Lead{}}
	}
	for _, l := range leads {
		if i := l.Status.Index(); i >= 0 {
			cols[i].Leads = append(cols[i].Leads, l)
		}
	}
	return cols
}
