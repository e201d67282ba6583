package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/fentz26/leadboard/internal/models"
	"go.uber.org/zap"
)

// Transition is a status change already applied to the board but not yet
// confirmed by the store.
type Transition struct {
	board  *Board
	leadID string
	name   string
	from   models.Status
	to     models.Status
	done   bool
}

// LeadID is the lead being moved.
func (t *Transition) LeadID() string { return t.leadID }

// From is the status before the move.
func (t *Transition) From() models.Status { return t.from }

// To is the destination status.
func (t *Transition) To() models.Status { return t.to }

// Begin applies a move to the board immediately and returns the pending
// Transition to commit. Moving a lead to its current status returns nil and
// changes nothing. A lead with an unconfirmed move rejects a second one.
func (b *Board) Begin(id string, status models.Status) (*Transition, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	b.mu.Lock()
	i := b.index(id)
	if i < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}
	lead := &b.leads[i]
	if lead.Status == status {
		b.mu.Unlock()
		return nil, nil
	}
	if _, busy := b.inFlight[id]; busy {
		name := lead.FullName()
		b.mu.Unlock()
		b.notify.Error(fmt.Sprintf("%s is still moving, try again in a moment", name))
		return nil, fmt.Errorf("%w: %s", ErrTransitionInFlight, id)
	}

	t := &Transition{
		board:  b,
		leadID: id,
		name:   lead.FullName(),
		from:   lead.Status,
		to:     status,
	}
	lead.Status = status
	b.inFlight[id] = t
	b.version++
	b.mu.Unlock()

	b.log.Debug("transition begun", zap.String("lead_id", id), zap.Stringer("from", t.from), zap.Stringer("to", t.to))
	return t, nil
}

// Commit sends the move to the store. On success the board takes the
// server's copy of the lead. On failure an error is shown and the board is
// reloaded from the store; if that reload fails too, the move is undone
// locally. Commit on a nil Transition is a no-op, and a Transition commits
// at most once.
func (t *Transition) Commit(ctx context.Context) error {
	if t == nil {
		return nil
	}
	b := t.board

	b.mu.Lock()
	if t.done {
		b.mu.Unlock()
		return nil
	}
	t.done = true
	b.mu.Unlock()

	updated, err := b.store.UpdateLead(ctx, t.leadID, models.StatusPatch(t.to))
	if err == nil {
		b.mu.Lock()
		delete(b.inFlight, t.leadID)
		if updated != nil {
			b.confirm(t.leadID, updated)
			if i := b.index(t.leadID); i >= 0 {
				b.leads[i] = *updated
			} else {
				b.leads = append([]models.Lead{*updated}, b.leads...)
			}
		}
		b.version++
		b.mu.Unlock()

		b.log.Info("lead moved", zap.String("lead_id", t.leadID), zap.Stringer("from", t.from), zap.Stringer("to", t.to))
		b.notify.Success(fmt.Sprintf("Moved %s to %s", t.name, t.to.Label()))
		return nil
	}

	b.log.Warn("lead move failed, reloading", zap.String("lead_id", t.leadID), zap.Stringer("to", t.to), zap.Error(err))
	b.notify.Error(fmt.Sprintf("Failed to move %s to %s: %v", t.name, t.to.Label(), err))

	b.mu.Lock()
	delete(b.inFlight, t.leadID)
	b.mu.Unlock()

	if rerr := b.reload(ctx); rerr != nil {
		b.log.Warn("reload after failed move failed, reverting locally", zap.String("lead_id", t.leadID), zap.Error(rerr))
		t.revert()
		return fmt.Errorf("move lead %s: %w", t.leadID, errors.Join(err, rerr))
	}
	return fmt.Errorf("move lead %s: %w", t.leadID, err)
}

// revert puts the lead back where it was, unless something else has moved it since.
func (t *Transition) revert() {
	b := t.board
	b.mu.Lock()
	defer b.mu.Unlock()
	if i := b.index(t.leadID); i >= 0 && b.leads[i].Status == t.to {
		b.leads[i].Status = t.from
		b.version++
	}
}

// Transition moves a lead and waits for the store to confirm it. Drag drops
// and menu moves both go through here.
func (b *Board) Transition(ctx context.Context, id string, status models.Status) error {
	t, err := b.Begin(id, status)
	if err != nil {
		return err
	}
	return t.Commit(ctx)
}

// Drop applies the outcome of a drag gesture. A drop with no target is ignored.
func (b *Board) Drop(ctx context.Context, id string, target models.Status, ok bool) error {
	if !ok {
		return nil
	}
	return b.Transition(ctx, id, target)
}
