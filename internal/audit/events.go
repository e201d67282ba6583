// Package audit records lead mutations as hashed-input decision events.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/fentz26/leadboard/internal/models"
	"github.com/fentz26/leadboard/internal/store"
	"go.uber.org/zap"
)

// Outcomes written with each event.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder writes lead events for audit trails.
type Recorder struct {
	store *store.Store
	log   *zap.Logger
}

// NewRecorder creates a new event recorder.
func NewRecorder(s *store.Store, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{store: s, log: log}
}

// Record writes an event for a state-mutating action. Failures are logged and
// returned; callers treat the audit trail as best-effort.
func (r *Recorder) Record(ctx context.Context, action string, inputs interface{}, outcome, leadID, details string) (*models.LeadEvent, error) {
	ev, err := r.store.WriteEvent(ctx, action, HashInputs(inputs), outcome, leadID, details)
	if err != nil {
		r.log.Warn("audit write failed", zap.String("action", action), zap.String("lead_id", leadID), zap.Error(err))
		return nil, err
	}
	return ev, nil
}

// HashInputs creates a SHA256 hash of the inputs for reproducibility.
func HashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
