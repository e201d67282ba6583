package audit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fentz26/leadboard/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashInputsStable(t *testing.T) {
	a := HashInputs(map[string]string{"status": "QUOTED"})
	b := HashInputs(map[string]string{"status": "QUOTED"})
	c := HashInputs(map[string]string{"status": "NEW"})

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "hash_error", HashInputs(func() {}))
}

func TestRecord(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer st.Close()

	rec := NewRecorder(st, nil)
	ctx := context.Background()

	ev, err := rec.Record(ctx, "lead.update", map[string]string{"status": "QUOTED"}, OutcomeSuccess, "lead-1", "")
	require.NoError(t, err)
	assert.Equal(t, HashInputs(map[string]string{"status": "QUOTED"}), ev.InputsHash)

	events, err := st.ListEvents(ctx, "lead-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "lead.update", events[0].Action)
	assert.Equal(t, OutcomeSuccess, events[0].Outcome)
}
