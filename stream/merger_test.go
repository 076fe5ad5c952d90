package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
)

func fixedMerger() *Merger {
	m := NewMerger()
	m.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return m
}

func userPath() []models.ConversationNode {
	return []models.ConversationNode{
		{ID: "root", Role: models.RoleSystem, ChildIDs: []string{"u1"}},
		{ID: "u1", ParentID: "root", Role: models.RoleUser, Content: "hi"},
	}
}

func TestBeginRejectsSecondGeneration(t *testing.T) {
	m := fixedMerger()
	_, err := m.Begin()
	require.NoError(t, err)
	_, err = m.Begin()
	assert.ErrorIs(t, err, apperr.ErrBusy)
	assert.True(t, m.Active())
}

func TestOverlayAppendsSyntheticNode(t *testing.T) {
	m := fixedMerger()
	ticket, err := m.Begin()
	require.NoError(t, err)

	path := userPath()
	assert.Len(t, m.Overlay(path), 2, "nothing to show before the first delta")

	require.True(t, m.Append(ticket, "Hel"))
	require.True(t, m.Append(ticket, "lo!"))
	display := m.Overlay(path)
	require.Len(t, display, 3)
	synthetic := display[2]
	assert.Equal(t, "streaming_1700000000000", synthetic.ID)
	assert.True(t, IsSynthetic(synthetic.ID))
	assert.Equal(t, "u1", synthetic.ParentID)
	assert.Equal(t, models.RoleAssistant, synthetic.Role)
	assert.Equal(t, "Hello!", synthetic.Content)
	assert.Equal(t, models.StopReasonNone, synthetic.StopReason)

	assert.Len(t, path, 2, "the input path is never modified")
	assert.Equal(t, synthetic.ID, m.Overlay(path)[2].ID, "id is stable within a generation")
}

func TestOverlayReplacesAssistantTail(t *testing.T) {
	m := fixedMerger()
	ticket, _ := m.Begin()
	path := append(userPath(), models.ConversationNode{
		ID: "a1", ParentID: "u1", Role: models.RoleAssistant, Content: "stored",
	})
	m.Append(ticket, "live")
	display := m.Overlay(path)
	require.Len(t, display, 3)
	assert.Equal(t, "live", display[2].Content)
	assert.Equal(t, "stored", path[2].Content)
}

func TestOverlayEmptyPath(t *testing.T) {
	m := fixedMerger()
	ticket, _ := m.Begin()
	m.Append(ticket, "x")
	assert.Empty(t, m.Overlay(nil))
}

func TestSyntheticIDAvoidsCollision(t *testing.T) {
	m := fixedMerger()
	ticket, _ := m.Begin()
	m.Append(ticket, "x")
	path := userPath()
	path[1].ID = "streaming_1700000000000"
	display := m.Overlay(path)
	assert.NotEqual(t, path[1].ID, display[2].ID)
}

func TestCompleteReconcile(t *testing.T) {
	m := fixedMerger()
	ticket, _ := m.Begin()
	m.Append(ticket, "done")

	require.True(t, m.Complete(ticket))
	assert.Equal(t, Reconciling, m.State())
	assert.Empty(t, m.Content())
	assert.Len(t, m.Overlay(userPath()), 2)

	require.True(t, m.Reconcile(ticket))
	assert.Equal(t, Idle, m.State())
	assert.False(t, m.Append(ticket, "late"))
}

func TestCancelToleratesLateDeltas(t *testing.T) {
	m := fixedMerger()
	ticket, _ := m.Begin()
	m.Append(ticket, "part")
	require.True(t, m.Cancel(ticket))
	assert.Equal(t, Cancelled, m.State())
	assert.False(t, m.Complete(ticket), "a cancelled generation is reconciled by the stop path")

	assert.True(t, m.Append(ticket, " tail"))
	assert.Equal(t, "part tail", m.Overlay(userPath())[2].Content)

	require.True(t, m.Reconcile(ticket))
	assert.Equal(t, Idle, m.State())
	assert.Empty(t, m.Content())
}

func TestStaleTicketIsIgnored(t *testing.T) {
	m := fixedMerger()
	first, _ := m.Begin()
	m.Abort(first)
	second, err := m.Begin()
	require.NoError(t, err)

	assert.False(t, m.Append(first, "old"))
	assert.False(t, m.Cancel(first))
	assert.False(t, m.Reconcile(first))
	assert.True(t, m.Append(second, "new"))
	assert.Equal(t, "new", m.Content())
}

func TestBeginClearsAccumulator(t *testing.T) {
	m := fixedMerger()
	first, _ := m.Begin()
	m.Append(first, "old")
	m.Abort(first)
	second, _ := m.Begin()
	assert.Empty(t, m.Content())
	m.Append(second, "x")
	assert.Equal(t, "x", m.Content())
}
