// Package stream overlays an in-flight generation onto the displayed path.
package stream

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go_branch_chat/models"
	"go_branch_chat/pkg/apperr"
)

type State int

const (
	Idle State = iota
	Streaming
	Cancelled
	Reconciling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Cancelled:
		return "cancelled"
	case Reconciling:
		return "reconciling"
	default:
		return "unknown"
	}
}

// Ticket identifies one generation. Calls carrying a ticket from an older
// generation are ignored, which drops deltas that arrive after their
// generation was reconciled.
type Ticket uint64

// SyntheticPrefix marks display-only node ids.
const SyntheticPrefix = "streaming_"

// Merger owns the single streaming overlay. Deltas are appended verbatim in
// arrival order.
type Merger struct {
	mu          sync.Mutex
	state       State
	ticket      Ticket
	buf         strings.Builder
	syntheticID string
	startedAt   time.Time
	now         func() time.Time
}

func NewMerger() *Merger {
	return &Merger{now: time.Now}
}

func (m *Merger) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Active reports whether a generation owns the overlay.
func (m *Merger) Active() bool {
	return m.State() != Idle
}

// Begin claims the overlay for a new generation. A second claim while one is
// active is rejected rather than queued.
func (m *Merger) Begin() (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return 0, apperr.ErrBusy
	}
	m.ticket++
	m.state = Streaming
	m.buf.Reset()
	m.syntheticID = ""
	m.startedAt = m.now()
	return m.ticket, nil
}

// Append adds a delta. Late deltas after a stop request are still accepted
// until reconciliation.
func (m *Merger) Append(t Ticket, delta string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t != m.ticket || (m.state != Streaming && m.state != Cancelled) {
		return false
	}
	m.buf.WriteString(delta)
	return true
}

// Content is the accumulated text of the current generation.
func (m *Merger) Content() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

// Cancel records a stop request. Reconciliation happens later, after the
// caller's grace period.
func (m *Merger) Cancel(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t != m.ticket || m.state != Streaming {
		return false
	}
	m.state = Cancelled
	return true
}

// Complete moves a successful generation to Reconciling and discards the
// accumulator and synthetic node.
func (m *Merger) Complete(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t != m.ticket || m.state != Streaming {
		return false
	}
	m.state = Reconciling
	m.discard()
	return true
}

// Reconcile returns to Idle once the authoritative path has been re-fetched.
// It accepts Cancelled directly so a stop passes through reconciliation too.
func (m *Merger) Reconcile(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t != m.ticket || (m.state != Reconciling && m.state != Cancelled) {
		return false
	}
	m.discard()
	m.state = Idle
	return true
}

// Abort drops the overlay of a generation that failed.
func (m *Merger) Abort(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t != m.ticket || m.state == Idle {
		return false
	}
	m.discard()
	m.state = Idle
	return true
}

// Current returns the ticket of the active generation.
func (m *Merger) Current() (Ticket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ticket, m.state != Idle
}

func (m *Merger) discard() {
	m.buf.Reset()
	m.syntheticID = ""
}

// Overlay returns the displayed path: a copy of path whose tail shows the
// accumulated content. An assistant tail is overlaid in place; otherwise a
// synthetic assistant node is appended. The input is never modified.
func (m *Merger) Overlay(path []models.ConversationNode) []models.ConversationNode {
	display := models.ClonePath(path)

	m.mu.Lock()
	defer m.mu.Unlock()
	if (m.state != Streaming && m.state != Cancelled) || m.buf.Len() == 0 || len(display) == 0 {
		return display
	}

	last := &display[len(display)-1]
	if last.Role == models.RoleAssistant {
		last.Content = m.buf.String()
		return display
	}
	display = append(display, models.ConversationNode{
		ID:         m.syntheticIDFor(display),
		ParentID:   last.ID,
		ChildIDs:   []string{},
		Role:       models.RoleAssistant,
		Content:    m.buf.String(),
		Timestamp:  m.startedAt,
		StopReason: models.StopReasonNone,
	})
	return display
}

// syntheticIDFor keeps one id per generation and steps past any id already
// present on the path.
func (m *Merger) syntheticIDFor(path []models.ConversationNode) string {
	if m.syntheticID == "" {
		m.syntheticID = fmt.Sprintf("%s%d", SyntheticPrefix, m.startedAt.UnixMilli())
	}
	for taken(path, m.syntheticID) {
		m.syntheticID += "_"
	}
	return m.syntheticID
}

func taken(path []models.ConversationNode, id string) bool {
	for _, n := range path {
		if n.ID == id {
			return true
		}
	}
	return false
}

// IsSynthetic reports whether id was produced by the overlay.
func IsSynthetic(id string) bool {
	return strings.HasPrefix(id, SyntheticPrefix)
}
