package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go_branch_chat/markdown"
	"go_branch_chat/models"
	"go_branch_chat/navigator"
	"go_branch_chat/pkg/apperr"
	"go_branch_chat/pkg/logging"
	"go_branch_chat/platform/events"
	"go_branch_chat/stream"
)

// ConversationBackend is the conversation service as the chat page consumes it.
type ConversationBackend interface {
	navigator.Tree
	AddUserMessage(ctx context.Context, text string) error
	GenerateResponse(ctx context.Context, onDelta func(string)) (string, error)
	StopGeneration()
}

// RenderedNode is one displayed message with everything the presentation
// layer needs to draw it.
type RenderedNode struct {
	models.ConversationNode
	Blocks       []markdown.Block `json:"blocks"`
	VariantIndex int              `json:"variant_index"`
	VariantTotal int              `json:"variant_total"`
	VariantLabel string           `json:"variant_label"`
	CanPrev      bool             `json:"can_prev"`
	CanNext      bool             `json:"can_next"`
	StopText     string           `json:"stop_text,omitempty"`
	Streaming    bool             `json:"streaming"`
}

// Generation is a handle on a started response.
type Generation struct {
	Ticket stream.Ticket
	done   chan struct{}
	err    error
}

// Done is closed once the response was generated, failed or was stopped and
// the path has been reconciled.
func (g *Generation) Done() <-chan struct{} { return g.done }

// Err reports a failed generation. Valid after Done is closed.
func (g *Generation) Err() error { return g.err }

// ChatService is the chat page controller. It owns the navigator and the
// stream merger and serialises every mutation behind one mutex.
type ChatService struct {
	backend   ConversationBackend
	publisher events.Publisher
	grace     time.Duration

	mu          sync.Mutex
	nav         *navigator.Navigator
	merger      *stream.Merger
	initialized bool
	running     *Generation
	notice      string
	pending     []*models.ChatEvent
}

func NewChatService(backend ConversationBackend, publisher events.Publisher, grace time.Duration) *ChatService {
	return &ChatService{
		backend:   backend,
		publisher: publisher,
		grace:     grace,
		nav:       navigator.New(backend),
		merger:    stream.NewMerger(),
	}
}

// unlock releases the controller and then publishes the events queued while
// it was held.
func (c *ChatService) unlock() {
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, ev := range pending {
		c.publish(ev)
	}
}

func (c *ChatService) publish(ev *models.ChatEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(context.Background(), ev); err != nil {
		logging.Logger.Warn().Err(err).Str("type", string(ev.Type)).Msg("fail to publish chat event")
	}
}

func (c *ChatService) queue(ev *models.ChatEvent) {
	c.pending = append(c.pending, ev)
}

// fail records err as the current notice. Caller holds c.mu.
func (c *ChatService) fail(err error) error {
	c.notice = apperr.Notice(err)
	c.queue(&models.ChatEvent{Type: models.EventNotice, Message: c.notice})
	return err
}

// refresh re-fetches the path and announces it. Caller holds c.mu.
func (c *ChatService) refresh() error {
	if err := c.nav.Refresh(); err != nil {
		return c.fail(err)
	}
	c.queue(&models.ChatEvent{Type: models.EventPath, NodeID: c.backend.GetCurrentNodeID()})
	return nil
}

// Init loads the first path. Until it succeeds nothing can be sent.
func (c *ChatService) Init() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.refresh(); err != nil {
		return err
	}
	c.initialized = true
	c.notice = ""
	return nil
}

// Refresh re-fetches the path, e.g. when the page becomes visible again.
func (c *ChatService) Refresh() error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.refresh(); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// CanSend reports whether text could be sent right now.
func (c *ChatService) CanSend(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized && !c.busy() && strings.TrimSpace(text) != ""
}

// Streaming reports whether a generation is still in flight. A stopped
// generation counts until its producer has returned.
func (c *ChatService) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy()
}

// busy is true while the overlay is claimed or a producer is running. Caller
// holds c.mu.
func (c *ChatService) busy() bool {
	return c.merger.Active() || c.running != nil
}

func (c *ChatService) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// guard rejects mutation while streaming or before initialisation. Caller
// holds c.mu.
func (c *ChatService) guard() error {
	if c.busy() {
		return c.fail(apperr.ErrBusy)
	}
	if !c.initialized {
		return c.fail(apperr.Unavailable(errors.New("not initialised"), "chat"))
	}
	return nil
}

// Send persists a user message under the active leaf and starts generating
// the reply.
func (c *ChatService) Send(ctx context.Context, text string) (*Generation, error) {
	c.mu.Lock()
	defer c.unlock()
	if err := c.guard(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("message is empty")
	}
	if err := c.backend.AddUserMessage(ctx, text); err != nil {
		logging.Logger.Error().Err(err).Msg("fail Send")
		return nil, c.fail(apperr.Unavailable(err, "add user message"))
	}
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c.startGeneration()
}

// Regenerate asks for a new variant of an assistant message: the message's
// parent becomes active and a new reply is generated under it.
func (c *ChatService) Regenerate(nodeID string) (*Generation, error) {
	c.mu.Lock()
	defer c.unlock()
	if err := c.guard(); err != nil {
		return nil, err
	}
	node, ok := c.nav.Node(nodeID)
	if !ok {
		return nil, c.fail(apperr.NodeNotFound(nodeID))
	}
	if node.Role != models.RoleAssistant || node.ParentID == "" {
		return nil, apperr.Invalid("only assistant replies can be regenerated")
	}
	if err := c.nav.SwitchToNode(node.ParentID); err != nil {
		return nil, c.fail(err)
	}
	c.queue(&models.ChatEvent{Type: models.EventPath, NodeID: node.ParentID})
	return c.startGeneration()
}

// Edit sends text as a sibling of a user message. Unchanged text is a no-op
// and returns a nil Generation.
func (c *ChatService) Edit(ctx context.Context, nodeID, text string) (*Generation, error) {
	c.mu.Lock()
	defer c.unlock()
	if err := c.guard(); err != nil {
		return nil, err
	}
	node, ok := c.nav.Node(nodeID)
	if !ok {
		return nil, c.fail(apperr.NodeNotFound(nodeID))
	}
	if node.Role != models.RoleUser || node.ParentID == "" {
		return nil, apperr.Invalid("only user messages can be edited")
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.Invalid("message is empty")
	}
	if trimmed == strings.TrimSpace(node.Content) {
		return nil, nil
	}
	if err := c.nav.SwitchToNode(node.ParentID); err != nil {
		return nil, c.fail(err)
	}
	if err := c.backend.AddUserMessage(ctx, trimmed); err != nil {
		logging.Logger.Error().Err(err).Str("node_id", nodeID).Msg("fail Edit")
		_ = c.refresh()
		return nil, c.fail(apperr.Unavailable(err, "add user message"))
	}
	if err := c.refresh(); err != nil {
		return nil, err
	}
	return c.startGeneration()
}

// SwitchVariant moves to the previous (-1) or next (+1) variant of nodeID.
func (c *ChatService) SwitchVariant(nodeID string, direction int) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.nav.SwitchVariant(nodeID, direction); err != nil {
		return c.fail(err)
	}
	c.queue(&models.ChatEvent{Type: models.EventPath, NodeID: c.backend.GetCurrentNodeID()})
	return nil
}

// SwitchToNode makes nodeID the active leaf.
func (c *ChatService) SwitchToNode(nodeID string) error {
	c.mu.Lock()
	defer c.unlock()
	if err := c.guard(); err != nil {
		return err
	}
	if err := c.nav.SwitchToNode(nodeID); err != nil {
		return c.fail(err)
	}
	c.queue(&models.ChatEvent{Type: models.EventPath, NodeID: nodeID})
	return nil
}

// Stop requests the running generation to stop. The overlay is reconciled
// after the grace period so late deltas still show; the controller stays busy
// until the producer returns.
func (c *ChatService) Stop() {
	c.mu.Lock()
	defer c.unlock()
	ticket, active := c.merger.Current()
	if !active || !c.merger.Cancel(ticket) {
		return
	}
	c.backend.StopGeneration()
	logging.Logger.Info().Uint64("ticket", uint64(ticket)).Msg("generation stop requested")
	time.AfterFunc(c.grace, func() {
		c.mu.Lock()
		defer c.unlock()
		if c.merger.Reconcile(ticket) {
			_ = c.refresh()
		}
	})
}

func (c *ChatService) startGeneration() (*Generation, error) {
	ticket, err := c.merger.Begin()
	if err != nil {
		return nil, c.fail(err)
	}
	gen := &Generation{Ticket: ticket, done: make(chan struct{})}
	c.running = gen
	go c.generate(gen)
	return gen, nil
}

func (c *ChatService) generate(gen *Generation) {
	defer close(gen.done)
	ticket := gen.Ticket

	_, err := c.backend.GenerateResponse(context.Background(), func(delta string) {
		if c.merger.Append(ticket, delta) {
			c.publish(&models.ChatEvent{Type: models.EventDelta, Delta: delta})
		}
	})

	c.mu.Lock()
	defer c.unlock()
	if c.running == gen {
		c.running = nil
	}
	current, active := c.merger.Current()
	mine := active && current == ticket

	switch {
	case mine && c.merger.State() == stream.Streaming && err != nil:
		logging.Logger.Error().Err(err).Uint64("ticket", uint64(ticket)).Msg("fail generate")
		c.merger.Abort(ticket)
		gen.err = apperr.GenerationFailed(err)
		_ = c.refresh()
		c.fail(gen.err)
		c.queue(&models.ChatEvent{Type: models.EventFailed, Message: err.Error()})
	case mine && c.merger.Complete(ticket):
		_ = c.refresh()
		c.merger.Reconcile(ticket)
		c.queue(&models.ChatEvent{Type: models.EventCompleted, NodeID: c.backend.GetCurrentNodeID()})
	case mine && c.merger.Reconcile(ticket):
		// stopped, and the producer finished before the grace period ran out
		_ = c.refresh()
		c.queue(&models.ChatEvent{Type: models.EventStopped, NodeID: c.backend.GetCurrentNodeID()})
	case !active:
		// the stop timer already reconciled; pick up the persisted stop reason
		_ = c.refresh()
		c.queue(&models.ChatEvent{Type: models.EventStopped, NodeID: c.backend.GetCurrentNodeID()})
	}
}

// DisplayPath is the authoritative path with the streaming overlay applied.
func (c *ChatService) DisplayPath() []models.ConversationNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.merger.Overlay(c.nav.Path())
}

// Render builds the render model of the displayed path.
func (c *ChatService) Render() []RenderedNode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.render(c.nav.Path())
}

// Jump returns the displayed path starting at nodeID, for focusing a
// message. Unknown ids yield the whole path.
func (c *ChatService) Jump(nodeID string) []RenderedNode {
	c.mu.Lock()
	defer c.unlock()
	c.queue(&models.ChatEvent{Type: models.EventJump, NodeID: nodeID})
	return c.render(navigator.SliceFrom(c.nav.Path(), nodeID))
}

// render overlays the stream onto path and decorates every node. Caller
// holds c.mu.
func (c *ChatService) render(path []models.ConversationNode) []RenderedNode {
	display := c.merger.Overlay(path)
	streaming := c.merger.Active()
	res := make([]RenderedNode, 0, len(display))
	for i, node := range display {
		rn := RenderedNode{
			ConversationNode: node,
			Blocks:           markdown.Parse(node.Content),
			VariantIndex:     0,
			VariantTotal:     1,
			VariantLabel:     "1/1",
			Streaming:        streaming && i == len(display)-1 && node.Role == models.RoleAssistant,
		}
		if !stream.IsSynthetic(node.ID) {
			if index, total, err := c.nav.VariantPosition(node.ID); err == nil {
				rn.VariantIndex, rn.VariantTotal = index, total
				rn.VariantLabel = c.nav.VariantLabel(node.ID)
			}
			rn.CanPrev = !streaming && c.nav.CanSwitchVariant(node.ID, navigator.Previous)
			rn.CanNext = !streaming && c.nav.CanSwitchVariant(node.ID, navigator.Next)
		}
		if node.StopReason != models.StopReasonNone && node.StopReason != "" {
			rn.StopText = node.StopReason.Text()
		}
		res = append(res, rn)
	}
	return res
}
