package timeline

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"
)

// Engine wires the reconciliation pieces to the push channel wire
// contract: one instance per open conversation view. It owns the
// timeline, the typing indicator, the scroll anchor and the seen
// tracker, and serializes all mutations.
type Engine struct {
	mu       sync.Mutex
	viewerID string
	peerID   string

	session  Session
	timeline *Timeline
	Typing   *TypingState
	Scroll   *ScrollAnchor
	Seen     *SeenTracker

	// onAutoScroll fires when a merged message should scroll the view
	// to the bottom; nil is fine for headless use.
	onAutoScroll func()
}

// Config carries the Engine callbacks.
type Config struct {
	ViewerID string
	// OnTypingChange fires when a peer's indicator lights or clears.
	OnTypingChange func(peerID string, typing bool)
	// OnMarkSeen performs the client-initiated mark-seen mutation once
	// a message has been visible past the debounce.
	OnMarkSeen func(messageID string)
	// OnAutoScroll scrolls the view to the bottom.
	OnAutoScroll func()
}

func NewEngine(cfg Config) *Engine {
	return &Engine{
		viewerID:     cfg.ViewerID,
		timeline:     New(),
		Typing:       NewTypingState(cfg.OnTypingChange),
		Scroll:       NewScrollAnchor(),
		Seen:         NewSeenTracker(cfg.ViewerID, cfg.OnMarkSeen),
		onAutoScroll: cfg.OnAutoScroll,
	}
}

// OpenConversation resets the engine onto a conversation and returns
// the token fetches for it must carry. Pending timers from the previous
// conversation are cancelled, not leaked.
func (e *Engine) OpenConversation(peerID string) FetchToken {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.peerID = peerID
	e.timeline.Reset()
	e.Typing.Stop()
	e.Typing = NewTypingState(e.Typing.onChange)
	e.Seen.Stop()
	e.Seen = NewSeenTracker(e.viewerID, e.Seen.mark)
	e.Scroll = NewScrollAnchor()
	return e.session.SwitchTo(peerID)
}

// Entries returns the merged, ordered view of the open conversation.
func (e *Engine) Entries() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeline.Entries()
}

// ApplyFetch merges a fetched page. Results from a superseded fetch
// (stale token) are discarded whole.
func (e *Engine) ApplyFetch(tok FetchToken, entries []Entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.Accept(tok) {
		return false
	}
	for _, entry := range entries {
		e.timeline.Merge(entry)
	}
	return true
}

// SendOptimistic appends the local placeholder for a just-sent message.
func (e *Engine) SendOptimistic(localKey, content string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeline.AppendOptimistic(localKey, e.viewerID, content, time.Now())
}

// ConfirmSend merges the HTTP response for a send; by the merge rules
// this either upgrades the optimistic placeholder or is dropped when
// the push echo already did.
func (e *Engine) ConfirmSend(entry Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeline.Merge(entry)
}

// HandlePush applies one push channel frame.
func (e *Engine) HandlePush(ev event.WsEvent) error {
	switch ev.Event {
	case event.EventNewMessage:
		return e.handleNewMessage(ev.Payload)
	case event.EventMessageEdited:
		return e.handleEdited(ev.Payload)
	case event.EventMessageDeleted:
		return e.handleDeleted(ev.Payload)
	case event.EventMessagesSeen:
		return e.handleSeen(ev.Payload)
	case event.EventTyping:
		return e.handleTyping(ev.Payload, true)
	case event.EventStopTyping:
		return e.handleTyping(ev.Payload, false)
	default:
		// Presence frames and anything newer than this client are not
		// the engine's concern.
		return nil
	}
}

func (e *Engine) handleNewMessage(payload json.RawMessage) error {
	entry, err := DecodeMessage(payload)
	if err != nil {
		return fmt.Errorf("decode newMessage: %w", err)
	}

	e.mu.Lock()
	result := e.timeline.Merge(entry)
	autoScroll := result != MergeDropped && e.Scroll.ShouldAutoScroll()
	typing := e.Typing
	e.mu.Unlock()

	// A message from the peer means they stopped typing to hit send.
	if entry.SenderID != "" && entry.SenderID != e.viewerID {
		typing.ClearTyping(entry.SenderID)
	}

	if autoScroll && e.onAutoScroll != nil {
		e.onAutoScroll()
	}
	return nil
}

func (e *Engine) handleEdited(payload json.RawMessage) error {
	var p model.MessageEditedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode messageEdited: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeline.ApplyEdit(p.MessageID, p.NewContent)
	return nil
}

func (e *Engine) handleDeleted(payload json.RawMessage) error {
	var p model.MessageDeletedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode messageDeleted: %w", err)
	}

	placeholder := p.Content
	if placeholder == "" {
		placeholder = model.DeletedPlaceholder
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.timeline.ApplyDelete(p.MessageID, p.DeletedBy, placeholder)
	return nil
}

func (e *Engine) handleSeen(payload json.RawMessage) error {
	var p model.MessagesSeenPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode messagesSeen: %w", err)
	}

	seenAt := time.Now()
	if p.SeenAt != nil {
		seenAt = *p.SeenAt
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p.MessageID != "" {
		e.timeline.ApplySeen(p.MessageID, seenAt)
	} else {
		// Coarse receipt: everything the viewer sent is now seen.
		e.timeline.ApplySeenBulk(e.viewerID, seenAt)
	}
	return nil
}

func (e *Engine) handleTyping(payload json.RawMessage, active bool) error {
	var p model.TypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode typing: %w", err)
	}
	if p.From == "" || p.From == e.viewerID {
		return nil
	}

	e.mu.Lock()
	typing := e.Typing
	e.mu.Unlock()

	if active {
		typing.SetTyping(p.From)
	} else {
		typing.ClearTyping(p.From)
	}
	return nil
}
