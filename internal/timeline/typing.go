package timeline

import (
	"sync"
	"time"
)

// TypingExpiry bounds how long a typing indicator may stay lit without
// a refresh. A lost stopTyping event must never strand the UI in
// "typing..." forever.
const TypingExpiry = 2 * time.Second

// TypingState tracks which peers are currently typing, with a
// per-peer expiry timer. All timers are cancellable so a conversation
// switch or disconnect never leaves a callback mutating a torn-down
// view.
type TypingState struct {
	mu       sync.Mutex
	expiry   time.Duration
	active   map[string]*time.Timer
	onChange func(peerID string, typing bool)
	stopped  bool
}

// NewTypingState creates the tracker. onChange fires on every
// transition, including timer-driven expiry; it may be nil.
func NewTypingState(onChange func(peerID string, typing bool)) *TypingState {
	return &TypingState{
		expiry:   TypingExpiry,
		active:   make(map[string]*time.Timer),
		onChange: onChange,
	}
}

// SetTyping lights the indicator for peerID and arms (or re-arms) the
// expiry timer. Repeated typing signals keep pushing the deadline out.
func (ts *TypingState) SetTyping(peerID string) {
	ts.mu.Lock()
	if ts.stopped {
		ts.mu.Unlock()
		return
	}

	wasTyping := false
	if timer, ok := ts.active[peerID]; ok {
		wasTyping = true
		timer.Stop()
	}
	ts.active[peerID] = time.AfterFunc(ts.expiry, func() {
		ts.expire(peerID)
	})
	ts.mu.Unlock()

	if !wasTyping && ts.onChange != nil {
		ts.onChange(peerID, true)
	}
}

// ClearTyping clears the indicator on an explicit stopTyping signal.
func (ts *TypingState) ClearTyping(peerID string) {
	ts.mu.Lock()
	timer, ok := ts.active[peerID]
	if ok {
		timer.Stop()
		delete(ts.active, peerID)
	}
	ts.mu.Unlock()

	if ok && ts.onChange != nil {
		ts.onChange(peerID, false)
	}
}

// IsTyping reports whether peerID currently shows as typing.
func (ts *TypingState) IsTyping(peerID string) bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	_, ok := ts.active[peerID]
	return ok
}

// Stop cancels every pending timer. Called on conversation switch or
// disconnect.
func (ts *TypingState) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.stopped = true
	for id, timer := range ts.active {
		timer.Stop()
		delete(ts.active, id)
	}
}

func (ts *TypingState) expire(peerID string) {
	ts.mu.Lock()
	_, ok := ts.active[peerID]
	if ok {
		delete(ts.active, peerID)
	}
	stopped := ts.stopped
	ts.mu.Unlock()

	if ok && !stopped && ts.onChange != nil {
		ts.onChange(peerID, false)
	}
}
