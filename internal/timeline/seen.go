package timeline

import (
	"sync"
	"time"
)

// SeenDebounce is how long a message must stay visible before the
// client marks it seen. Fast scroll-through must not generate receipts.
const SeenDebounce = 300 * time.Millisecond

// SeenTracker turns visibility confirmations into debounced mark-seen
// mutations. A message is eligible when it is not the viewer's own, not
// already seen, and carries an authoritative id. Timers are bound to
// the tracker lifetime: Stop cancels everything on conversation switch
// or disconnect.
type SeenTracker struct {
	mu       sync.Mutex
	debounce time.Duration
	viewerID string
	pending  map[string]*time.Timer
	mark     func(messageID string)
	stopped  bool
}

// NewSeenTracker creates the tracker. mark fires once per message after
// the debounce holds; it performs the actual client-initiated mutation.
func NewSeenTracker(viewerID string, mark func(messageID string)) *SeenTracker {
	return &SeenTracker{
		debounce: SeenDebounce,
		viewerID: viewerID,
		pending:  make(map[string]*time.Timer),
		mark:     mark,
	}
}

// MessageVisible reports that e entered the viewport. Arms the debounce
// timer when the entry is eligible; already-pending entries keep their
// original deadline.
func (st *SeenTracker) MessageVisible(e Entry) {
	if e.SenderID == st.viewerID || e.Seen || !e.Authoritative() {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.stopped {
		return
	}
	if _, ok := st.pending[e.ID]; ok {
		return
	}

	id := e.ID
	st.pending[id] = time.AfterFunc(st.debounce, func() {
		st.fire(id)
	})
}

// MessageHidden reports that the message left the viewport before the
// debounce held; the pending receipt is cancelled.
func (st *SeenTracker) MessageHidden(messageID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if timer, ok := st.pending[messageID]; ok {
		timer.Stop()
		delete(st.pending, messageID)
	}
}

// Stop cancels every pending receipt.
func (st *SeenTracker) Stop() {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.stopped = true
	for id, timer := range st.pending {
		timer.Stop()
		delete(st.pending, id)
	}
}

func (st *SeenTracker) fire(messageID string) {
	st.mu.Lock()
	_, ok := st.pending[messageID]
	if ok {
		delete(st.pending, messageID)
	}
	stopped := st.stopped
	st.mu.Unlock()

	if ok && !stopped && st.mark != nil {
		st.mark(messageID)
	}
}
