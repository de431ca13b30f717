package timeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type markRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *markRecorder) mark(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *markRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func TestSeenFiresAfterDebounce(t *testing.T) {
	rec := &markRecorder{}
	st := NewSeenTracker("alice", rec.mark)
	defer st.Stop()
	st.debounce = 20 * time.Millisecond

	st.MessageVisible(Entry{ID: "m1", SenderID: "bob"})

	assert.Eventually(t, func() bool {
		got := rec.snapshot()
		return len(got) == 1 && got[0] == "m1"
	}, time.Second, 5*time.Millisecond)
}

func TestSeenScrollThroughIsCancelled(t *testing.T) {
	rec := &markRecorder{}
	st := NewSeenTracker("alice", rec.mark)
	defer st.Stop()
	st.debounce = 50 * time.Millisecond

	st.MessageVisible(Entry{ID: "m1", SenderID: "bob"})
	st.MessageHidden("m1")

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestSeenIneligibleEntriesNeverArm(t *testing.T) {
	rec := &markRecorder{}
	st := NewSeenTracker("alice", rec.mark)
	defer st.Stop()
	st.debounce = 10 * time.Millisecond

	st.MessageVisible(Entry{ID: "m1", SenderID: "alice"})         // own message
	st.MessageVisible(Entry{ID: "m2", SenderID: "bob", Seen: true}) // already seen
	st.MessageVisible(Entry{SenderID: "bob"})                     // optimistic, no id

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}

func TestSeenRepeatedVisibilityKeepsOriginalDeadline(t *testing.T) {
	rec := &markRecorder{}
	st := NewSeenTracker("alice", rec.mark)
	defer st.Stop()
	st.debounce = 40 * time.Millisecond

	st.MessageVisible(Entry{ID: "m1", SenderID: "bob"})
	time.Sleep(25 * time.Millisecond)
	st.MessageVisible(Entry{ID: "m1", SenderID: "bob"})

	// Fires ~15ms from now if the original deadline held, ~40ms if the
	// second call re-armed it.
	assert.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, 30*time.Millisecond, 2*time.Millisecond)
}

func TestSeenStopCancelsPending(t *testing.T) {
	rec := &markRecorder{}
	st := NewSeenTracker("alice", rec.mark)
	st.debounce = 10 * time.Millisecond

	st.MessageVisible(Entry{ID: "m1", SenderID: "bob"})
	st.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
}
