// Package timeline is the client-side reconciliation core: it merges
// the three message sources a chat view sees (fetched pages, optimistic
// local sends, inbound push events) into one ordered, deduplicated,
// mutable sequence per conversation, and owns the ephemeral view state
// around it (typing indicator, scroll anchoring, seen marking).
package timeline

import (
	"encoding/json"
	"sort"
	"time"
)

// DupWindow is the createdAt tolerance for treating two entries with
// identical content as the same message. It exists to reconcile an
// optimistically appended local message with the server echo of the
// same message arriving via push before the HTTP response returns.
const DupWindow = time.Second

// Entry is a message projected into the view, plus the local-only
// reconciliation key used before the authoritative id is known.
type Entry struct {
	ID        string // authoritative server id; empty while optimistic
	LocalKey  string // client-generated key for the optimistic placeholder
	SenderID  string
	Content   string
	Type      string
	MediaURL  string
	Seen      bool
	SeenAt    time.Time
	Edited    bool
	Deleted   bool
	DeletedBy string
	CreatedAt time.Time

	arrival int // breaks createdAt ties by arrival order
}

// Authoritative reports whether the entry carries a server id.
func (e *Entry) Authoritative() bool {
	return e.ID != ""
}

// MergeResult describes what a Merge call did.
type MergeResult int

const (
	// MergeAdded means the entry was new and was appended.
	MergeAdded MergeResult = iota
	// MergeReplaced means an existing placeholder was upgraded with
	// the authoritative entry.
	MergeReplaced
	// MergeDropped means the entry duplicated an existing one and was
	// discarded.
	MergeDropped
)

// Timeline is one conversation's ordered, deduplicated message
// sequence. Not safe for concurrent use; the owning session
// serializes access.
type Timeline struct {
	entries []Entry
	arrival int
}

func New() *Timeline {
	return &Timeline{}
}

// Len returns the number of entries.
func (t *Timeline) Len() int {
	return len(t.entries)
}

// Entries returns the sequence oldest-first.
func (t *Timeline) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Reset drops all entries, for a conversation switch.
func (t *Timeline) Reset() {
	t.entries = nil
	t.arrival = 0
}

// AppendOptimistic inserts a local placeholder for a message the server
// has not yet confirmed. The localKey ties the eventual failure or
// retry back to this entry; the authoritative echo replaces it through
// the normal Merge path.
func (t *Timeline) AppendOptimistic(localKey, senderID, content string, createdAt time.Time) {
	t.insert(Entry{
		LocalKey:  localKey,
		SenderID:  senderID,
		Content:   content,
		Type:      "text",
		CreatedAt: createdAt,
	})
}

// Merge reconciles one incoming entry, from any source, into the
// sequence. An incoming entry duplicates an existing one when the
// authoritative ids match, or when the content matches and the
// createdAt difference is within DupWindow. A duplicate replaces the
// existing entry only when the incoming one is authoritative and the
// existing one is not; otherwise it is dropped. The sequence stays
// sorted by createdAt ascending, stable on ties.
func (t *Timeline) Merge(e Entry) MergeResult {
	for i := range t.entries {
		if !t.isDuplicate(&t.entries[i], &e) {
			continue
		}
		if e.Authoritative() && !t.entries[i].Authoritative() {
			e.arrival = t.entries[i].arrival
			e.LocalKey = t.entries[i].LocalKey
			t.entries[i] = e
			t.resort()
			return MergeReplaced
		}
		return MergeDropped
	}

	t.insert(e)
	return MergeAdded
}

func (t *Timeline) isDuplicate(existing, incoming *Entry) bool {
	if existing.ID != "" && existing.ID == incoming.ID {
		return true
	}
	if existing.Content != incoming.Content {
		return false
	}
	delta := existing.CreatedAt.Sub(incoming.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return delta <= DupWindow
}

func (t *Timeline) insert(e Entry) {
	e.arrival = t.arrival
	t.arrival++
	t.entries = append(t.entries, e)
	t.resort()
}

func (t *Timeline) resort() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		a, b := &t.entries[i], &t.entries[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.arrival < b.arrival
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// ApplyEdit updates the content of the identified entry.
func (t *Timeline) ApplyEdit(id, newContent string) bool {
	e := t.byID(id)
	if e == nil || e.Deleted {
		return false
	}
	e.Content = newContent
	e.Edited = true
	return true
}

// ApplyDelete turns the identified entry into a tombstone. The
// original content and media URL are gone from the view.
func (t *Timeline) ApplyDelete(id, deletedBy, placeholder string) bool {
	e := t.byID(id)
	if e == nil {
		return false
	}
	e.Deleted = true
	e.DeletedBy = deletedBy
	e.Content = placeholder
	e.MediaURL = ""
	return true
}

// ApplySeen marks a single entry seen. Monotonic: an already-seen entry
// is untouched, so a duplicate receipt never moves seenAt.
func (t *Timeline) ApplySeen(id string, seenAt time.Time) bool {
	e := t.byID(id)
	if e == nil || e.Seen {
		return false
	}
	e.Seen = true
	e.SeenAt = seenAt
	return true
}

// ApplySeenBulk marks every unseen entry from the viewer to peer as
// seen; this mirrors the server's coarse fetch-side receipt, which
// reports no individual ids. Returns how many entries flipped.
func (t *Timeline) ApplySeenBulk(viewerID string, seenAt time.Time) int {
	flipped := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.Seen || e.SenderID != viewerID {
			continue
		}
		e.Seen = true
		e.SeenAt = seenAt
		flipped++
	}
	return flipped
}

func (t *Timeline) byID(id string) *Entry {
	if id == "" {
		return nil
	}
	for i := range t.entries {
		if t.entries[i].ID == id {
			return &t.entries[i]
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Wire normalization
// -----------------------------------------------------------------------------

// wireMessage tolerates the two shapes the server historically sent:
// sender/receiver as a bare id string or as an embedded object.
type wireMessage struct {
	ID        string          `json:"_id"`
	Sender    json.RawMessage `json:"sender"`
	Content   string          `json:"content"`
	Type      string          `json:"type"`
	MediaURL  string          `json:"mediaUrl"`
	Seen      bool            `json:"seen"`
	SeenAt    *time.Time      `json:"seenAt"`
	Edited    bool            `json:"edited"`
	Deleted   bool            `json:"deleted"`
	CreatedAt *time.Time      `json:"createdAt"`
}

type wireUserRef struct {
	ID string `json:"_id"`
}

// DecodeMessage normalizes a pushed or fetched message into an Entry at
// the ingestion boundary, so nothing downstream branches on shape.
func DecodeMessage(data []byte) (Entry, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:       w.ID,
		Content:  w.Content,
		Type:     w.Type,
		MediaURL: w.MediaURL,
		Seen:     w.Seen,
		Edited:   w.Edited,
		Deleted:  w.Deleted,
	}
	if w.SeenAt != nil {
		e.SeenAt = *w.SeenAt
	}
	if w.CreatedAt != nil {
		e.CreatedAt = *w.CreatedAt
	} else {
		e.CreatedAt = time.Now()
	}

	e.SenderID = decodeUserRef(w.Sender)
	return e, nil
}

func decodeUserRef(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var ref wireUserRef
	if err := json.Unmarshal(raw, &ref); err == nil {
		return ref.ID
	}
	return ""
}
