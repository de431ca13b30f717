package hub

import (
	"sync"
	"time"

	"github.com/Arin958/ChattingApp/internal/event"
)

// Conn is the transport side of a registered user as the presence
// registry sees it. *Client implements it; tests substitute fakes.
type Conn interface {
	// ConnID identifies this particular connection, not the user.
	ConnID() string
	// SafeSend enqueues an event, reporting false on a closed client,
	// a full egress buffer or timeout. It never blocks past timeout.
	SafeSend(ev event.WsEvent, timeout time.Duration) bool
	// Close tears the connection down. Idempotent.
	Close()
}

// Presence maps a user id to their single active connection. It is the
// source of truth for "is this user reachable right now". One writer
// path (connect/disconnect), many readers (fanout, typing relay,
// online-users queries). Multi-device is not modeled: registering a
// user again overwrites the previous mapping.
type Presence struct {
	mu    sync.RWMutex
	users map[string]Conn
}

func NewPresence() *Presence {
	return &Presence{
		users: make(map[string]Conn),
	}
}

// Register binds userID to conn, returning the stale connection that was
// displaced, if any. The caller closes the stale connection without a
// departure broadcast so a reconnect never looks like a disconnect.
func (p *Presence) Register(userID string, conn Conn) (stale Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stale = p.users[userID]
	p.users[userID] = conn
	return stale
}

// Unregister clears the mapping for userID, but only when connID still
// identifies the current connection. Returns true when the user actually
// went offline; false means a newer connection already took over and no
// departure notice should be sent.
func (p *Presence) Unregister(userID, connID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.users[userID]
	if !ok || current.ConnID() != connID {
		return false
	}
	delete(p.users, userID)
	return true
}

// Lookup returns the live connection for userID, or nil. Pure read.
func (p *Presence) Lookup(userID string) Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.users[userID]
}

// SnapshotOnline returns the ids of every reachable user.
func (p *Presence) SnapshotOnline() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	return ids
}

// snapshotConns returns every live connection; used for broadcasts.
func (p *Presence) snapshotConns() []Conn {
	p.mu.RLock()
	defer p.mu.RUnlock()

	conns := make([]Conn, 0, len(p.users))
	for _, c := range p.users {
		conns = append(conns, c)
	}
	return conns
}
