package hub

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"
	"github.com/Arin958/ChattingApp/internal/repo"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	shardCount = 64 // tune: 16/64/128 depending on load
)

type inboundMessage struct {
	event  event.WsEvent
	client *Client
}

// roomBucket holds the joined-member sets for a shard of group rooms.
// Rooms track which connected users have an open group view; message
// fanout resolves recipients from the stored member list instead, so
// offline members still reconcile on their next fetch.
type roomBucket struct {
	sync.RWMutex
	rooms map[string]map[string]struct{}
}

// SeenMarker is the slice of the chat service the hub needs for the
// markMessagesSeen push event. Bound after construction to keep the
// dependency direction service -> hub.
type SeenMarker interface {
	MarkSeenFromPeer(ctx context.Context, receiverID, senderID string) error
}

type Hub struct {
	presence *Presence
	shards   [shardCount]*roomBucket

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundMessage

	users  repo.UserRepository
	seen   SeenMarker
	logger *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub builds the hub around an injected presence registry. The
// registry is owned by the composition root, not a package global, so
// it can be tested in isolation and swapped for a distributed-backed
// implementation later.
func NewHub(presence *Presence, users repo.UserRepository, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		presence:   presence,
		register:   make(chan *Client, 1024),
		unregister: make(chan *Client, 1024),
		inbound:    make(chan inboundMessage, 4096), // buffer for burst handling
		users:      users,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < shardCount; i++ {
		h.shards[i] = &roomBucket{
			rooms: make(map[string]map[string]struct{}),
		}
	}

	// run manager loop
	go h.run()

	// start worker loop
	for i := 0; i < workerPoolSize; i++ {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			for {
				select {
				case <-h.ctx.Done():
					return
				case in := <-h.inbound:
					h.handleEvent(in.event, in.client)
				}
			}
		}()
	}

	return h
}

// BindSeenMarker completes initialization once the chat service exists.
func (h *Hub) BindSeenMarker(s SeenMarker) {
	h.seen = s
}

// Presence exposes the registry to the REST layer and the monitor.
func (h *Hub) Presence() *Presence {
	return h.presence
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		}
	}
}

// addClient makes c the active connection for its user. A reconnect
// overwrites the stale mapping and closes the old connection without a
// departure notice, so a network blip never produces an offline/online
// broadcast storm.
func (h *Hub) addClient(c *Client) {
	if stale := h.presence.Register(c.userID, c); stale != nil {
		h.logger.Info("displacing stale connection",
			zap.String("user_id", c.userID),
			zap.String("old_conn", stale.ConnID()),
			zap.String("new_conn", c.ID),
		)
		stale.Close()
	}

	// Durable status flip is best-effort bookkeeping for "last seen"
	// display. Delivery correctness never depends on it.
	go func() {
		if err := h.setUserStatus(c.userID, true, time.Time{}); err != nil {
			h.logger.Warn("failed to persist online status",
				zap.Error(err), zap.String("user_id", c.userID))
		}
	}()

	h.broadcastOnlineUsers()
	h.logger.Info("client registered",
		zap.String("user_id", c.userID), zap.String("conn_id", c.ID))
}

// removeClient handles a connection close. The departure notice is a
// single user-offline event, not a full online-list rebroadcast, to
// bound fanout cost. Nothing is broadcast when a newer connection for
// the same user already took over.
func (h *Hub) removeClient(c *Client) {
	h.leaveAllRooms(c)

	wentOffline := h.presence.Unregister(c.userID, c.ID)
	c.Close()

	if !wentOffline {
		return
	}

	lastSeen := time.Now().UTC()
	go func() {
		if err := h.setUserStatus(c.userID, false, lastSeen); err != nil {
			h.logger.Warn("failed to persist offline status",
				zap.Error(err), zap.String("user_id", c.userID))
		}
	}()

	ev, err := event.Wrap(event.EventUserOffline, model.UserOfflinePayload{
		UserID:   c.userID,
		LastSeen: &lastSeen,
	})
	if err != nil {
		h.logger.Error("failed to encode user-offline event", zap.Error(err))
		return
	}
	h.broadcast(ev)

	h.logger.Info("client removed",
		zap.String("user_id", c.userID), zap.String("conn_id", c.ID))
}

func (h *Hub) setUserStatus(userID string, online bool, lastSeen time.Time) error {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if online {
		return h.users.SetOnline(ctx, oid)
	}
	return h.users.SetOffline(ctx, oid, lastSeen)
}

// broadcastOnlineUsers pushes the current online set to every
// connection. Fired on each connect; a freshly connected client that
// raced past it can pull the same snapshot with get-online-users.
func (h *Hub) broadcastOnlineUsers() {
	ev, err := event.Wrap(event.EventOnlineUsers, model.OnlineUsersPayload{
		UserIDs: h.presence.SnapshotOnline(),
	})
	if err != nil {
		h.logger.Error("failed to encode online-users event", zap.Error(err))
		return
	}
	h.broadcast(ev)
}

func (h *Hub) broadcast(ev event.WsEvent) {
	for _, conn := range h.presence.snapshotConns() {
		if !conn.SafeSend(ev, sendTimeout) {
			h.logger.Warn("broadcast dropped for unresponsive client",
				zap.String("conn_id", conn.ConnID()), zap.String("event", ev.Event))
		}
	}
}

// -----------------------------------------------------------------
// Inbound event dispatch
// -----------------------------------------------------------------

func (h *Hub) handleEvent(ev event.WsEvent, c *Client) {
	switch ev.Event {
	case event.EventTyping, event.EventStopTyping:
		h.relayTyping(ev.Event, ev.Payload, c)
	case event.EventGroupTyping:
		h.relayGroupTyping(ev.Payload, c)
	case event.EventGetOnlineUsers:
		h.sendOnlineUsers(c)
	case event.EventMarkMessagesSeen:
		h.markSeenFromPeer(ev.Payload, c)
	case event.EventJoinGroup:
		h.joinRoom(ev.Payload, c)
	case event.EventLeaveGroup:
		h.leaveRoom(ev.Payload, c)
	default:
		h.logger.Warn("unknown event type",
			zap.String("event", ev.Event), zap.String("user_id", c.userID))
	}
}

// sendOnlineUsers answers an explicit pull from a freshly connected
// client with the registry snapshot.
func (h *Hub) sendOnlineUsers(c *Client) {
	ev, err := event.Wrap(event.EventOnlineUsers, model.OnlineUsersPayload{
		UserIDs: h.presence.SnapshotOnline(),
	})
	if err != nil {
		h.logger.Error("failed to encode online-users event", zap.Error(err))
		return
	}
	c.SafeSend(ev, sendTimeout)
}

func (h *Hub) markSeenFromPeer(payload json.RawMessage, c *Client) {
	if h.seen == nil {
		return
	}

	var req model.MarkSeenPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SenderID == "" {
		h.sendError(c, "invalid_payload", "markMessagesSeen requires a senderId")
		return
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	if err := h.seen.MarkSeenFromPeer(ctx, c.userID, req.SenderID); err != nil {
		h.logger.Warn("markMessagesSeen failed",
			zap.Error(err), zap.String("user_id", c.userID))
	}
}

func (h *Hub) sendError(c *Client, code, message string) {
	ev, err := event.Wrap(event.EventError, model.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	c.SafeSend(ev, sendTimeout)
}

// -----------------------------------------------------------------
// Group rooms
// -----------------------------------------------------------------

func getShard(roomID string) uint32 {
	if roomID == "" {
		return 0
	}

	sum := sha1.Sum([]byte(roomID))
	return binary.BigEndian.Uint32(sum[:4]) % shardCount
}

func (h *Hub) joinRoom(payload json.RawMessage, c *Client) {
	var sig model.GroupSignalPayload
	if err := json.Unmarshal(payload, &sig); err != nil || sig.GroupID == "" {
		h.sendError(c, "invalid_payload", "joinGroup requires a groupId")
		return
	}

	b := h.shards[getShard(sig.GroupID)]
	b.Lock()
	room, ok := b.rooms[sig.GroupID]
	if !ok {
		room = make(map[string]struct{})
		b.rooms[sig.GroupID] = room
	}
	room[c.userID] = struct{}{}
	b.Unlock()

	c.trackRoom(sig.GroupID)
	h.logger.Debug("user joined room",
		zap.String("user_id", c.userID), zap.String("group_id", sig.GroupID))
}

func (h *Hub) leaveRoom(payload json.RawMessage, c *Client) {
	var sig model.GroupSignalPayload
	if err := json.Unmarshal(payload, &sig); err != nil || sig.GroupID == "" {
		return
	}
	h.dropFromRoom(sig.GroupID, c.userID)
	c.untrackRoom(sig.GroupID)
}

func (h *Hub) dropFromRoom(groupID, userID string) {
	b := h.shards[getShard(groupID)]
	b.Lock()
	defer b.Unlock()

	if room, ok := b.rooms[groupID]; ok {
		delete(room, userID)
		if len(room) == 0 {
			delete(b.rooms, groupID)
		}
	}
}

func (h *Hub) leaveAllRooms(c *Client) {
	for _, groupID := range c.joinedRooms() {
		h.dropFromRoom(groupID, c.userID)
	}
}

// roomMembers returns the connected users with the group open.
func (h *Hub) roomMembers(groupID string) []string {
	b := h.shards[getShard(groupID)]
	b.RLock()
	defer b.RUnlock()

	room, ok := b.rooms[groupID]
	if !ok {
		return nil
	}
	members := make([]string, 0, len(room))
	for id := range room {
		members = append(members, id)
	}
	return members
}

// -----------------------------------------------------------------
// WebSocket entry and shutdown
// -----------------------------------------------------------------

var websocketUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	switch origin {
	case "", "http://localhost:5173":
		return true
	case "https://chatting-app-dusky.vercel.app":
		return true
	default:
		return false
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocketUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	RegisterClient(userID, conn, h)
}

// Stop cancels the hub, closes every tracked connection, and waits for
// the workers to exit via the context. The inbound channel is left
// open: a read pump losing the shutdown race may still enqueue into it,
// and a send on a closed channel would panic. Undrained events are
// dropped with the hub.
func (h *Hub) Stop() {
	h.cancel()

	for _, conn := range h.presence.snapshotConns() {
		conn.Close()
	}

	h.wg.Wait()
}
