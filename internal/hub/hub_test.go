package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"
	"github.com/Arin958/ChattingApp/internal/repo"
)

type stubUserRepo struct{}

func (stubUserRepo) GetUser(context.Context, primitive.ObjectID) (*model.User, error) {
	return nil, repo.ErrUserNotFound
}
func (stubUserRepo) SetOnline(context.Context, primitive.ObjectID) error  { return nil }
func (stubUserRepo) SetOffline(context.Context, primitive.ObjectID, time.Time) error {
	return nil
}
func (stubUserRepo) OnlineUserIDs(context.Context) ([]string, error) { return nil, nil }

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(NewPresence(), stubUserRepo{}, zap.NewNop())
	t.Cleanup(h.Stop)
	return h
}

// newTestClient builds a client without a websocket behind it; tests
// read its egress channel directly.
func newTestClient(userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:         "test-conn-" + userID,
		userID:     userID,
		egress:     make(chan event.WsEvent, 8),
		rooms:      make(map[string]struct{}),
		ctx:        ctx,
		cancel:     cancel,
		connClosed: make(chan struct{}),
	}
}

func receiveEvent(t *testing.T, c *Client) event.WsEvent {
	t.Helper()
	select {
	case ev := <-c.egress:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event on egress")
		return event.WsEvent{}
	}
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRelayTypingForwardsSenderIdentity(t *testing.T) {
	h := newTestHub(t)
	bobConn := newFakeConn("c-bob")
	h.presence.Register("bob", bobConn)

	alice := newTestClient("alice")
	h.handleEvent(event.WsEvent{
		Event:   event.EventTyping,
		Payload: mustPayload(t, model.TypingPayload{To: "bob"}),
	}, alice)

	sent := bobConn.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, event.EventTyping, sent[0].Event)

	var p model.TypingPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &p))
	assert.Equal(t, "alice", p.From)
	assert.Empty(t, p.To)

	h.handleEvent(event.WsEvent{
		Event:   event.EventStopTyping,
		Payload: mustPayload(t, model.TypingPayload{To: "bob"}),
	}, alice)
	require.Len(t, bobConn.sent(), 2)
	assert.Equal(t, event.EventStopTyping, bobConn.sent()[1].Event)
}

func TestRelayTypingOfflineTargetIsDropped(t *testing.T) {
	h := newTestHub(t)
	alice := newTestClient("alice")

	h.handleEvent(event.WsEvent{
		Event:   event.EventTyping,
		Payload: mustPayload(t, model.TypingPayload{To: "bob"}),
	}, alice)

	// No error frame either: an offline target is not a client mistake.
	assert.Empty(t, alice.egress)
}

func TestRelayTypingWithoutTargetSendsErrorFrame(t *testing.T) {
	h := newTestHub(t)
	alice := newTestClient("alice")

	h.handleEvent(event.WsEvent{
		Event:   event.EventTyping,
		Payload: mustPayload(t, model.TypingPayload{}),
	}, alice)

	ev := receiveEvent(t, alice)
	assert.Equal(t, event.EventError, ev.Event)
}

func TestGroupRoomJoinLeaveAndTypingRelay(t *testing.T) {
	h := newTestHub(t)
	groupID := primitive.NewObjectID().Hex()

	alice := newTestClient("alice")
	bob := newTestClient("bob")
	bobConn := newFakeConn("c-bob")
	h.presence.Register("bob", bobConn)

	join := mustPayload(t, model.GroupSignalPayload{GroupID: groupID})
	h.handleEvent(event.WsEvent{Event: event.EventJoinGroup, Payload: join}, alice)
	h.handleEvent(event.WsEvent{Event: event.EventJoinGroup, Payload: join}, bob)
	assert.ElementsMatch(t, []string{"alice", "bob"}, h.roomMembers(groupID))

	h.handleEvent(event.WsEvent{
		Event:   event.EventGroupTyping,
		Payload: mustPayload(t, model.TypingPayload{GroupID: groupID}),
	}, alice)

	// Bob sees alice typing; alice does not hear herself.
	sent := bobConn.sent()
	require.Len(t, sent, 1)
	var p model.TypingPayload
	require.NoError(t, json.Unmarshal(sent[0].Payload, &p))
	assert.Equal(t, "alice", p.From)
	assert.Equal(t, groupID, p.GroupID)
	assert.Empty(t, alice.egress)

	h.handleEvent(event.WsEvent{Event: event.EventLeaveGroup, Payload: join}, bob)
	assert.ElementsMatch(t, []string{"alice"}, h.roomMembers(groupID))

	h.handleEvent(event.WsEvent{Event: event.EventLeaveGroup, Payload: join}, alice)
	assert.Empty(t, h.roomMembers(groupID))
}

func TestGetOnlineUsersAnswersWithSnapshot(t *testing.T) {
	h := newTestHub(t)
	h.presence.Register("bob", newFakeConn("c-bob"))
	h.presence.Register("carol", newFakeConn("c-carol"))

	alice := newTestClient("alice")
	h.handleEvent(event.WsEvent{Event: event.EventGetOnlineUsers}, alice)

	ev := receiveEvent(t, alice)
	assert.Equal(t, event.EventOnlineUsers, ev.Event)

	var p model.OnlineUsersPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	assert.ElementsMatch(t, []string{"bob", "carol"}, p.UserIDs)
}

type recordingSeenMarker struct {
	receiverID string
	senderID   string
	calls      int
}

func (r *recordingSeenMarker) MarkSeenFromPeer(_ context.Context, receiverID, senderID string) error {
	r.receiverID = receiverID
	r.senderID = senderID
	r.calls++
	return nil
}

func TestMarkMessagesSeenDispatch(t *testing.T) {
	h := newTestHub(t)
	marker := &recordingSeenMarker{}
	h.BindSeenMarker(marker)

	alice := newTestClient("alice")
	h.handleEvent(event.WsEvent{
		Event:   event.EventMarkMessagesSeen,
		Payload: mustPayload(t, model.MarkSeenPayload{SenderID: "bob"}),
	}, alice)

	assert.Equal(t, 1, marker.calls)
	assert.Equal(t, "alice", marker.receiverID)
	assert.Equal(t, "bob", marker.senderID)
}

func TestMarkMessagesSeenRequiresSenderID(t *testing.T) {
	h := newTestHub(t)
	marker := &recordingSeenMarker{}
	h.BindSeenMarker(marker)

	alice := newTestClient("alice")
	h.handleEvent(event.WsEvent{
		Event:   event.EventMarkMessagesSeen,
		Payload: mustPayload(t, model.MarkSeenPayload{}),
	}, alice)

	assert.Zero(t, marker.calls)
	ev := receiveEvent(t, alice)
	assert.Equal(t, event.EventError, ev.Event)
}

// A read pump that loses the shutdown race may still enqueue an inbound
// event after Stop returns; that must never panic.
func TestStopLeavesInboundOpenForStragglingReaders(t *testing.T) {
	h := NewHub(NewPresence(), stubUserRepo{}, zap.NewNop())
	h.Stop()

	assert.NotPanics(t, func() {
		select {
		case h.inbound <- inboundMessage{
			event:  event.WsEvent{Event: event.EventGetOnlineUsers},
			client: newTestClient("alice"),
		}:
		default:
		}
	})
}

func TestMonitorStats(t *testing.T) {
	h := newTestHub(t)
	h.presence.Register("bob", newFakeConn("c-bob"))
	h.presence.Register("alice", newFakeConn("c-alice"))

	groupID := "group-1"
	carol := newTestClient("carol")
	h.handleEvent(event.WsEvent{
		Event:   event.EventJoinGroup,
		Payload: mustPayload(t, model.GroupSignalPayload{GroupID: groupID}),
	}, carol)

	stats := NewMonitorService(h).GetStats()
	assert.Equal(t, "healthy", stats.Status)
	assert.Equal(t, 2, stats.Connections.TotalConnected)
	assert.Equal(t, []string{"alice", "bob"}, stats.OnlineUsers)
	require.Equal(t, 1, stats.Rooms.TotalRooms)
	assert.Equal(t, groupID, stats.Rooms.RoomDetails[0].GroupID)
	assert.Equal(t, []string{"carol"}, stats.Rooms.RoomDetails[0].Members)
}

func TestMonitorStatsIdleWhenNobodyConnected(t *testing.T) {
	h := newTestHub(t)
	stats := NewMonitorService(h).GetStats()
	assert.Equal(t, "idle", stats.Status)
	assert.Zero(t, stats.Connections.TotalConnected)
}

func TestCheckOrigin(t *testing.T) {
	cases := []struct {
		origin  string
		allowed bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"https://chatting-app-dusky.vercel.app", true},
		{"https://evil.example.com", false},
	}

	for _, tc := range cases {
		r, _ := http.NewRequest(http.MethodGet, "/ws", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		assert.Equal(t, tc.allowed, checkOrigin(r), "origin %q", tc.origin)
	}
}

func TestGetShardIsStableAndBounded(t *testing.T) {
	assert.Equal(t, getShard("room-1"), getShard("room-1"))
	assert.Less(t, getShard("room-1"), uint32(shardCount))
	assert.Zero(t, getShard(""))
}
