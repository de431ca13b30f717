package event

import "encoding/json"

// Server -> client events.
const (
	EventNewMessage     = "newMessage"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
	EventMessagesSeen   = "messagesSeen"
	EventTyping         = "typing"
	EventStopTyping     = "stopTyping"
	EventOnlineUsers    = "online-users"
	EventUserOffline    = "user-offline"
	EventError          = "error"
)

// Client -> server events. Typing and stopTyping are bidirectional: the
// client sends them carrying a target, the server forwards them carrying
// the sender.
const (
	EventGetOnlineUsers   = "get-online-users"
	EventMarkMessagesSeen = "markMessagesSeen"
	EventJoinGroup        = "joinGroup"
	EventLeaveGroup       = "leaveGroup"
	EventGroupTyping      = "groupTyping"
)

// WsEvent is the envelope for every frame on the push channel.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Wrap marshals v and wraps it in an envelope.
func Wrap(name string, v any) (WsEvent, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return WsEvent{}, err
	}
	return WsEvent{Event: name, Payload: payload}, nil
}
