package model

import "time"

// Push payload shapes carried inside the WsEvent envelope. Timestamps
// travel as RFC 3339 via the standard time.Time JSON encoding.

// MessageEditedPayload notifies participants of an edit.
type MessageEditedPayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// MessageDeletedPayload notifies participants of a deletion. Content is
// always the tombstone placeholder.
type MessageDeletedPayload struct {
	MessageID string    `json:"messageId"`
	DeletedBy string    `json:"deletedBy"`
	DeletedAt time.Time `json:"deletedAt"`
	Content   string    `json:"content"`
}

// MessagesSeenPayload notifies a sender that the receiver has seen
// messages. MessageID is empty for the coarse fetch-side bulk path, set
// for the fine-grained per-message path.
type MessagesSeenPayload struct {
	MessageID  string     `json:"messageId,omitempty"`
	ReceiverID string     `json:"receiverId"`
	SeenAt     *time.Time `json:"seenAt,omitempty"`
}

// TypingPayload is a typing or stopTyping signal. Outbound from a
// client, To identifies the peer; forwarded by the server, From carries
// the typist.
type TypingPayload struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

// OnlineUsersPayload answers get-online-users and backs the connect
// broadcast.
type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

// UserOfflinePayload is the single departure notice sent on disconnect.
type UserOfflinePayload struct {
	UserID   string     `json:"userId"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

// GroupSignalPayload carries joinGroup/leaveGroup room signals.
type GroupSignalPayload struct {
	GroupID string `json:"groupId"`
}

// MarkSeenPayload is the client-side markMessagesSeen request over the
// push channel.
type MarkSeenPayload struct {
	SenderID string `json:"senderId"`
}

// ErrorPayload is an error frame sent to a client over the push channel.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
