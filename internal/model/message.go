package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message content types.
const (
	TypeText  = "text"
	TypeImage = "image"
	TypeVideo = "video"
	TypeFile  = "file"
)

// DeletedPlaceholder replaces the content of a deleted message. The
// original body and media URL are never served again through normal
// read paths.
const DeletedPlaceholder = "This message was deleted"

// MaxContentLength caps message bodies.
const MaxContentLength = 2000

// Message is a chat message document. Exactly one of Receiver/Group is
// set: Receiver for direct messages, Group for group messages.
// ID, Sender and CreatedAt are immutable after insert.
type Message struct {
	ID        primitive.ObjectID  `json:"_id" bson:"_id,omitempty"`
	Sender    primitive.ObjectID  `json:"sender" bson:"sender"`
	Receiver  *primitive.ObjectID `json:"receiver,omitempty" bson:"receiver,omitempty"`
	Group     *primitive.ObjectID `json:"group,omitempty" bson:"group,omitempty"`
	Content   string              `json:"content" bson:"content"`
	Type      string              `json:"type" bson:"type"`
	MediaURL  *string             `json:"mediaUrl,omitempty" bson:"media_url,omitempty"`
	Seen      bool                `json:"seen" bson:"seen"`
	SeenAt    *time.Time          `json:"seenAt,omitempty" bson:"seen_at,omitempty"`
	Edited    bool                `json:"edited" bson:"edited"`
	Deleted   bool                `json:"deleted" bson:"deleted"`
	DeletedBy *primitive.ObjectID `json:"deletedBy,omitempty" bson:"deleted_by,omitempty"`
	DeletedAt *time.Time          `json:"deletedAt,omitempty" bson:"deleted_at,omitempty"`
	CreatedAt time.Time           `json:"createdAt" bson:"created_at"`
}

// IsDirect reports whether the message belongs to a direct conversation.
func (m *Message) IsDirect() bool {
	return m.Receiver != nil
}

// Tombstone returns a copy with the content replaced by the deletion
// placeholder and the media reference dropped.
func (m Message) Tombstone(by primitive.ObjectID, at time.Time) Message {
	m.Content = DeletedPlaceholder
	m.MediaURL = nil
	m.Deleted = true
	m.DeletedBy = &by
	m.DeletedAt = &at
	return m
}
