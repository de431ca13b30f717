package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence statuses persisted on the user document. The durable status
// is best-effort bookkeeping for "last seen" display; the in-memory
// presence registry is authoritative for delivery.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is a user document. Only the fields the messaging core touches
// are modeled here; profile editing is handled elsewhere.
type User struct {
	ID       primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Avatar   string             `json:"avatar" bson:"avatar"`
	Status   string             `json:"status" bson:"status"`
	LastSeen *time.Time         `json:"lastSeen,omitempty" bson:"last_seen,omitempty"`
}
