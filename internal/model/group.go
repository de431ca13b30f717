package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group is a group conversation document. Group administration (invites,
// renames, member removal) lives outside the messaging core; fanout only
// needs the member list.
type Group struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name      string               `json:"name" bson:"name"`
	Members   []primitive.ObjectID `json:"members" bson:"members"`
	CreatedBy primitive.ObjectID   `json:"createdBy" bson:"created_by"`
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
}

// HasMember reports whether id is a member of the group.
func (g *Group) HasMember(id primitive.ObjectID) bool {
	for _, m := range g.Members {
		if m == id {
			return true
		}
	}
	return false
}
