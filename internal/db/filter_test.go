package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFilterBuilderChaining(t *testing.T) {
	id := primitive.NewObjectID()
	cutoff := time.Now()

	filter := NewFilter().
		Eq("sender", id).
		Ne("deleted", true).
		Lt("created_at", cutoff).
		Build()

	assert.Equal(t, bson.M{
		"sender":     id,
		"deleted":    bson.M{"$ne": true},
		"created_at": bson.M{"$lt": cutoff},
	}, filter)
}

func TestFilterBuilderOr(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	filter := NewFilter().Or(
		bson.M{"sender": a, "receiver": b},
		bson.M{"sender": b, "receiver": a},
	).Build()

	clauses, ok := filter["$or"].([]bson.M)
	assert.True(t, ok)
	assert.Len(t, clauses, 2)

	// Or with no clauses must not emit an invalid empty $or.
	assert.Equal(t, bson.M{}, NewFilter().Or().Build())
}

func TestFilterBuilderIn(t *testing.T) {
	ids := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}
	filter := NewFilter().In("_id", ids).Build()
	assert.Equal(t, bson.M{"_id": bson.M{"$in": ids}}, filter)
}

func TestEmptyMatchesAll(t *testing.T) {
	assert.Equal(t, bson.M{}, Empty())
}
