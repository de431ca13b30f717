package timeline

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"
)

func pushFrame(t *testing.T, name string, v any) event.WsEvent {
	t.Helper()
	ev, err := event.Wrap(name, v)
	require.NoError(t, err)
	return ev
}

func wirePayload(id, sender, content string, at time.Time) map[string]any {
	return map[string]any{
		"_id":       id,
		"sender":    sender,
		"content":   content,
		"type":      "text",
		"createdAt": at.Format(time.RFC3339Nano),
	}
}

func TestEngineFetchAndPushConverge(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	tok := e.OpenConversation("bob")

	at := time.Now().UTC().Truncate(time.Millisecond)
	fetched := []Entry{
		entryAt("m1", "bob", "hey", at),
		entryAt("m2", "alice", "hi", at.Add(time.Second)),
	}
	require.True(t, e.ApplyFetch(tok, fetched))

	// The push for m2 raced the fetch; merging it again changes nothing.
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventNewMessage,
		wirePayload("m2", "alice", "hi", at.Add(time.Second)))))

	entries := e.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "m1", entries[0].ID)
	assert.Equal(t, "m2", entries[1].ID)
}

func TestEngineStaleFetchDiscarded(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})

	tokBob := e.OpenConversation("bob")
	e.OpenConversation("carol")

	applied := e.ApplyFetch(tokBob, []Entry{entryAt("m1", "bob", "hey", time.Now())})
	assert.False(t, applied)
	assert.Empty(t, e.Entries())
}

func TestEngineOptimisticSendConfirmedByPush(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")

	e.SendOptimistic("local-1", "hello bob")
	echo := wirePayload("m9", "alice", "hello bob", time.Now())
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventNewMessage, echo)))

	entries := e.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "m9", entries[0].ID)

	// The HTTP confirmation arrives last and is dropped.
	e.ConfirmSend(entryAt("m9", "alice", "hello bob", time.Now()))
	assert.Equal(t, 1, len(e.Entries()))
}

func TestEngineNewMessageClearsPeerTyping(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")

	require.NoError(t, e.HandlePush(pushFrame(t, event.EventTyping,
		model.TypingPayload{From: "bob"})))
	require.True(t, e.Typing.IsTyping("bob"))

	require.NoError(t, e.HandlePush(pushFrame(t, event.EventNewMessage,
		wirePayload("m1", "bob", "sent it", time.Now()))))
	assert.False(t, e.Typing.IsTyping("bob"))
}

func TestEngineAutoScrollOnlyWhenAtBottom(t *testing.T) {
	var scrolls atomic.Int32
	e := NewEngine(Config{
		ViewerID:     "alice",
		OnAutoScroll: func() { scrolls.Add(1) },
	})
	e.OpenConversation("bob")

	// Reading history: no forced scroll.
	e.Scroll.Update(0, 1200, 600)
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventNewMessage,
		wirePayload("m1", "bob", "one", time.Now()))))
	assert.Equal(t, int32(0), scrolls.Load())

	// Back at the bottom: the next message may scroll.
	e.Scroll.Update(600, 1200, 600)
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventNewMessage,
		wirePayload("m2", "bob", "two", time.Now()))))
	assert.Equal(t, int32(1), scrolls.Load())
}

func TestEngineEditAndDeletePush(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")
	e.ConfirmSend(entryAt("m1", "alice", "typo", time.Now()))

	require.NoError(t, e.HandlePush(pushFrame(t, event.EventMessageEdited,
		model.MessageEditedPayload{MessageID: "m1", NewContent: "fixed"})))
	assert.Equal(t, "fixed", e.Entries()[0].Content)
	assert.True(t, e.Entries()[0].Edited)

	require.NoError(t, e.HandlePush(pushFrame(t, event.EventMessageDeleted,
		model.MessageDeletedPayload{MessageID: "m1", DeletedBy: "alice", DeletedAt: time.Now()})))
	entry := e.Entries()[0]
	assert.True(t, entry.Deleted)
	assert.Equal(t, model.DeletedPlaceholder, entry.Content)
}

func TestEngineSeenPushFineAndCoarse(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")

	at := time.Now()
	e.ConfirmSend(entryAt("m1", "alice", "one", at))
	e.ConfirmSend(entryAt("m2", "alice", "two", at.Add(time.Second)))
	e.ConfirmSend(entryAt("m3", "bob", "theirs", at.Add(2*time.Second)))

	seenAt := time.Now()
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventMessagesSeen,
		model.MessagesSeenPayload{MessageID: "m1", ReceiverID: "bob", SeenAt: &seenAt})))

	entries := e.Entries()
	assert.True(t, entries[0].Seen)
	assert.False(t, entries[1].Seen)

	// Coarse receipt, no message id: every remaining sent message flips.
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventMessagesSeen,
		model.MessagesSeenPayload{ReceiverID: "bob", SeenAt: &seenAt})))

	entries = e.Entries()
	assert.True(t, entries[1].Seen)
	assert.False(t, entries[2].Seen, "peer's own message must not flip")
}

func TestEngineIgnoresUnknownAndSelfTypingFrames(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")

	require.NoError(t, e.HandlePush(event.WsEvent{Event: "something-new"}))
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventTyping,
		model.TypingPayload{From: "alice"})))
	assert.False(t, e.Typing.IsTyping("alice"))
}

func TestEngineOpenConversationResetsState(t *testing.T) {
	e := NewEngine(Config{ViewerID: "alice"})
	e.OpenConversation("bob")

	e.ConfirmSend(entryAt("m1", "bob", "hey", time.Now()))
	require.NoError(t, e.HandlePush(pushFrame(t, event.EventTyping,
		model.TypingPayload{From: "bob"})))

	e.OpenConversation("carol")
	assert.Empty(t, e.Entries())
	assert.False(t, e.Typing.IsTyping("bob"))
}
