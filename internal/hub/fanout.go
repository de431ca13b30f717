package hub

import (
	"context"
	"time"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"
	"github.com/Arin958/ChattingApp/internal/repo"

	"go.uber.org/zap"
)

// Notifier fans a message mutation out to every reachable participant.
// Delivery is best-effort by design: durability lives in the message
// store, so an offline recipient is a silent no-op (they reconcile on
// their next fetch) and a failed enqueue is logged, never retried and
// never surfaced to the sender. No ordering is guaranteed across
// recipients; the client re-sorts by createdAt.
type Notifier struct {
	presence *Presence
	groups   repo.GroupRepository
	logger   *zap.Logger
}

func NewNotifier(presence *Presence, groups repo.GroupRepository, logger *zap.Logger) *Notifier {
	return &Notifier{
		presence: presence,
		groups:   groups,
		logger:   logger,
	}
}

// NotifyNewMessage pushes a freshly persisted message. Direct messages
// go to the receiver and echo back to the sender's own connection so an
// optimistic local entry can be reconciled against the authoritative
// record. Group messages go to every member except the actor.
func (n *Notifier) NotifyNewMessage(ctx context.Context, msg *model.Message) {
	ev, err := event.Wrap(event.EventNewMessage, msg)
	if err != nil {
		n.logger.Error("failed to encode newMessage event", zap.Error(err))
		return
	}

	for _, userID := range n.recipients(ctx, msg, true) {
		n.sendToUser(userID, ev)
	}
}

// NotifyEdited pushes an edit to every participant except the editor.
func (n *Notifier) NotifyEdited(ctx context.Context, msg *model.Message) {
	ev, err := event.Wrap(event.EventMessageEdited, model.MessageEditedPayload{
		MessageID:  msg.ID.Hex(),
		NewContent: msg.Content,
	})
	if err != nil {
		n.logger.Error("failed to encode messageEdited event", zap.Error(err))
		return
	}

	for _, userID := range n.recipients(ctx, msg, false) {
		n.sendToUser(userID, ev)
	}
}

// NotifyDeleted pushes a tombstone to every participant, the deleter
// included, so both timelines converge on the placeholder.
func (n *Notifier) NotifyDeleted(ctx context.Context, msg *model.Message) {
	deletedBy := ""
	if msg.DeletedBy != nil {
		deletedBy = msg.DeletedBy.Hex()
	}
	deletedAt := time.Now().UTC()
	if msg.DeletedAt != nil {
		deletedAt = *msg.DeletedAt
	}

	ev, err := event.Wrap(event.EventMessageDeleted, model.MessageDeletedPayload{
		MessageID: msg.ID.Hex(),
		DeletedBy: deletedBy,
		DeletedAt: deletedAt,
		Content:   model.DeletedPlaceholder,
	})
	if err != nil {
		n.logger.Error("failed to encode messageDeleted event", zap.Error(err))
		return
	}

	for _, userID := range n.recipients(ctx, msg, true) {
		n.sendToUser(userID, ev)
	}
}

// NotifySeen tells a sender one of their messages was seen.
func (n *Notifier) NotifySeen(senderID string, payload model.MessagesSeenPayload) {
	ev, err := event.Wrap(event.EventMessagesSeen, payload)
	if err != nil {
		n.logger.Error("failed to encode messagesSeen event", zap.Error(err))
		return
	}
	n.sendToUser(senderID, ev)
}

// recipients resolves the delivery set for a message. includeActor keeps
// the sender (or deleter) in the set for direct messages; group fanout
// always excludes the actor.
func (n *Notifier) recipients(ctx context.Context, msg *model.Message, includeActor bool) []string {
	if msg.IsDirect() {
		ids := []string{msg.Receiver.Hex()}
		if includeActor {
			ids = append(ids, msg.Sender.Hex())
		}
		return ids
	}

	if msg.Group == nil {
		// The store enforces exactly-one-of receiver/group; a message
		// violating that must not take the fanout down with it.
		n.logger.Error("message has neither receiver nor group, dropping fanout",
			zap.String("message_id", msg.ID.Hex()))
		return nil
	}

	group, err := n.groups.GetGroup(ctx, *msg.Group)
	if err != nil {
		n.logger.Error("failed to resolve group recipients",
			zap.Error(err),
			zap.String("group_id", msg.Group.Hex()),
		)
		return nil
	}

	ids := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		if member == msg.Sender {
			continue
		}
		ids = append(ids, member.Hex())
	}
	return ids
}

// sendToUser pushes one event to one user if they are reachable. An
// offline user is expected and silently absorbed; a full or closed
// connection is logged and dropped.
func (n *Notifier) sendToUser(userID string, ev event.WsEvent) {
	conn := n.presence.Lookup(userID)
	if conn == nil {
		return
	}
	if !conn.SafeSend(ev, sendTimeout) {
		n.logger.Warn("dropping event for unresponsive client",
			zap.String("user_id", userID),
			zap.String("event", ev.Event),
		)
	}
}
