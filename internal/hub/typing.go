package hub

import (
	"encoding/json"

	"github.com/Arin958/ChattingApp/internal/event"
	"github.com/Arin958/ChattingApp/internal/model"

	"go.uber.org/zap"
)

// Typing signals are pure forwarding: no persistence, no queuing, no
// delivery guarantee. An offline target is silently dropped; there is
// nothing to show. The receiving client arms its own expiry timer, so a
// lost stopTyping never strands an indicator.

func (h *Hub) relayTyping(name string, payload json.RawMessage, c *Client) {
	var sig model.TypingPayload
	if err := json.Unmarshal(payload, &sig); err != nil || sig.To == "" {
		h.sendError(c, "invalid_payload", "typing signals require a target user")
		return
	}

	target := h.presence.Lookup(sig.To)
	if target == nil {
		return
	}

	ev, err := event.Wrap(name, model.TypingPayload{From: c.userID})
	if err != nil {
		h.logger.Error("failed to encode typing event", zap.Error(err))
		return
	}
	target.SafeSend(ev, sendTimeout)
}

// relayGroupTyping forwards a typing signal to every member currently
// viewing the group, except the typist.
func (h *Hub) relayGroupTyping(payload json.RawMessage, c *Client) {
	var sig model.TypingPayload
	if err := json.Unmarshal(payload, &sig); err != nil || sig.GroupID == "" {
		h.sendError(c, "invalid_payload", "groupTyping requires a groupId")
		return
	}

	ev, err := event.Wrap(event.EventGroupTyping, model.TypingPayload{
		From:    c.userID,
		GroupID: sig.GroupID,
	})
	if err != nil {
		h.logger.Error("failed to encode groupTyping event", zap.Error(err))
		return
	}

	for _, userID := range h.roomMembers(sig.GroupID) {
		if userID == c.userID {
			continue
		}
		if conn := h.presence.Lookup(userID); conn != nil {
			conn.SafeSend(ev, sendTimeout)
		}
	}
}
