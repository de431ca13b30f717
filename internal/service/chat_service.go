package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Arin958/ChattingApp/internal/hub"
	"github.com/Arin958/ChattingApp/internal/model"
	"github.com/Arin958/ChattingApp/internal/repo"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxMediaSize = 10 * 1024 * 1024 // 10MB

var allowedMediaTypes = map[string]string{
	"image/jpeg": model.TypeImage,
	"image/png":  model.TypeImage,
	"image/gif":  model.TypeImage,
	"video/mp4":  model.TypeVideo,
}

// MediaInput is an attached file as received from the transport layer.
type MediaInput struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// SendInput is one send-message request. Exactly one of ReceiverID and
// GroupID must be set.
type SendInput struct {
	SenderID   string
	ReceiverID string
	GroupID    string
	Content    string
	Media      *MediaInput
}

// ChatService orchestrates the messaging core: validate, persist, then
// fan out. Persistence failures fail the whole request; fanout never
// does, because the store is the authoritative success signal.
type ChatService interface {
	Send(ctx context.Context, in SendInput) (*model.Message, error)
	GetConversation(ctx context.Context, viewerID, peerID string, before *time.Time, limit int64) (*repo.ConversationPage, error)
	GetGroupConversation(ctx context.Context, viewerID, groupID string, before *time.Time, limit int64) (*repo.ConversationPage, error)
	Edit(ctx context.Context, messageID, byUserID, newContent string) (*model.Message, error)
	Delete(ctx context.Context, messageID, byUserID string) (*model.Message, error)
	MarkSeen(ctx context.Context, messageID, viewerID string) (*model.Message, error)
	MarkSeenFromPeer(ctx context.Context, receiverID, senderID string) error
}

type chatService struct {
	messages repo.MessageRepository
	users    repo.UserRepository
	groups   repo.GroupRepository
	notifier *hub.Notifier
	uploader Uploader
	logger   *zap.Logger
}

func NewChatService(
	messages repo.MessageRepository,
	users repo.UserRepository,
	groups repo.GroupRepository,
	notifier *hub.Notifier,
	uploader Uploader,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		messages: messages,
		users:    users,
		groups:   groups,
		notifier: notifier,
		uploader: uploader,
		logger:   logger,
	}
}

// -----------------------------------------------------------------------------
// Send
// -----------------------------------------------------------------------------

func (s *chatService) Send(ctx context.Context, in SendInput) (*model.Message, error) {
	sender, err := parseID(in.SenderID, "sender")
	if err != nil {
		return nil, err
	}

	if (in.ReceiverID == "") == (in.GroupID == "") {
		return nil, invalid("receiver", "exactly one of receiver and group is required")
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && in.Media == nil {
		return nil, invalid("content", "message content cannot be empty when no file is attached")
	}
	if len(content) > model.MaxContentLength {
		return nil, invalid("content", fmt.Sprintf("message content cannot exceed %d characters", model.MaxContentLength))
	}

	msg := &model.Message{
		Sender:  sender,
		Content: content,
		Type:    model.TypeText,
	}

	if in.ReceiverID != "" {
		receiver, err := parseID(in.ReceiverID, "receiver")
		if err != nil {
			return nil, err
		}
		if _, err := s.users.GetUser(ctx, receiver); err != nil {
			return nil, err
		}
		msg.Receiver = &receiver
	} else {
		groupID, err := parseID(in.GroupID, "group")
		if err != nil {
			return nil, err
		}
		group, err := s.groups.GetGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(sender) {
			return nil, repo.ErrNotSender
		}
		msg.Group = &groupID
	}

	if in.Media != nil {
		if err := s.attachMedia(ctx, msg, in.Media); err != nil {
			return nil, err
		}
	}

	inserted, err := s.messages.InsertMessage(ctx, msg)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyNewMessage(ctx, inserted)
	return inserted, nil
}

// attachMedia hands the payload to the upload collaborator and records
// the returned URL and type on the message. Only the URL is ever
// stored, never bytes.
func (s *chatService) attachMedia(ctx context.Context, msg *model.Message, media *MediaInput) error {
	if media.Size > maxMediaSize {
		return invalid("file", "file size cannot exceed 10MB")
	}
	mediaType, ok := allowedMediaTypes[media.ContentType]
	if !ok {
		return invalid("file", "only JPEG, PNG, GIF images and MP4 videos are allowed")
	}

	result, err := s.uploader.Upload(ctx, media.Filename, media.ContentType, media.Data)
	if err != nil {
		return fmt.Errorf("media upload: %w", err)
	}

	msg.MediaURL = &result.URL
	msg.Type = mediaType
	if result.ResourceType != "" {
		if t, ok := allowedMediaTypes[result.ResourceType]; ok {
			msg.Type = t
		} else if result.ResourceType == model.TypeImage || result.ResourceType == model.TypeVideo {
			msg.Type = result.ResourceType
		}
	}

	if msg.Content == "" {
		if msg.Type == model.TypeImage {
			msg.Content = "📷 Photo"
		} else {
			msg.Content = "🎥 Video"
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Reads with the coarse seen side effect
// -----------------------------------------------------------------------------

// GetConversation returns a page of the direct conversation, oldest
// first, and as a side effect bulk-marks every unseen message from the
// peer as seen, notifying the peer. This is the coarse seen path; the
// fine-grained per-message path is MarkSeen.
func (s *chatService) GetConversation(ctx context.Context, viewerID, peerID string, before *time.Time, limit int64) (*repo.ConversationPage, error) {
	viewer, err := parseID(viewerID, "viewer")
	if err != nil {
		return nil, err
	}
	peer, err := parseID(peerID, "peer")
	if err != nil {
		return nil, err
	}

	page, err := s.messages.GetConversationPage(ctx, viewer, peer, before, limit)
	if err != nil {
		return nil, err
	}

	if err := s.MarkSeenFromPeer(ctx, viewerID, peerID); err != nil {
		// Seen bookkeeping must not fail the fetch.
		s.logger.Warn("fetch-side bulk seen failed",
			zap.Error(err), zap.String("viewer", viewerID))
	}

	return page, nil
}

func (s *chatService) GetGroupConversation(ctx context.Context, viewerID, groupID string, before *time.Time, limit int64) (*repo.ConversationPage, error) {
	viewer, err := parseID(viewerID, "viewer")
	if err != nil {
		return nil, err
	}
	gid, err := parseID(groupID, "group")
	if err != nil {
		return nil, err
	}

	group, err := s.groups.GetGroup(ctx, gid)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(viewer) {
		return nil, repo.ErrNotReceiver
	}

	return s.messages.GetGroupPage(ctx, gid, before, limit)
}

// MarkSeenFromPeer bulk-marks all unseen messages from sender to
// receiver. Idempotent; the peer is only notified when something
// actually flipped.
func (s *chatService) MarkSeenFromPeer(ctx context.Context, receiverID, senderID string) error {
	receiver, err := parseID(receiverID, "receiver")
	if err != nil {
		return err
	}
	sender, err := parseID(senderID, "sender")
	if err != nil {
		return err
	}

	modified, seenAt, err := s.messages.MarkSeenBulk(ctx, receiver, sender)
	if err != nil {
		return err
	}
	if modified > 0 {
		s.notifier.NotifySeen(senderID, model.MessagesSeenPayload{
			ReceiverID: receiverID,
			SeenAt:     &seenAt,
		})
	}
	return nil
}

// -----------------------------------------------------------------------------
// Mutations
// -----------------------------------------------------------------------------

func (s *chatService) Edit(ctx context.Context, messageID, byUserID, newContent string) (*model.Message, error) {
	id, err := parseID(messageID, "messageId")
	if err != nil {
		return nil, err
	}
	by, err := parseID(byUserID, "user")
	if err != nil {
		return nil, err
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, invalid("content", "edited content cannot be empty")
	}
	if len(newContent) > model.MaxContentLength {
		return nil, invalid("content", fmt.Sprintf("message content cannot exceed %d characters", model.MaxContentLength))
	}

	updated, err := s.messages.EditContent(ctx, id, by, newContent)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyEdited(ctx, updated)
	return updated, nil
}

func (s *chatService) Delete(ctx context.Context, messageID, byUserID string) (*model.Message, error) {
	id, err := parseID(messageID, "messageId")
	if err != nil {
		return nil, err
	}
	by, err := parseID(byUserID, "user")
	if err != nil {
		return nil, err
	}

	updated, err := s.messages.MarkDeleted(ctx, id, by)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyDeleted(ctx, updated)
	return updated, nil
}

func (s *chatService) MarkSeen(ctx context.Context, messageID, viewerID string) (*model.Message, error) {
	id, err := parseID(messageID, "messageId")
	if err != nil {
		return nil, err
	}
	viewer, err := parseID(viewerID, "user")
	if err != nil {
		return nil, err
	}

	updated, err := s.messages.MarkSeen(ctx, id, viewer)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifySeen(updated.Sender.Hex(), model.MessagesSeenPayload{
		MessageID:  updated.ID.Hex(),
		ReceiverID: viewerID,
		SeenAt:     updated.SeenAt,
	})
	return updated, nil
}

func parseID(hex, field string) (primitive.ObjectID, error) {
	if hex == "" {
		return primitive.NilObjectID, invalid(field, field+" is required")
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, invalid(field, "invalid id")
	}
	return id, nil
}
