package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arin958/ChattingApp/internal/db"
	"github.com/Arin958/ChattingApp/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var (
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	ErrInvalidMessage     = errors.New("invalid message: message cannot be nil")
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotSender          = errors.New("only the sender may perform this action")
	ErrNotReceiver        = errors.New("only the receiver may mark a message seen")
	ErrOperationTimeout   = errors.New("operation timeout exceeded")
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadTimeout  = 30 * time.Second

	maxRetries     = 3
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 2 * time.Second

	// DefaultPageLimit bounds a conversation page when the caller does
	// not ask for a specific size.
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type messageRepository struct {
	mongoRepo *db.Repository[model.Message]
	logger    *zap.Logger
}

// ConversationPage is one page of a conversation, oldest-first. HasMore
// is a heuristic (page was full), good enough to gate "load older" UI.
type ConversationPage struct {
	Messages []model.Message `json:"messages"`
	HasMore  bool            `json:"hasMore"`
}

type MessageRepository interface {
	InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error)
	GetConversationPage(ctx context.Context, viewer, peer primitive.ObjectID, before *time.Time, limit int64) (*ConversationPage, error)
	GetGroupPage(ctx context.Context, group primitive.ObjectID, before *time.Time, limit int64) (*ConversationPage, error)
	EditContent(ctx context.Context, messageID, byUser primitive.ObjectID, newContent string) (*model.Message, error)
	MarkDeleted(ctx context.Context, messageID, byUser primitive.ObjectID) (*model.Message, error)
	MarkSeen(ctx context.Context, messageID, receiver primitive.ObjectID) (*model.Message, error)
	MarkSeenBulk(ctx context.Context, receiver, sender primitive.ObjectID) (int64, time.Time, error)
}

func NewMessageRepository(repo *db.Repository[model.Message], logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

// -----------------------------------------------------------------------------
// InsertMessage
// -----------------------------------------------------------------------------

func (m *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := m.validateMessage(msg); err != nil {
		return nil, err
	}

	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		_, err := m.mongoRepo.Create(ctx, *msg)
		if err == nil {
			m.logger.Info("message inserted",
				zap.String("message_id", msg.ID.Hex()),
				zap.String("sender", msg.Sender.Hex()),
				zap.Int("attempt", attempt+1),
			)
			return msg, nil
		}

		lastErr = err
		if !m.isRetryableError(err) {
			break
		}

		m.logger.Warn("insert attempt failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxRetries),
		)
	}

	m.logger.Error("failed to insert message after all retries",
		zap.Error(lastErr),
		zap.String("sender", msg.Sender.Hex()),
	)

	return nil, fmt.Errorf("insert message failed: %w", lastErr)
}

// -----------------------------------------------------------------------------
// Conversation pages
// -----------------------------------------------------------------------------

// GetConversationPage returns up to limit direct messages between viewer
// and peer strictly older than before, oldest-first. The query runs
// newest-first so the page always holds the most recent messages under
// the cursor.
func (m *messageRepository) GetConversationPage(ctx context.Context, viewer, peer primitive.ObjectID, before *time.Time, limit int64) (*ConversationPage, error) {
	filter := db.NewFilter().Or(
		bson.M{"sender": viewer, "receiver": peer},
		bson.M{"sender": peer, "receiver": viewer},
	)
	return m.fetchPage(ctx, filter, before, limit)
}

// GetGroupPage returns up to limit group messages strictly older than
// before, oldest-first.
func (m *messageRepository) GetGroupPage(ctx context.Context, group primitive.ObjectID, before *time.Time, limit int64) (*ConversationPage, error) {
	filter := db.NewFilter().Eq("group", group)
	return m.fetchPage(ctx, filter, before, limit)
}

func (m *messageRepository) fetchPage(ctx context.Context, filter *db.FilterBuilder, before *time.Time, limit int64) (*ConversationPage, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	limit = clampLimit(limit)
	if before != nil {
		filter.Lt("created_at", *before)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := m.waitForRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		messages, err := m.mongoRepo.FindPage(ctx, filter.Build(), "created_at", true, limit)
		if err == nil {
			hasMore := int64(len(messages)) == limit
			reverseInPlace(messages)
			m.logger.Debug("conversation page fetched",
				zap.Int("count", len(messages)),
				zap.Bool("has_more", hasMore),
			)
			return &ConversationPage{Messages: messages, HasMore: hasMore}, nil
		}

		lastErr = err
		if !m.isRetryableError(err) {
			break
		}
	}

	return nil, m.handleReadError(lastErr)
}

// clampLimit normalizes a requested page size.
func clampLimit(limit int64) int64 {
	if limit < 1 {
		return DefaultPageLimit
	}
	if limit > MaxPageLimit {
		return MaxPageLimit
	}
	return limit
}

// reverseInPlace flips a newest-first query result into the oldest-first
// order the consumer renders.
func reverseInPlace(msgs []model.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// -----------------------------------------------------------------------------
// Mutations: edit, delete, seen
// -----------------------------------------------------------------------------

// EditContent updates the content of a message. Only the sender may
// edit; a deleted message cannot be edited.
func (m *messageRepository) EditContent(ctx context.Context, messageID, byUser primitive.ObjectID, newContent string) (*model.Message, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	existing, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, m.mapLookupError(err, messageID)
	}
	if existing.Sender != byUser {
		return nil, ErrNotSender
	}
	if existing.Deleted {
		return nil, ErrMessageNotFound
	}

	updated, err := m.mongoRepo.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID, "deleted": false},
		bson.M{"content": newContent, "edited": true},
	)
	if err != nil {
		return nil, m.mapLookupError(err, messageID)
	}

	m.logger.Info("message edited", zap.String("message_id", messageID.Hex()))
	return updated, nil
}

// MarkDeleted soft-deletes a message for everyone: content becomes the
// tombstone placeholder, the media URL is cleared and the original body
// is no longer served. Only the sender may delete.
func (m *messageRepository) MarkDeleted(ctx context.Context, messageID, byUser primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	existing, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, m.mapLookupError(err, messageID)
	}
	if existing.Sender != byUser {
		return nil, ErrNotSender
	}
	if existing.Deleted {
		// Already a tombstone; deleting twice is a no-op.
		return existing, nil
	}

	tomb := existing.Tombstone(byUser, time.Now().UTC())
	updated, err := m.mongoRepo.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID},
		bson.M{
			"deleted":    tomb.Deleted,
			"deleted_by": tomb.DeletedBy,
			"deleted_at": tomb.DeletedAt,
			"content":    tomb.Content,
			"media_url":  tomb.MediaURL,
		},
	)
	if err != nil {
		return nil, m.mapLookupError(err, messageID)
	}

	m.logger.Info("message deleted",
		zap.String("message_id", messageID.Hex()),
		zap.String("deleted_by", byUser.Hex()),
	)
	return updated, nil
}

// MarkSeen transitions seen false -> true for a single message. Only the
// receiver may mark a direct message seen; the transition is monotonic
// and calling it again is a no-op, not an error.
func (m *messageRepository) MarkSeen(ctx context.Context, messageID, receiver primitive.ObjectID) (*model.Message, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	updated, err := m.mongoRepo.FindOneAndUpdate(ctx,
		bson.M{"_id": messageID, "receiver": receiver, "seen": false},
		bson.M{"seen": true, "seen_at": now},
	)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("mark seen failed: %w", err)
	}

	// No unseen match: distinguish "already seen" (idempotent no-op)
	// from "wrong receiver" and "absent".
	existing, err := m.mongoRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, m.mapLookupError(err, messageID)
	}
	if existing.Receiver == nil || *existing.Receiver != receiver {
		return nil, ErrNotReceiver
	}
	return existing, nil
}

// MarkSeenBulk marks every unseen message from sender to receiver as
// seen. This is the coarse fetch-side path; it never regresses an
// already-seen message.
func (m *messageRepository) MarkSeenBulk(ctx context.Context, receiver, sender primitive.ObjectID) (int64, time.Time, error) {
	ctx, cancel := m.ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := time.Now().UTC()
	result, err := m.mongoRepo.UpdateMany(ctx,
		bson.M{"sender": sender, "receiver": receiver, "seen": false},
		bson.M{"seen": true, "seen_at": now},
	)
	if err != nil {
		return 0, now, fmt.Errorf("bulk mark seen failed: %w", err)
	}

	if result.ModifiedCount > 0 {
		m.logger.Debug("messages marked seen in bulk",
			zap.Int64("count", result.ModifiedCount),
			zap.String("receiver", receiver.Hex()),
		)
	}
	return result.ModifiedCount, now, nil
}

// -----------------------------------------------------------------------------
// Private helpers
// -----------------------------------------------------------------------------

func (m *messageRepository) validateMessage(msg *model.Message) error {
	if msg == nil {
		return ErrInvalidMessage
	}
	if (msg.Receiver == nil) == (msg.Group == nil) {
		return fmt.Errorf("%w: exactly one of receiver/group must be set", ErrInvalidMessage)
	}
	return nil
}

func (m *messageRepository) mapLookupError(err error, messageID primitive.ObjectID) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrMessageNotFound
	}
	m.logger.Error("message lookup failed",
		zap.Error(err),
		zap.String("message_id", messageID.Hex()),
	)
	return fmt.Errorf("message lookup failed: %w", err)
}

func (m *messageRepository) ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hadDeadline := ctx.Deadline(); hadDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (m *messageRepository) waitForRetry(ctx context.Context, attempt int) error {
	delay := time.Duration(1<<uint(attempt)) * baseRetryDelay
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (m *messageRepository) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return true
	}
	return false
}

func (m *messageRepository) handleReadError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout")
		return ErrOperationTimeout
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	m.logger.Error("read failed", zap.Error(err))
	return fmt.Errorf("fetch conversation page failed: %w", err)
}
