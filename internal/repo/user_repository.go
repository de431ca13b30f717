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

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	SetOnline(ctx context.Context, id primitive.ObjectID) error
	SetOffline(ctx context.Context, id primitive.ObjectID, lastSeen time.Time) error
	OnlineUserIDs(ctx context.Context) ([]string, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user failed: %w", err)
	}
	return user, nil
}

// SetOnline flips the durable presence status to online and clears
// lastSeen. Best-effort: callers log the error and carry on, the
// in-memory registry stays authoritative for delivery.
func (r *userRepository) SetOnline(ctx context.Context, id primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.mongoRepo.UpdateByID(ctx, id, bson.M{
		"status":    model.StatusOnline,
		"last_seen": nil,
	})
	if err != nil {
		return fmt.Errorf("set online failed: %w", err)
	}
	return nil
}

// SetOffline flips the durable presence status to offline and records
// lastSeen. Best-effort, like SetOnline.
func (r *userRepository) SetOffline(ctx context.Context, id primitive.ObjectID, lastSeen time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := r.mongoRepo.UpdateByID(ctx, id, bson.M{
		"status":    model.StatusOffline,
		"last_seen": lastSeen,
	})
	if err != nil {
		return fmt.Errorf("set offline failed: %w", err)
	}
	return nil
}

// OnlineUserIDs returns the ids persisted as online. Backs the REST
// online-users endpoint; the push channel answers from the in-memory
// registry instead.
func (r *userRepository) OnlineUserIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	users, err := r.mongoRepo.FindAll(ctx, bson.M{"status": model.StatusOnline})
	if err != nil {
		r.logger.Error("failed to list online users", zap.Error(err))
		return nil, fmt.Errorf("list online users failed: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID.Hex())
	}
	return ids, nil
}
