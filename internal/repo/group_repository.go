package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Arin958/ChattingApp/internal/db"
	"github.com/Arin958/ChattingApp/internal/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrGroupNotFound = errors.New("group not found")

type GroupRepository interface {
	GetGroup(ctx context.Context, id primitive.ObjectID) (*model.Group, error)
}

type groupRepository struct {
	mongoRepo *db.Repository[model.Group]
	logger    *zap.Logger
}

func NewGroupRepository(repo *db.Repository[model.Group], logger *zap.Logger) GroupRepository {
	return &groupRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *groupRepository) GetGroup(ctx context.Context, id primitive.ObjectID) (*model.Group, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	group, err := r.mongoRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrGroupNotFound
		}
		r.logger.Error("failed to fetch group", zap.Error(err), zap.String("group_id", id.Hex()))
		return nil, fmt.Errorf("get group failed: %w", err)
	}
	return group, nil
}
