package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/Arin958/ChattingApp/internal/db"
	"github.com/Arin958/ChattingApp/internal/handler"
	"github.com/Arin958/ChattingApp/internal/hub"
	"github.com/Arin958/ChattingApp/internal/model"
	"github.com/Arin958/ChattingApp/internal/repo"
	"github.com/Arin958/ChattingApp/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Container is the composition root. Every dependency, the presence
// registry included, is constructed here and injected downward; nothing
// in the tree reaches for package globals.
type Container struct {
	ChatHandler    handler.ChatHandler
	UserHandler    handler.UserHandler
	MonitorHandler *handler.MonitorHandler
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoDatabase *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	userRepo := repo.NewUserRepository(
		db.NewRepository[model.User](con, config.Mongo.UsersCollection), logger)
	groupRepo := repo.NewGroupRepository(
		db.NewRepository[model.Group](con, config.Mongo.GroupsCollection), logger)

	presence := hub.NewPresence()
	h := hub.NewHub(presence, userRepo, logger)
	notifier := hub.NewNotifier(presence, groupRepo, logger)

	uploader := service.NewHTTPUploader(config.Media.UploadEndpoint)
	chatService := service.NewChatService(messageRepo, userRepo, groupRepo, notifier, uploader, logger)
	h.BindSeenMarker(chatService)

	return &Container{
		ChatHandler:    handler.NewChatHandler(chatService),
		UserHandler:    handler.NewUserHandler(userRepo),
		MonitorHandler: handler.NewMonitorHandler(hub.NewMonitorService(h)),
		Hub:            h,
		Config:         *config,
		Logger:         logger,
		mongoDatabase:  con,
	}, nil
}

// Close gracefully shuts down all connections.
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.mongoDatabase != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDatabase.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
