package configuration

import (
	"encoding/json"
	"os"

	"github.com/joho/godotenv"
)

type MongoConfig struct {
	Uri                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messagesCollection"`
	UsersCollection    string `json:"usersCollection"`
	GroupsCollection   string `json:"groupsCollection"`
}

type ServerConfig struct {
	AppPort     int    `json:"app_port"`
	SocketPort  int    `json:"socket_port"`
	SocketRoute string `json:"socket_route"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwt_secret"`
}

type MediaConfig struct {
	UploadEndpoint string `json:"upload_endpoint"`
}

type Config struct {
	Mongo  MongoConfig  `json:"mongo"`
	Server ServerConfig `json:"server"`
	Auth   AuthConfig   `json:"auth"`
	Media  MediaConfig  `json:"media"`
}

// LoadConfig reads the JSON config file. Secrets and the database URI
// can be overridden from the environment (a .env file is honored when
// present) so config files never need to carry credentials.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	err = json.Unmarshal(file, &config)
	if err != nil {
		return nil, err
	}

	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.Uri = uri
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JwtSecret = secret
	}
	if endpoint := os.Getenv("MEDIA_UPLOAD_ENDPOINT"); endpoint != "" {
		config.Media.UploadEndpoint = endpoint
	}

	return &config, nil
}
