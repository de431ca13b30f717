package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {
			"uri": "mongodb://localhost:27017",
			"database": "chat",
			"messagesCollection": "messages",
			"usersCollection": "users",
			"groupsCollection": "groups"
		},
		"server": {
			"app_port": 8080,
			"socket_port": 8081,
			"socket_route": "ws"
		},
		"auth": {"jwt_secret": "file-secret"},
		"media": {"upload_endpoint": "http://localhost:9000/upload"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.Uri)
	assert.Equal(t, "chat", cfg.Mongo.Database)
	assert.Equal(t, 8080, cfg.Server.AppPort)
	assert.Equal(t, 8081, cfg.Server.SocketPort)
	assert.Equal(t, "ws", cfg.Server.SocketRoute)
	assert.Equal(t, "file-secret", cfg.Auth.JwtSecret)
	assert.Equal(t, "http://localhost:9000/upload", cfg.Media.UploadEndpoint)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `{
		"mongo": {"uri": "mongodb://file:27017"},
		"auth": {"jwt_secret": "file-secret"},
		"media": {"upload_endpoint": "http://file/upload"}
	}`)

	t.Setenv("MONGO_URI", "mongodb://env:27017")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("MEDIA_UPLOAD_ENDPOINT", "http://env/upload")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mongodb://env:27017", cfg.Mongo.Uri)
	assert.Equal(t, "env-secret", cfg.Auth.JwtSecret)
	assert.Equal(t, "http://env/upload", cfg.Media.UploadEndpoint)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfigMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"mongo": `)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
