package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, userID, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyToken(t *testing.T) {
	userID, err := VerifyToken(signToken(t, "u1", testSecret), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestVerifyTokenRejections(t *testing.T) {
	_, err := VerifyToken("", testSecret)
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = VerifyToken("garbage", testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyToken(signToken(t, "u1", "wrong-secret"), testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = VerifyToken(signToken(t, "", testSecret), testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = VerifyToken(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenFromRequestSources(t *testing.T) {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))

	r, _ = http.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", TokenFromRequest(r))

	// Query parameter for websocket handshakes.
	r, _ = http.NewRequest(http.MethodGet, "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", TokenFromRequest(r))

	r, _ = http.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(r))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/me", Middleware(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})

	w := httptest.NewRecorder()
	r, _ := http.NewRequest(http.MethodGet, "/me", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, "u1", testSecret))
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", w.Body.String())

	w = httptest.NewRecorder()
	r, _ = http.NewRequest(http.MethodGet, "/me", nil)
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}
