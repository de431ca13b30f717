package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ContextUserKey is where middleware stores the authenticated user id.
const ContextUserKey = "userId"

var (
	ErrMissingToken = errors.New("authentication token missing")
	ErrInvalidToken = errors.New("authentication token invalid")
)

// Claims carries the identity the rest of the system trusts. Token
// issuance lives in the auth service; this package only verifies.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// VerifyToken parses and validates a token, returning the user id.
func VerifyToken(tokenString, secret string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// TokenFromRequest extracts the token from the Authorization header, the
// token cookie, or the token query parameter (websocket handshakes
// cannot always set headers).
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// Middleware authenticates every request and injects the user id into
// the gin context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := VerifyToken(TokenFromRequest(c.Request), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "UNAUTHORIZED",
				"message": "Authentication required",
			})
			return
		}
		c.Set(ContextUserKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user id injected by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
