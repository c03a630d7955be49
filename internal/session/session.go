// Package session carries the authenticated identity of one request.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/utils"
)

const ginKey = "session"

type ctxKey struct{}

// Session is resolved once per request from the bearer token and is never
// shared between requests.
type Session struct {
	UserID    uuid.UUID       `json:"user_id"`
	Username  string          `json:"username"`
	UserType  models.UserType `json:"user_type"`
	TokenID   string          `json:"-"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func (s *Session) IsSeller() bool {
	return s != nil && s.UserType == models.UserTypeSeller
}

// HasRole reports whether the session belongs to one of roles.
func (s *Session) HasRole(roles ...models.UserType) bool {
	if s == nil {
		return false
	}
	for _, role := range roles {
		if s.UserType == role {
			return true
		}
	}
	return false
}

// FromClaims builds a session from validated token claims.
func FromClaims(claims *utils.JWTClaims) (*Session, error) {
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.New("invalid subject in token")
	}
	s := &Session{
		UserID:   userID,
		Username: claims.Username,
		UserType: models.UserType(claims.UserType),
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Attach stores s on the gin context and on the request context.
func Attach(c *gin.Context, s *Session) {
	c.Set(ginKey, s)
	c.Request = c.Request.WithContext(NewContext(c.Request.Context(), s))
}

// Current returns the request's session, or nil when anonymous.
func Current(c *gin.Context) *Session {
	if value, exists := c.Get(ginKey); exists {
		if s, ok := value.(*Session); ok {
			return s
		}
	}
	return nil
}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
