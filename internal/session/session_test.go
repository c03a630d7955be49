package session

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/utils"
)

func TestFromClaims(t *testing.T) {
	utils.SetJWTSecret("session-test-secret")
	userID := uuid.New()

	token, claims, err := utils.GenerateJWT(userID, "alice", string(models.UserTypeSeller), 1)
	require.NoError(t, err)

	parsed, err := utils.ValidateJWT(token)
	require.NoError(t, err)

	s, err := FromClaims(parsed)
	require.NoError(t, err)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, claims.ID, s.TokenID)
	assert.True(t, s.IsSeller())
	assert.True(t, s.HasRole(models.UserTypeBuyer, models.UserTypeSeller))
	assert.False(t, s.HasRole(models.UserTypeBuyer))
}

func TestFromClaimsRejectsBadSubject(t *testing.T) {
	_, err := FromClaims(&utils.JWTClaims{UserID: "not-a-uuid"})
	assert.Error(t, err)
}

func TestAttachAndCurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Nil(t, Current(c))
	assert.Nil(t, FromContext(c.Request.Context()))

	s := &Session{UserID: uuid.New(), UserType: models.UserTypeBuyer}
	Attach(c, s)

	assert.Same(t, s, Current(c))
	assert.Same(t, s, FromContext(c.Request.Context()))
	assert.False(t, Current(c).IsSeller())

	var anonymous *Session
	assert.False(t, anonymous.IsSeller())
}
