// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/cache"
	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
	"github.com/javajoker/botscript-backend/internal/utils"
)

type AuthService struct {
	store repository.Store
	cache cache.Cache
	cfg   *config.Config
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email           string          `json:"email" validate:"required,email"`
	Password        string          `json:"password" validate:"required,min=8"`
	ConfirmPassword string          `json:"confirm_password" validate:"required,eqfield=Password"`
	Username        string          `json:"username" validate:"required,username"`
	FullName        string          `json:"full_name,omitempty" validate:"omitempty,max=255"`
	UserType        models.UserType `json:"user_type" validate:"required,oneof=buyer seller"`
	AcceptTerms     bool            `json:"accept_terms"`
}

type AuthResponse struct {
	User        *models.User    `json:"user"`
	Profile     *models.Profile `json:"profile"`
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"` // in seconds
	ExpiresAt   time.Time       `json:"expires_at"`
}

// SessionView is the current-session lookup result.
type SessionView struct {
	User      *models.User    `json:"user"`
	Profile   *models.Profile `json:"profile"`
	ExpiresAt time.Time       `json:"expires_at"`
}

func NewAuthService(store repository.Store, c cache.Cache, cfg *config.Config) *AuthService {
	return &AuthService{
		store: store,
		cache: c,
		cfg:   cfg,
	}
}

func (s *AuthService) SignUp(ctx context.Context, req *SignUpRequest) (*AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	// All input checks happen before the store is touched
	verr := &ValidationError{}
	if err := validate(req); err != nil {
		errors.As(err, &verr)
	}
	if !req.AcceptTerms {
		verr.Fields = append(verr.Fields, utils.ValidationError{
			Field:   "accept_terms",
			Tag:     "required",
			Message: "You must accept the terms of use",
		})
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	// Check if user already exists
	if _, err := s.store.Users().GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrConflict)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	taken, err := s.store.Profiles().UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%w: username already taken", ErrConflict)
	}

	user := &models.User{Email: req.Email}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		UserType: req.UserType,
		Username: req.Username,
		FullName: req.FullName,
	}

	err = s.store.WithinTransaction(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		profile.ID = user.ID
		return tx.Profiles().Create(ctx, profile)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: account already exists", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"user_type": profile.UserType,
	}).Info("User signed up")

	return s.issue(user, profile)
}

func (s *AuthService) SignIn(ctx context.Context, req *SignInRequest) (*AuthResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.store.Profiles().GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	now := time.Now()
	if err := s.store.Users().TouchLastLogin(ctx, user.ID, now); err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to record last login")
	}
	user.LastLoginAt = &now

	return s.issue(user, profile)
}

// SignOut revokes the session's token until it would have expired.
func (s *AuthService) SignOut(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return ErrAuthenticationRequired
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.cache.Set(ctx, cache.RevokedTokenKey(sess.TokenID), "1", ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Resolve turns a bearer token into a session. Expired, malformed and revoked
// tokens all yield ErrAuthenticationRequired.
func (s *AuthService) Resolve(ctx context.Context, token string) (*session.Session, error) {
	claims, err := utils.ValidateJWT(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}

	sess, err := session.FromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}

	revoked, err := s.cache.Exists(ctx, cache.RevokedTokenKey(sess.TokenID))
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrAuthenticationRequired)
	}

	return sess, nil
}

func (s *AuthService) CurrentSession(ctx context.Context, sess *session.Session) (*SessionView, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	user, err := s.store.Users().GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAuthenticationRequired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	profile, err := s.store.Profiles().GetByID(ctx, sess.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	return &SessionView{User: user, Profile: profile, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *AuthService) issue(user *models.User, profile *models.Profile) (*AuthResponse, error) {
	token, claims, err := utils.GenerateJWT(
		user.ID,
		profile.Username,
		string(profile.UserType),
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		Profile:     profile,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}
