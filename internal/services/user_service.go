// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
)

type UserService struct {
	store repository.Store
}

type UpdateUserProfileRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,username"`
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
}

// PublicProfile is what anyone may see about a user: the profile and, for
// sellers, their published products.
type PublicProfile struct {
	Profile  *models.Profile  `json:"profile"`
	Products []models.Product `json:"products"`
}

func NewUserService(store repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetPublicProfile(ctx context.Context, userID uuid.UUID) (*PublicProfile, error) {
	profile, err := s.store.Profiles().GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	public := &PublicProfile{Profile: profile, Products: []models.Product{}}
	if !profile.IsSeller() {
		return public, nil
	}

	products, err := s.store.Products().ListBySeller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	for _, p := range products {
		if p.IsPublished() {
			public.Products = append(public.Products, p)
		}
	}
	return public, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, sess *session.Session, req *UpdateUserProfileRequest) (*models.Profile, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	profile, err := s.store.Profiles().GetByID(ctx, sess.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	// Check username uniqueness if updating
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username != profile.Username {
			taken, err := s.store.Profiles().UsernameTaken(ctx, username)
			if err != nil {
				return nil, fmt.Errorf("failed to look up username: %w", err)
			}
			if taken {
				return nil, fmt.Errorf("%w: username already taken", ErrConflict)
			}
			profile.Username = username
		}
	}

	if req.FullName != nil {
		profile.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		profile.Bio = strings.TrimSpace(*req.Bio)
	}

	err = s.store.Profiles().Update(ctx, profile)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: username already taken", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return profile, nil
}
