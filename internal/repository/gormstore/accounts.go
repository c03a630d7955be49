package gormstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/botscript-backend/internal/models"
)

type userRepo struct{ db *gorm.DB }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	return create(ctx, r.db, user)
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return affected(r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at))
}

type profileRepo struct{ db *gorm.DB }

func (r profileRepo) Create(ctx context.Context, profile *models.Profile) error {
	return create(ctx, r.db, profile)
}

func (r profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r profileRepo) Update(ctx context.Context, profile *models.Profile) error {
	result := r.db.WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", profile.ID).
		Select("username", "full_name", "avatar_url", "bio").
		Updates(profile)
	return affected(result)
}

func (r profileRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("username = ?", username).Count(&count).Error
	return count > 0, translate(err)
}

type auditRepo struct{ db *gorm.DB }

func (r auditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	return create(ctx, r.db, entry)
}
