// Package gormstore implements the repository interfaces on PostgreSQL
// through gorm.
package gormstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/botscript-backend/internal/database"
	"github.com/javajoker/botscript-backend/internal/repository"
)

type Store struct {
	db   *gorm.DB
	inTx bool
}

var _ repository.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Users() repository.UserRepository         { return userRepo{s.db} }
func (s *Store) Profiles() repository.ProfileRepository   { return profileRepo{s.db} }
func (s *Store) Products() repository.ProductRepository   { return productRepo{s.db} }
func (s *Store) Orders() repository.OrderRepository       { return orderRepo{s.db} }
func (s *Store) Licenses() repository.LicenseRepository   { return licenseRepo{s.db} }
func (s *Store) Reviews() repository.ReviewRepository     { return reviewRepo{s.db} }
func (s *Store) Favorites() repository.FavoriteRepository { return favoriteRepo{s.db} }
func (s *Store) AuditLogs() repository.AuditLogRepository { return auditRepo{s.db} }

// WithinTransaction runs fn in a database transaction. Nested calls join the
// outer transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto the repository sentinels. The connection
// must be opened with TranslateError for duplicate keys to be recognised.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func create(ctx context.Context, db *gorm.DB, value interface{}) error {
	return translate(db.WithContext(ctx).Omit(clause.Associations).Create(value).Error)
}
