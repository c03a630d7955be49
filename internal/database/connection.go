// internal/database/connection.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	// Connect to database
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return DB, nil
}

func logLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// gen_random_uuid() lives in pgcrypto before PostgreSQL 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Product{},
		&models.Order{},
		&models.License{},
		&models.Review{},
		&models.Favorite{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_status_category ON products(status, category)",
		"CREATE INDEX IF NOT EXISTS idx_products_sales ON products(sales DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_rating ON products(rating_avg DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_seller_created ON products(seller_id, created_at DESC)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_created ON orders(buyer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_product_status ON orders(buyer_id, product_id, status)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_buyer_idempotency ON orders(buyer_id, idempotency_key) WHERE idempotency_key IS NOT NULL",

		// Review and license indexes
		"CREATE INDEX IF NOT EXISTS idx_reviews_product_created ON reviews(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_licenses_buyer_created ON licenses(buyer_id, created_at DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

const demoSellerEmail = "studio@botscript.dev"

// SeedInitialData creates a demo seller with the featured catalog. It is a
// no-op once the seller exists.
func SeedInitialData(ctx context.Context, store repository.Store) error {
	logrus.Info("Seeding initial data...")

	_, err := store.Users().GetByEmail(ctx, demoSellerEmail)
	if err == nil {
		logrus.Info("Initial data already present")
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up demo seller: %w", err)
	}

	return store.WithinTransaction(ctx, func(tx repository.Store) error {
		seller := &models.User{Email: demoSellerEmail}
		if err := seller.SetPassword("botscript-demo"); err != nil {
			return fmt.Errorf("failed to set demo seller password: %w", err)
		}
		if err := tx.Users().Create(ctx, seller); err != nil {
			return fmt.Errorf("failed to create demo seller: %w", err)
		}

		profile := &models.Profile{
			UserType:   models.UserTypeSeller,
			Username:   "botscript_studio",
			FullName:   "Botscript Studio",
			IsVerified: true,
		}
		profile.ID = seller.ID
		if err := tx.Profiles().Create(ctx, profile); err != nil {
			return fmt.Errorf("failed to create demo profile: %w", err)
		}

		for _, product := range featuredProducts() {
			product.SellerID = seller.ID
			if err := tx.Products().Create(ctx, &product); err != nil {
				return fmt.Errorf("failed to create product %q: %w", product.Title, err)
			}
		}

		logrus.Info("Initial data seeding completed")
		return nil
	})
}

func featuredProducts() []models.Product {
	return []models.Product{
		{
			Title:       "Bot Modération Pro",
			Subtitle:    "Système de modération automatique complet",
			Description: "Bot Discord avec modération avancée",
			Category:    models.CategoryDiscord,
			Price:       29.99,
			Version:     "2.1.0",
			Status:      models.ProductStatusPublished,
			Downloads:   1250,
			Sales:       1250,
			RatingAvg:   4.8,
			RatingCount: 234,
			Tags:        pq.StringArray{"modération", "discord", "automod"},
		},
		{
			Title:       "Productivity Booster",
			Subtitle:    "Extension Chrome pour optimiser votre workflow",
			Description: "Extension Chrome complète",
			Category:    models.CategoryChrome,
			Price:       19.99,
			Version:     "1.5.0",
			Status:      models.ProductStatusPublished,
			Downloads:   890,
			Sales:       890,
			RatingAvg:   4.6,
			RatingCount: 167,
			Tags:        pq.StringArray{"productivité", "chrome", "workflow"},
		},
		{
			Title:       "Stream Alerts Plus",
			Subtitle:    "Système d'alertes personnalisées pour Twitch",
			Description: "Alertes Twitch customisables",
			Category:    models.CategoryTwitch,
			Price:       24.99,
			Version:     "3.0.0",
			Status:      models.ProductStatusPublished,
			Downloads:   2100,
			Sales:       2100,
			RatingAvg:   4.9,
			RatingCount: 412,
			Tags:        pq.StringArray{"twitch", "streaming", "alertes"},
		},
	}
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
