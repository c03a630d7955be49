// internal/services/license_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/models"
	"github.com/javajoker/botscript-backend/internal/repository"
	"github.com/javajoker/botscript-backend/internal/session"
)

type LicenseService struct {
	store          repository.Store
	storageService *StorageService
	now            func() time.Time
}

type DownloadLink struct {
	LicenseKey string    `json:"license_key"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func NewLicenseService(store repository.Store, storageService *StorageService) *LicenseService {
	return &LicenseService{
		store:          store,
		storageService: storageService,
		now:            time.Now,
	}
}

// GetUserLicenses lists the buyer's licenses with their product, newest first.
func (s *LicenseService) GetUserLicenses(ctx context.Context, sess *session.Session) ([]models.License, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	licenses, err := s.store.Licenses().ListByBuyer(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}
	return licenses, nil
}

// Download returns a time-limited link to the product file. Licenses of other
// buyers are reported as not found; revoked licenses are forbidden.
func (s *LicenseService) Download(ctx context.Context, sess *session.Session, licenseID uuid.UUID) (*DownloadLink, error) {
	if sess == nil {
		return nil, ErrAuthenticationRequired
	}

	license, err := s.store.Licenses().GetByID(ctx, licenseID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load license: %w", err)
	}
	if license.BuyerID != sess.UserID {
		return nil, ErrNotFound
	}
	if !license.IsActive {
		return nil, fmt.Errorf("%w: license is no longer active", ErrForbidden)
	}

	product := license.Product
	if product == nil {
		if product, err = s.store.Products().GetByID(ctx, license.ProductID); err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
	}

	ttl := s.storageService.PresignTTL()
	link := &DownloadLink{
		LicenseKey: license.LicenseKey,
		ExpiresAt:  s.now().Add(ttl),
	}

	switch {
	case product.FileKey != "":
		if link.URL, err = s.storageService.GeneratePresignedURL(product.FileKey, ttl); err != nil {
			return nil, err
		}
	case product.FileURL != "":
		link.URL = product.FileURL
	default:
		return nil, fmt.Errorf("%w: product has no downloadable file", ErrNotFound)
	}

	logrus.WithFields(logrus.Fields{
		"license_id": license.ID,
		"buyer_id":   sess.UserID,
		"product_id": product.ID,
	}).Info("License download link issued")

	return link, nil
}
