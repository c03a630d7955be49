// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/config"
)

// Upload kinds accepted by POST /v1/products/uploads.
const (
	UploadKindImage   = "image"
	UploadKindArchive = "archive"
)

const (
	imageFolder   = "products/images"
	archiveFolder = "products/files"
)

// ArchiveKeyPrefix is the folder holding a seller's uploaded archives.
func ArchiveKeyPrefix(sellerID uuid.UUID) string {
	return archiveFolder + "/" + sellerID.String() + "/"
}

type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

func NewStorageService(config *config.Config) (*StorageService, error) {
	if config.AWS.AccessKeyID == "" || config.AWS.S3Bucket == "" {
		// Return service without S3 for local development
		return &StorageService{config: config}, nil
	}

	// Create AWS session
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			config.AWS.AccessKeyID,
			config.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   config,
	}, nil
}

// UploadFile stores the file and returns where it can be fetched. Size and
// extension checks run before anything is read.
func (s *StorageService) UploadFile(ctx context.Context, file io.Reader, filename string, size int64, contentType string, options UploadOptions) (*UploadResult, error) {
	// Validate file size
	if options.MaxSize > 0 && size > options.MaxSize {
		return nil, newValidationError("file", "max", fmt.Sprintf("file size %d bytes exceeds maximum allowed size %d bytes", size, options.MaxSize))
	}

	// Validate file type
	if len(options.AllowedTypes) > 0 {
		fileExt := strings.ToLower(filepath.Ext(filename))
		allowed := false
		for _, allowedType := range options.AllowedTypes {
			if fileExt == allowedType {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, newValidationError("file", "oneof", fmt.Sprintf("file type %s is not allowed", fileExt))
		}
	}

	key := s.generateFileName(filename, options.Folder)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Upload to S3 or local storage
	if s.s3Client != nil {
		return s.uploadToS3(ctx, fileBytes, key, contentType, options.IsPublic)
	}

	return s.uploadToLocal(fileBytes, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, fileBytes []byte, key, contentType string, isPublic bool) (*UploadResult, error) {
	// Prepare S3 upload parameters
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if isPublic {
		params.ACL = aws.String("public-read")
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      s.getS3URL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// uploadToLocal only computes a placeholder URL; nothing is written to disk.
func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	return &UploadResult{
		URL:      s.localURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// DeleteFile removes the object stored under key.
func (s *StorageService) DeleteFile(ctx context.Context, key string) error {
	if s.s3Client == nil {
		logrus.WithField("key", key).Debug("Local storage: file would be deleted")
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// GeneratePresignedURL returns a time-limited download link. Without S3 the
// placeholder URL is returned unchanged.
func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return s.localURL(key), nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

func (s *StorageService) PresignTTL() time.Duration {
	if s.config.AWS.PresignTTL <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.config.AWS.PresignTTL) * time.Minute
}

// SellerUploadOptions returns the limits for kind with the folder scoped to
// the seller, so a stored key shows who uploaded it.
func (s *StorageService) SellerUploadOptions(kind string, sellerID uuid.UUID) (UploadOptions, bool) {
	options, ok := s.GetDefaultUploadOptions(kind)
	if ok {
		options.Folder = options.Folder + "/" + sellerID.String()
	}
	return options, ok
}

// GetDefaultUploadOptions returns limits per upload kind. ok is false for an
// unknown kind.
func (s *StorageService) GetDefaultUploadOptions(kind string) (UploadOptions, bool) {
	switch kind {
	case UploadKindImage:
		return UploadOptions{
			Folder:       imageFolder,
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{".jpg", ".jpeg", ".png", ".gif", ".webp"},
			IsPublic:     true,
		}, true
	case UploadKindArchive:
		return UploadOptions{
			Folder:       archiveFolder,
			MaxSize:      50 * 1024 * 1024, // 50MB
			AllowedTypes: []string{".zip", ".js", ".crx", ".tar", ".gz"},
			IsPublic:     false,
		}, true
	default:
		return UploadOptions{}, false
	}
}

func (s *StorageService) generateFileName(originalName, folder string) string {
	// Generate UUID for uniqueness
	id := uuid.New()

	// Get file extension
	ext := strings.ToLower(filepath.Ext(originalName))

	// Create filename with timestamp and UUID
	timestamp := time.Now().Format("20060102")
	filename := fmt.Sprintf("%s_%s%s", timestamp, id.String()[:8], ext)

	if folder != "" {
		return fmt.Sprintf("%s/%s", folder, filename)
	}

	return filename
}

// KeyFromURL returns the object key behind a URL this service handed out.
// ok is false for URLs pointing elsewhere.
func (s *StorageService) KeyFromURL(rawURL string) (string, bool) {
	base := s.localURL("")
	if s.s3Client != nil {
		base = s.getS3URL("")
	}
	key := strings.TrimPrefix(rawURL, base)
	if key == rawURL || key == "" {
		return "", false
	}
	return key, true
}

func (s *StorageService) getS3URL(key string) string {
	if s.config.AWS.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", s.config.AWS.CloudFrontURL, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		s.config.AWS.S3Bucket, s.config.AWS.Region, key)
}

func (s *StorageService) localURL(key string) string {
	return fmt.Sprintf("http://%s:%s/uploads/%s", s.config.Server.Host, s.config.Server.Port, key)
}
