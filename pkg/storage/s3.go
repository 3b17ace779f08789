package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const (
	// MaxAvatarFileSize is the maximum allowed avatar upload size (2MB).
	MaxAvatarFileSize = 2 * 1024 * 1024
	// FolderAvatars is the S3 prefix for avatar objects.
	FolderAvatars = "avatars"
)

// Allowed avatar MIME types and extensions.
var (
	AllowedAvatarTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	}
	AllowedAvatarExtensions = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".webp": "image/webp",
		".gif":  "image/gif",
	}
)

// S3Config holds S3 client configuration.
type S3Config struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	AvatarsBucket        string
	PresignExpireMinutes int
}

// S3 provides S3 operations for avatar storage: validation, uploads and
// pre-signed URLs.
type S3 struct {
	client   *s3.Client
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 creates an S3 client using credentials from config or env (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY).
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	accessKey := cfg.AccessKeyID
	secretKey := cfg.SecretAccessKey
	if accessKey == "" || secretKey == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKey, secretKey, "",
		)))
	} else if logger != nil {
		logger.Warn("S3 client using default credential chain (AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY not set)")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client)
	return &S3{
		client:   client,
		uploader: uploader,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// ValidateAvatarFileType returns true if the content type and/or extension are allowed for avatars.
func ValidateAvatarFileType(contentType, filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	if contentType != "" {
		if _, ok := AllowedAvatarTypes[strings.ToLower(contentType)]; ok {
			return true
		}
	}
	if ext != "" {
		if _, ok := AllowedAvatarExtensions[ext]; ok {
			return true
		}
	}
	return false
}

// ContentTypeForFilename returns the MIME type for an avatar filename extension.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ct, ok := AllowedAvatarExtensions[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AvatarKey returns the S3 object key for a user's avatar: avatars/{user_id}{ext}.
func AvatarKey(userID, filename string) string {
	return path.Join(FolderAvatars, userID+strings.ToLower(path.Ext(filename)))
}

// GeneratePresignedUploadURL returns a pre-signed PUT URL for direct upload.
func (s *S3) GeneratePresignedUploadURL(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(s.client)
	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AvatarsBucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expires
	})
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

// PresignExpire returns the configured presign duration.
func (s *S3) PresignExpire() time.Duration {
	if s.cfg.PresignExpireMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(s.cfg.PresignExpireMinutes) * time.Minute
}

// PublicObjectURL returns the public URL for an avatar object.
func (s *S3) PublicObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.AvatarsBucket, s.cfg.Region, key)
}

// Upload streams a reader to the avatars bucket and returns the public URL.
// Avatars are world-readable.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AvatarsBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return s.PublicObjectURL(key), nil
}

// DeleteObject removes an avatar object.
func (s *S3) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.AvatarsBucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
