// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/verdict-cms/internal/config"
	"github.com/javajoker/verdict-cms/internal/utils"
)

// EvidenceKind names a chain-of-custody document slot on a product.
type EvidenceKind string

const (
	EvidenceReceipt          EvidenceKind = "purchase_receipt"
	EvidencePhoto            EvidenceKind = "purchase_photo"
	EvidenceMethodValidation EvidenceKind = "method_validation_package"
)

var (
	ErrUnknownEvidenceKind = errors.New("unknown evidence kind")
	ErrFileTooLarge        = errors.New("file is too large")
	ErrFileTypeNotAllowed  = errors.New("file type not allowed")
	ErrEvidenceMissing     = errors.New("no evidence stored for this kind")
)

func (k EvidenceKind) Valid() bool {
	_, ok := evidenceUploadOptions[k]
	return ok
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
}

var evidenceUploadOptions = map[EvidenceKind]UploadOptions{
	EvidenceReceipt: {
		Folder:       "evidence/receipts",
		MaxSize:      10 * 1024 * 1024, // 10MB
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".pdf"},
	},
	EvidencePhoto: {
		Folder:       "evidence/photos",
		MaxSize:      20 * 1024 * 1024, // 20MB
		AllowedTypes: []string{".jpg", ".jpeg", ".png", ".heic"},
	},
	EvidenceMethodValidation: {
		Folder:       "evidence/method-validation",
		MaxSize:      50 * 1024 * 1024, // 50MB
		AllowedTypes: []string{".pdf", ".zip", ".xlsx", ".csv"},
	},
}

// StorageService keeps evidence files private in S3. Without AWS
// credentials files are written under the local upload directory.
type StorageService struct {
	s3Client s3iface.S3API
	bucket   string
	region   string
	localDir string
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewStorageService(cfg config.AWSConfig, log logrus.FieldLogger) (*StorageService, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &StorageService{
		bucket:   cfg.S3Bucket,
		region:   cfg.Region,
		localDir: cfg.LocalUploadDir,
		log:      log,
		now:      time.Now,
	}
	if cfg.AccessKeyID == "" {
		log.WithField("dir", cfg.LocalUploadDir).Warn("AWS credentials not set, storing evidence on local disk")
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	s.s3Client = s3.New(sess)
	return s, nil
}

// NewStorageServiceWithClient builds a service around an existing S3 client.
func NewStorageServiceWithClient(client s3iface.S3API, bucket string, log logrus.FieldLogger) *StorageService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StorageService{s3Client: client, bucket: bucket, log: log, now: time.Now}
}

// UploadEvidence validates and stores one evidence file.
func (s *StorageService) UploadEvidence(ctx context.Context, productID uuid.UUID, kind EvidenceKind, filename string, size int64, body io.Reader) (*UploadResult, error) {
	options, ok := evidenceUploadOptions[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvidenceKind, kind)
	}

	if options.MaxSize > 0 && size > options.MaxSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, options.MaxSize)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if !containsString(options.AllowedTypes, ext) {
		return nil, fmt.Errorf("%w: %s", ErrFileTypeNotAllowed, ext)
	}

	data, err := io.ReadAll(io.LimitReader(body, options.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > options.MaxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, options.MaxSize)
	}

	key := s.objectKey(options.Folder, productID, ext)
	contentType := http.DetectContentType(data)

	if s.s3Client != nil {
		return s.uploadToS3(ctx, data, key, contentType)
	}
	return s.uploadToLocal(data, key, contentType)
}

func (s *StorageService) uploadToS3(ctx context.Context, data []byte, key, contentType string) (*UploadResult, error) {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		ContentLength:        aws.Int64(int64(len(data))),
		ServerSideEncryption: aws.String(s3.ServerSideEncryptionAes256),
		Metadata:             map[string]*string{"sha256": aws.String(utils.HashBytes(data))},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		URL:      fmt.Sprintf("s3://%s/%s", s.bucket, key),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
		SHA256:   utils.HashBytes(data),
	}, nil
}

func (s *StorageService) uploadToLocal(data []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(s.localDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	return &UploadResult{
		URL:      "file://" + filepath.ToSlash(path),
		Key:      key,
		Size:     int64(len(data)),
		MimeType: contentType,
		SHA256:   utils.HashBytes(data),
	}, nil
}

// PresignedURL returns a short-lived download link for a stored key.
func (s *StorageService) PresignedURL(key string, expiration time.Duration) (string, error) {
	if s.s3Client == nil {
		return "", fmt.Errorf("S3 client not configured")
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// EvidenceURL returns a link to a stored evidence key. S3 objects get a
// presigned URL; local files are addressed by path.
func (s *StorageService) EvidenceURL(key string, expiration time.Duration) (string, error) {
	if key == "" {
		return "", ErrEvidenceMissing
	}
	if s.s3Client != nil {
		return s.PresignedURL(key, expiration)
	}
	return "file://" + filepath.ToSlash(filepath.Join(s.localDir, filepath.FromSlash(key))), nil
}

func (s *StorageService) objectKey(folder string, productID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s_%s%s", folder, productID, s.now().Format("20060102"), uuid.New().String()[:8], ext)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
