package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/akinalp/pano/config"
	"github.com/akinalp/pano/pkg"
)

// presignExpiry, üretilen upload URL'inin geçerlilik süresi.
const presignExpiry = time.Hour

// PresignedUpload, client'a dönen presigned upload bilgisi.
//
// UploadURL: client'ın dosya byte'larını PUT edeceği geçici URL.
// ImagePath: upload tamamlandıktan sonra gönderide image_path olarak
// kullanılacak object key. Server dosya byte'larını HİÇ görmez.
type PresignedUpload struct {
	UploadURL string `json:"upload_url"`
	ImagePath string `json:"image_path"`
}

// S3Service, S3 (veya MinIO gibi S3-uyumlu bir servis) için
// presigned PUT URL üretir.
type S3Service interface {
	GeneratePresignedURL(ctx context.Context, fileExtension, contentType string) (*PresignedUpload, error)
}

type s3Service struct {
	presigner *s3.PresignClient
	bucket    string
}

// NewS3Service, constructor — S3 client'ı startup'ta bir kez kurulur.
//
// Custom endpoint (MinIO) verilmişse path-style addressing kullanılır:
// MinIO, "bucket.endpoint" virtual-host formatını desteklemez.
func NewS3Service(ctx context.Context, cfg config.S3Config) (S3Service, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Service{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
	}, nil
}

// GeneratePresignedURL, 1 saat geçerli bir presigned PUT URL üretir.
//
// Object key "posts/<unix-ms>-<uuid>.<ext>" formatındadır — client'ın
// verdiği tek girdi uzantıdır ve sadece alfanumerik kabul edilir.
// Key'e başka hiçbir kullanıcı girdisi girmez.
func (s *s3Service) GeneratePresignedURL(ctx context.Context, fileExtension, contentType string) (*PresignedUpload, error) {
	fileExtension = strings.ToLower(strings.TrimPrefix(fileExtension, "."))
	if fileExtension == "" || !isAlphanumeric(fileExtension) {
		return nil, fmt.Errorf("%w: file extension must be alphanumeric", pkg.ErrBadRequest)
	}

	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: only image uploads are allowed", pkg.ErrBadRequest)
	}

	key := fmt.Sprintf("posts/%d-%s.%s", time.Now().UnixMilli(), uuid.NewString(), fileExtension)

	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign put object: %w", err)
	}

	return &PresignedUpload{
		UploadURL: req.URL,
		ImagePath: key,
	}, nil
}

// isAlphanumeric, string'in sadece [a-z0-9] içerdiğini kontrol eder.
func isAlphanumeric(s string) bool {
	for _, ch := range s {
		if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') {
			return false
		}
	}
	return true
}
