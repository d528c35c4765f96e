// Package main — Service katmanı başlatma.
//
// initServices, tüm service implementasyonlarını oluşturur.
// Her service, ihtiyaç duyduğu repository interface'lerini ve diğer
// dependency'leri constructor injection ile alır.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/akinalp/pano/config"
	"github.com/akinalp/pano/pkg/email"
	"github.com/akinalp/pano/pkg/ratelimit"
	"github.com/akinalp/pano/services"
)

// Services, tüm service instance'larını tutan container struct.
// S3, sadece STORAGE_DRIVER=s3 modunda doludur — local modda nil kalır
// ve presigned URL route'u hiç register edilmez.
type Services struct {
	Auth   services.AuthService
	Post   services.PostService
	Upload services.UploadService
	S3     services.S3Service
}

// RateLimiters, rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login *ratelimit.LoginRateLimiter
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(ctx context.Context, db *sql.DB, repos *Repositories, cfg *config.Config) (*Services, *RateLimiters, error) {
	// ─── Email service (opsiyonel) ───
	var emailSender email.EmailSender
	if cfg.Email.ResendAPIKey != "" && cfg.Email.FromEmail != "" && cfg.Email.AppURL != "" {
		emailSender = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Printf("[main] email service enabled (from=%s)", cfg.Email.FromEmail)
	} else {
		log.Println("[main] email service disabled (RESEND_API_KEY, EMAIL_FROM or APP_URL not set)")
	}

	// ─── Token altyapısı ───
	issuer := services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)
	ledger := services.NewRefreshLedger(repos.User)

	// ─── Service'ler ───
	authService := services.NewAuthService(db, repos.User, repos.ResetToken, issuer, ledger, emailSender)
	postService := services.NewPostService(repos.Post)
	uploadService := services.NewUploadService(cfg.Upload.Dir, cfg.Upload.MaxSize)

	// S3 sadece driver=s3 modunda kurulur — local modda AWS config'e
	// hiç dokunulmaz.
	var s3Service services.S3Service
	if cfg.Upload.Driver == config.StorageDriverS3 {
		var err error
		s3Service, err = services.NewS3Service(ctx, cfg.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize s3 service: %w", err)
		}
		log.Printf("[main] s3 storage enabled (bucket=%s)", cfg.S3.Bucket)
	}

	// ─── Rate Limiters ───
	loginLimiter := ratelimit.NewLoginRateLimiter(5, 2*time.Minute)

	svcs := &Services{
		Auth:   authService,
		Post:   postService,
		Upload: uploadService,
		S3:     s3Service,
	}

	limiters := &RateLimiters{
		Login: loginLimiter,
	}

	return svcs, limiters, nil
}
