// Package services, business logic katmanını barındırır.
//
// Service Layer Pattern nedir?
// Handler (HTTP) ile Repository (DB) arasında oturan katmandır.
// Tüm iş kuralları burada yaşar:
//   - Şifre hash'leme
//   - JWT token oluşturma ve rotation
//   - Sahiplik kontrolleri
//
// Service ASLA http.Request/Response bilmez — sadece domain modelleri alır/verir.
// Service ASLA doğrudan SQL çalıştırmaz — Repository interface'i kullanır.
package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/pano/database"
	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/pkg/email"
	"github.com/akinalp/pano/repository"
)

// Reset token ayarları.
const (
	resetTokenExpiry   = 20 * time.Minute
	resetTokenCooldown = 90 * time.Second
)

// AuthService interface'i — dışarıya açık API.
// Handler bu interface'e bağımlıdır, concrete struct'a değil.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*AuthTokens, error)
	Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error)
	// Refresh, geçerli bir refresh token karşılığında YENİ bir token çifti verir.
	// Eski refresh token o anda geçersiz olur (rotation) — aynı token
	// ikinci kez kullanılırsa 401 döner.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	// Logout, kullanıcının refresh slot'unu temizler.
	// Elde kalan access token süresi dolana kadar çalışmaya devam eder
	// ama artık yeni token alınamaz.
	Logout(ctx context.Context, userID string) error
	ValidateAccessToken(tokenString string) (*models.TokenClaims, error)
	// ChangePassword, kullanıcının şifresini değiştirir.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	// ChangeEmail, kullanıcının email adresini değiştirir.
	ChangeEmail(ctx context.Context, userID, password, newEmail string) error
	// ForgotPassword, email'e şifre sıfırlama linki gönderir.
	// Email kayıtlı olmasa da hata DÖNMEZ — user enumeration'ı önlemek için
	// her durumda aynı cevap verilir.
	ForgotPassword(ctx context.Context, emailAddr string) error
	// ResetPassword, reset token karşılığında yeni şifre belirler.
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// AuthTokens, login/register sonrası dönen token çifti + kullanıcı bilgisi.
type AuthTokens struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	User         models.User `json:"user"`
}

// authService, AuthService interface'inin implementasyonu.
type authService struct {
	db        *sql.DB
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
	issuer    *TokenIssuer
	ledger    *RefreshLedger
	emails    email.EmailSender // nil olabilir — email gönderimi devre dışı
}

// NewAuthService, constructor.
//
// db parametresi ResetPassword'un transaction'ı için gereklidir —
// repository'ler TxQuerier aldığından transaction içinde tx'e bağlı
// yeni repo instance'ları oluşturulur.
func NewAuthService(
	db *sql.DB,
	userRepo repository.UserRepository,
	resetRepo repository.PasswordResetRepository,
	issuer *TokenIssuer,
	ledger *RefreshLedger,
	emails email.EmailSender,
) AuthService {
	return &authService{
		db:        db,
		userRepo:  userRepo,
		resetRepo: resetRepo,
		issuer:    issuer,
		ledger:    ledger,
		emails:    emails,
	}
}

// Register, yeni kullanıcı kaydı oluşturur ve direkt login eder.
//
// Username çakışması kontrolü için önce SELECT atılmaz — UNIQUE constraint'e
// güvenilir. SELECT + INSERT arası başka bir request aynı username'i
// alabilirdi (race); constraint bu yarışı DB seviyesinde çözer.
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*AuthTokens, error) {
	// 1. Validation
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// 2. Bcrypt hash
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 10)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 3. User oluştur
	var emailAddr *string
	if req.Email != "" {
		emailAddr = &req.Email
	}

	user := &models.User{
		Username:     req.Username,
		Email:        emailAddr,
		PasswordHash: string(hash),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err // ErrAlreadyExists olabilir
	}

	// 4. Token çifti oluştur ve refresh slot'una kaydet
	return s.issueTokens(ctx, user)
}

// Login, kullanıcı girişi yapar.
//
// Hata mesajları BİLEREK aynı: "kullanıcı yok" ile "şifre yanlış" ayrımı
// yapılmaz — aksi halde saldırgan hangi username'lerin kayıtlı olduğunu
// deneme-yanılmayla öğrenebilir.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*AuthTokens, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	// Kullanıcıyı bul
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	// Bcrypt şifre karşılaştırması
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid username or password", pkg.ErrUnauthorized)
	}

	return s.issueTokens(ctx, user)
}

// Refresh, refresh token rotation yapar.
//
// Dört ayrı başarısızlık durumu vardır (imza geçersiz, süre dolmuş,
// kullanıcı silinmiş, ledger eşleşmiyor) ama hepsi AYNI mesajla döner:
// "invalid refresh token". Mesaj ayrımı saldırgana hangi aşamada
// takıldığını söylerdi.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
	}

	user, err := s.userRepo.GetByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
		}
		return nil, err
	}

	// Ledger kontrolü: bu token gerçekten kullanıcının AKTİF token'ı mı?
	// İmzası geçerli ama rotation'la geçersizleşmiş eski bir token burada elenir.
	if !s.ledger.MatchesCurrent(user.RefreshTokenHash, refreshToken) {
		return nil, fmt.Errorf("%w: invalid refresh token", pkg.ErrUnauthorized)
	}

	// Rotation: yeni çift üret, slot'un üzerine yaz.
	// Bu andan itibaren eski refresh token ölüdür.
	pair, err := s.issuer.IssuePair(user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.RecordCurrent(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout, refresh slot'unu temizler. İdempotent — zaten çıkmış
// kullanıcı için de başarılı döner.
func (s *authService) Logout(ctx context.Context, userID string) error {
	return s.ledger.Revoke(ctx, userID)
}

// ValidateAccessToken, JWT access token'ı doğrular ve claims'i döner.
func (s *authService) ValidateAccessToken(tokenString string) (*models.TokenClaims, error) {
	return s.issuer.VerifyAccessToken(tokenString)
}

// ChangePassword, kullanıcının şifresini değiştirir.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", pkg.ErrBadRequest)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("%w: current password is incorrect", pkg.ErrUnauthorized)
	}

	if currentPassword == newPassword {
		return fmt.Errorf("%w: new password must be different from current password", pkg.ErrBadRequest)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 10)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(newHash))
}

// ChangeEmail, kullanıcının email adresini değiştirir.
// newEmail boş string → email kaldırılır (şifre sıfırlama devre dışı kalır).
func (s *authService) ChangeEmail(ctx context.Context, userID, password, newEmail string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("%w: password is incorrect", pkg.ErrUnauthorized)
	}

	if strings.TrimSpace(newEmail) == "" {
		if user.Email == nil {
			return fmt.Errorf("%w: no email to remove", pkg.ErrBadRequest)
		}
		return s.userRepo.UpdateEmail(ctx, userID, nil)
	}

	newEmail = strings.TrimSpace(newEmail)
	if !models.EmailRegex().MatchString(newEmail) {
		return fmt.Errorf("%w: invalid email format", pkg.ErrBadRequest)
	}

	if user.Email != nil && *user.Email == newEmail {
		return fmt.Errorf("%w: new email is the same as current email", pkg.ErrBadRequest)
	}

	return s.userRepo.UpdateEmail(ctx, userID, &newEmail)
}

// ForgotPassword, şifre sıfırlama akışını başlatır.
//
// Her çıkış yolu sessizdir (nil döner): email kayıtlı değilse, cooldown
// içindeyse veya email gönderimi başarısız olsa bile. Handler her durumda
// aynı generic mesajı döner — response'dan hangi email'lerin kayıtlı
// olduğu anlaşılamaz.
func (s *authService) ForgotPassword(ctx context.Context, emailAddr string) error {
	// Fırsat temizliği: süresi dolmuş token'ları sil
	if err := s.resetRepo.DeleteExpired(ctx); err != nil {
		log.Printf("[auth] failed to clean expired reset tokens: %v", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return nil // Sessiz — enumeration koruması
		}
		return err
	}

	// Cooldown: son token çok yeniyse tekrar gönderme (email spam koruması)
	if latest, err := s.resetRepo.GetLatestByUserID(ctx, user.ID); err == nil {
		if time.Since(latest.CreatedAt) < resetTokenCooldown {
			return nil
		}
	}

	// 32 byte random token → hex 64 karakter. Email'e plaintext gider,
	// DB'ye SHA256 hash'i yazılır.
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	plaintext := hex.EncodeToString(tokenBytes)
	digest := sha256.Sum256([]byte(plaintext))

	// Eski token'ları sil — kullanıcı başına tek aktif reset token
	if err := s.resetRepo.DeleteByUserID(ctx, user.ID); err != nil {
		return err
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(resetTokenExpiry),
	}
	if err := s.resetRepo.Create(ctx, token); err != nil {
		return err
	}

	if s.emails == nil {
		log.Printf("[auth] email sending disabled, reset token for %s not delivered", user.Username)
		return nil
	}

	if err := s.emails.SendPasswordReset(ctx, emailAddr, plaintext); err != nil {
		// Email hatası client'a sızdırılmaz — generic cevap korunur
		log.Printf("[auth] failed to send password reset email: %v", err)
	}

	return nil
}

// ResetPassword, reset token'ı doğrular ve yeni şifreyi yazar.
//
// Üç adım tek transaction'da çalışır: şifre güncelle + token'ı sil +
// refresh slot'unu temizle. Biri başarısız olursa hiçbiri kalıcı olmaz.
// Refresh slot temizliği önemli: şifre sıfırlayan kullanıcının eski
// oturumu da kapanmalı (hesap ele geçirilmişse saldırganın oturumu düşer).
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", pkg.ErrBadRequest)
	}

	digest := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(digest[:])

	record, err := s.resetRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, pkg.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrUnauthorized)
		}
		return err
	}

	if time.Now().After(record.ExpiresAt) {
		if delErr := s.resetRepo.DeleteByID(ctx, record.ID); delErr != nil {
			log.Printf("[auth] failed to delete expired reset token: %v", delErr)
		}
		return fmt.Errorf("%w: invalid or expired reset token", pkg.ErrUnauthorized)
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), 10)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		txUsers := repository.NewSQLiteUserRepo(tx)
		txResets := repository.NewSQLiteResetTokenRepo(tx)

		if err := txUsers.UpdatePassword(ctx, record.UserID, string(newHash)); err != nil {
			return err
		}
		if err := txResets.DeleteByUserID(ctx, record.UserID); err != nil {
			return err
		}
		// Mevcut oturumu düşür
		return txUsers.UpdateRefreshTokenHash(ctx, record.UserID, nil)
	})
}

// ─── Private Helpers ───

// issueTokens, token çifti üretir, refresh'i ledger'a kaydeder ve
// response için kullanıcıyı hazırlar.
func (s *authService) issueTokens(ctx context.Context, user *models.User) (*AuthTokens, error) {
	pair, err := s.issuer.IssuePair(user.Username)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.RecordCurrent(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, err
	}

	user.PasswordHash = ""
	user.RefreshTokenHash = nil

	return &AuthTokens{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         *user,
	}, nil
}
