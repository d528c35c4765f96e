package services

import (
	"context"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/akinalp/pano/repository"
)

// RefreshLedger, her kullanıcının TEK aktif refresh token'ını yönetir.
//
// Token'ın kendisi saklanmaz — bcrypt hash'i users.refresh_token_hash
// kolonuna yazılır. DB sızsa bile saldırgan hash'ten token üretemez.
//
// Neden bcrypt(SHA256(token))?
// bcrypt girdiyi 72 byte'ta keser. İmzalı bir JWT 200+ byte'tır — doğrudan
// bcrypt'lenirse sadece header kısmı hash'lenir ve farklı token'lar aynı
// hash'i verir. Önce SHA256 ile 32 byte'a indirip sonra bcrypt'lemek hem
// tüm token'ı hesaba katar hem de bcrypt'in salt + constant-time
// karşılaştırmasını korur.
type RefreshLedger struct {
	userRepo repository.UserRepository
}

// NewRefreshLedger, constructor.
func NewRefreshLedger(userRepo repository.UserRepository) *RefreshLedger {
	return &RefreshLedger{userRepo: userRepo}
}

// RecordCurrent, verilen refresh token'ı kullanıcının aktif token'ı yapar.
// Önceki slot değeri üzerine yazılır — eski token o anda geçersiz olur.
func (l *RefreshLedger) RecordCurrent(ctx context.Context, userID, refreshToken string) error {
	digest := sha256.Sum256([]byte(refreshToken))

	hash, err := bcrypt.GenerateFromPassword(digest[:], 10)
	if err != nil {
		return fmt.Errorf("failed to hash refresh token: %w", err)
	}

	h := string(hash)
	return l.userRepo.UpdateRefreshTokenHash(ctx, userID, &h)
}

// MatchesCurrent, verilen token'ın kullanıcının aktif refresh token'ı
// olup olmadığını kontrol eder. Slot boşsa (logout sonrası) false döner.
func (l *RefreshLedger) MatchesCurrent(storedHash *string, refreshToken string) bool {
	if storedHash == nil {
		return false
	}

	digest := sha256.Sum256([]byte(refreshToken))
	return bcrypt.CompareHashAndPassword([]byte(*storedHash), digest[:]) == nil
}

// Revoke, kullanıcının refresh slot'unu temizler (logout).
// Slot zaten boşsa da başarılı sayılır — logout idempotent'tir.
func (l *RefreshLedger) Revoke(ctx context.Context, userID string) error {
	return l.userRepo.UpdateRefreshTokenHash(ctx, userID, nil)
}
