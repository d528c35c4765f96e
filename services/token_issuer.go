package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
)

// TokenPair, bir kullanıcıya verilen access + refresh token çifti.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenIssuer, JWT üretimi ve doğrulaması yapan bileşen.
//
// Hem access hem refresh token aynı secret ile HS256 imzalanır —
// ikisini ayıran şey ömürleri ve refresh token'ın ledger'a (users.refresh_token_hash)
// kaydedilmesidir. Çalınan bir access token refresh olarak kullanılamaz çünkü
// hash ledger'da eşleşmez.
type TokenIssuer struct {
	secret     []byte
	accessExp  time.Duration
	refreshExp time.Duration
}

// NewTokenIssuer, constructor.
// accessExpMinutes dakika, refreshExpDays gün cinsindendir (config ile aynı birimler).
func NewTokenIssuer(secret string, accessExpMinutes, refreshExpDays int) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessExp:  time.Duration(accessExpMinutes) * time.Minute,
		refreshExp: time.Duration(refreshExpDays) * 24 * time.Hour,
	}
}

// RefreshExpiry, refresh token ömrünü döner — handler'da cookie Max-Age için.
func (t *TokenIssuer) RefreshExpiry() time.Duration {
	return t.refreshExp
}

// IssuePair, kullanıcı için yeni bir access + refresh token çifti üretir.
//
// Her iki token'a da benzersiz bir jti (JWT ID) yazılır:
// "<username>-<unix-ms>-<uuid>". jti olmasaydı aynı saniye içinde üretilen
// iki refresh token byte-byte aynı olurdu ve rotation'da "hangi token geçerli"
// ayrımı yapılamazdı. jti her imzalı string'i benzersiz kılar.
func (t *TokenIssuer) IssuePair(username string) (*TokenPair, error) {
	now := time.Now()

	access, err := t.sign(username, now, t.accessExp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := t.sign(username, now, t.refreshExp)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken, access token'ı doğrular ve claims'i döner.
// İmza geçersiz, token süresi dolmuş veya algoritma HMAC değilse ErrUnauthorized.
func (t *TokenIssuer) VerifyAccessToken(tokenString string) (*models.TokenClaims, error) {
	return t.verify(tokenString)
}

// VerifyRefreshToken, refresh token'ın imzasını ve süresini doğrular.
//
// DİKKAT: Bu doğrulama tek başına YETERLİ DEĞİLDİR — imzası geçerli eski bir
// refresh token da buradan geçer. Gerçek geçerlilik kararı, ledger'daki
// bcrypt hash karşılaştırmasıyla verilir (RefreshLedger.MatchesCurrent).
func (t *TokenIssuer) VerifyRefreshToken(tokenString string) (*models.TokenClaims, error) {
	return t.verify(tokenString)
}

func (t *TokenIssuer) sign(username string, now time.Time, exp time.Duration) (string, error) {
	claims := &models.TokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("%s-%d-%s", username, now.UnixMilli(), uuid.NewString()),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "pano",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *TokenIssuer) verify(tokenString string) (*models.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.TokenClaims{}, func(token *jwt.Token) (any, error) {
		// Algorithm confusion saldırısına karşı: sadece HMAC kabul et.
		// Saldırgan header'da "alg: none" veya RS256 deneyebilir.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*models.TokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", pkg.ErrUnauthorized)
	}

	return claims, nil
}
