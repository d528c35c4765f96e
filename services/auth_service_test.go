package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/pano/database"
	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/repository"
)

// newTestAuthService, in-memory SQLite üzerinde tam bir auth stack kurar.
// Email sender nil'dir — forgot-password akışı email göndermeden çalışır.
func newTestAuthService(t *testing.T) (AuthService, *testAuthDeps) {
	t.Helper()

	db, err := database.New(":memory:", database.EmbeddedMigrations())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	resetRepo := repository.NewSQLiteResetTokenRepo(db.Conn)
	issuer := NewTokenIssuer("test-secret", 15, 7)
	ledger := NewRefreshLedger(userRepo)

	svc := NewAuthService(db.Conn, userRepo, resetRepo, issuer, ledger, nil)

	return svc, &testAuthDeps{
		userRepo:  userRepo,
		resetRepo: resetRepo,
	}
}

type testAuthDeps struct {
	userRepo  repository.UserRepository
	resetRepo repository.PasswordResetRepository
}

func register(t *testing.T, svc AuthService, username string) *AuthTokens {
	t.Helper()
	tokens, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: username,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return tokens
}

func TestRegister_ReturnsTokenPair(t *testing.T) {
	svc, _ := newTestAuthService(t)

	tokens := register(t, svc, "ayse")
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "ayse", tokens.User.Username)
	assert.Empty(t, tokens.User.PasswordHash)
	assert.Nil(t, tokens.User.RefreshTokenHash)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)

	register(t, svc, "ayse")

	_, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "ayse",
		Password: "another-pass",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
}

func TestRegister_InvalidInput(t *testing.T) {
	svc, _ := newTestAuthService(t)

	cases := []models.RegisterRequest{
		{Username: "ab", Password: "long-enough"},        // username çok kısa
		{Username: "ayse", Password: "short"},            // şifre çok kısa
		{Username: "ayşe!", Password: "long-enough"},     // geçersiz karakter
		{Username: "ayse", Password: "12345678", Email: "not-an-email"},
	}

	for _, req := range cases {
		_, err := svc.Register(context.Background(), &req)
		assert.ErrorIs(t, err, pkg.ErrBadRequest, "req: %+v", req)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)
	register(t, svc, "ayse")

	tokens, err := svc.Login(context.Background(), &models.LoginRequest{
		Username: "ayse",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
}

// Yanlış şifre ile bilinmeyen kullanıcı AYNI hatayı vermeli —
// mesaj farkı username enumeration'a izin verirdi.
func TestLogin_IdenticalFailureMessages(t *testing.T) {
	svc, _ := newTestAuthService(t)
	register(t, svc, "ayse")

	_, errWrongPass := svc.Login(context.Background(), &models.LoginRequest{
		Username: "ayse",
		Password: "wrong-password",
	})
	_, errNoUser := svc.Login(context.Background(), &models.LoginRequest{
		Username: "nobody",
		Password: "whatever-pass",
	})

	require.Error(t, errWrongPass)
	require.Error(t, errNoUser)
	assert.ErrorIs(t, errWrongPass, pkg.ErrUnauthorized)
	assert.ErrorIs(t, errNoUser, pkg.ErrUnauthorized)
	assert.Equal(t, errWrongPass.Error(), errNoUser.Error())
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	tokens := register(t, svc, "ayse")

	pair, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, pair.RefreshToken)

	// Eski token artık ölü — rotation tek kullanımlık yapar
	_, err = svc.Refresh(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Yeni token çalışmaya devam eder
	_, err = svc.Refresh(context.Background(), pair.RefreshToken)
	assert.NoError(t, err)
}

// Access token imza olarak geçerlidir ama refresh olarak KULLANILAMAZ —
// ledger'daki hash sadece refresh token ile eşleşir.
func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	tokens := register(t, svc, "ayse")

	_, err := svc.Refresh(context.Background(), tokens.AccessToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

func TestRefresh_GarbageToken(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Refresh(context.Background(), "garbage")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

// Login bir kez daha yapılırsa önceki oturumun refresh token'ı geçersizleşir —
// slot tek kişiliktir.
func TestLogin_InvalidatesPreviousRefreshToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	first := register(t, svc, "ayse")

	second, err := svc.Login(context.Background(), &models.LoginRequest{
		Username: "ayse",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.Refresh(context.Background(), second.RefreshToken)
	assert.NoError(t, err)
}

// Aynı refresh token'la eşzamanlı istekler: rotation atomik değildir
// (oku-karşılaştır-yaz), ama slot tek sahiplidir. En az bir istek kazanmalı
// ve tur sonunda slot'ta kazananlardan TAM BİR tanesinin token'ı durmalı.
func TestRefresh_ConcurrentSameToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	tokens := register(t, svc, "ayse")

	const attempts = 8
	results := make(chan *TokenPair, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pair, err := svc.Refresh(context.Background(), tokens.RefreshToken)
			if err == nil {
				results <- pair
			}
		}()
	}
	wg.Wait()
	close(results)

	var winners []*TokenPair
	for pair := range results {
		winners = append(winners, pair)
	}
	require.NotEmpty(t, winners, "en az bir refresh başarılı olmalı")

	// Slot'taki hash kazananlardan yalnızca birine ait olabilir.
	// (Başarılı bir deneme slot'u tekrar döndürür — sonraki denemeler
	// bu yüzden başarısız olur, saymaya devam etmeye gerek yok.)
	alive := 0
	for _, pair := range winners {
		if _, err := svc.Refresh(context.Background(), pair.RefreshToken); err == nil {
			alive++
			break
		}
	}
	assert.Equal(t, 1, alive)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, _ := newTestAuthService(t)
	tokens := register(t, svc, "ayse")

	require.NoError(t, svc.Logout(context.Background(), tokens.User.ID))

	_, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Logout idempotent — ikinci çağrı da başarılı
	assert.NoError(t, svc.Logout(context.Background(), tokens.User.ID))
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	tokens := register(t, svc, "ayse")
	ctx := context.Background()

	// Yanlış mevcut şifre
	err := svc.ChangePassword(ctx, tokens.User.ID, "wrong-pass", "new-password")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Yeni şifre çok kısa
	err = svc.ChangePassword(ctx, tokens.User.ID, "correct-horse", "short")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	// Başarılı değişim
	require.NoError(t, svc.ChangePassword(ctx, tokens.User.ID, "correct-horse", "new-password"))

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ayse", Password: "correct-horse"})
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ayse", Password: "new-password"})
	assert.NoError(t, err)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	svc, _ := newTestAuthService(t)

	// Kayıtlı olmayan email → hata YOK, sessiz başarı (enumeration koruması)
	err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	assert.NoError(t, err)
}

func TestForgotPassword_CreatesHashedToken(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "ayse",
		Password: "correct-horse",
		Email:    "ayse@example.com",
	})
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(ctx, "ayse@example.com"))

	user, err := deps.userRepo.GetByEmail(ctx, "ayse@example.com")
	require.NoError(t, err)

	token, err := deps.resetRepo.GetLatestByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, token.TokenHash, 64) // SHA256 hex
	assert.True(t, token.ExpiresAt.After(time.Now()))
}

func TestResetPassword_FullFlow(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "ayse",
		Password: "correct-horse",
		Email:    "ayse@example.com",
	})
	require.NoError(t, err)

	// Token'ı elle oluştur — email gönderilmediği için plaintext'i biz üretiyoruz
	plaintext := "known-reset-token-for-test"
	digest := sha256.Sum256([]byte(plaintext))
	require.NoError(t, deps.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    tokens.User.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(20 * time.Minute),
	}))

	require.NoError(t, svc.ResetPassword(ctx, plaintext, "brand-new-pass"))

	// Yeni şifre çalışıyor
	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ayse", Password: "brand-new-pass"})
	assert.NoError(t, err)

	// Eski oturum düşürüldü — refresh token geçersiz
	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)

	// Token tek kullanımlık — ikinci reset denemesi başarısız
	err = svc.ResetPassword(ctx, plaintext, "yet-another-pass")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}

// Şifre uzunluk kuralı handler DTO'suna bırakılamaz — service API'si
// doğrudan çağrıldığında da kısa şifre reddedilmeli (ChangePassword ile aynı).
func TestResetPassword_ShortPassword(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "ayse",
		Password: "correct-horse",
		Email:    "ayse@example.com",
	})
	require.NoError(t, err)

	plaintext := "short-pass-reset-token"
	digest := sha256.Sum256([]byte(plaintext))
	require.NoError(t, deps.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    tokens.User.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(20 * time.Minute),
	}))

	err = svc.ResetPassword(ctx, plaintext, "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	// Token harcanmadı — geçerli şifreyle reset hâlâ çalışır
	assert.NoError(t, svc.ResetPassword(ctx, plaintext, "brand-new-pass"))
}

func TestResetPassword_ExpiredToken(t *testing.T) {
	svc, deps := newTestAuthService(t)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, &models.RegisterRequest{
		Username: "ayse",
		Password: "correct-horse",
		Email:    "ayse@example.com",
	})
	require.NoError(t, err)

	plaintext := "expired-token"
	digest := sha256.Sum256([]byte(plaintext))
	require.NoError(t, deps.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    tokens.User.ID,
		TokenHash: hex.EncodeToString(digest[:]),
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	}))

	err = svc.ResetPassword(ctx, plaintext, "brand-new-pass")
	assert.ErrorIs(t, err, pkg.ErrUnauthorized)
}
