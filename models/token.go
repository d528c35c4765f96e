package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims, JWT token'ın içindeki veriler (payload).
//
// JWT (JSON Web Token) nedir?
// Kullanıcı kimliğini doğrulamak için kullanılan, imzalanmış bir token.
// 3 parçadan oluşur: header.payload.signature
//
// Subject (sub) = username — server her request'te imzayı doğrular,
// DB'ye gitmeden kullanıcının kim olduğunu bilir.
//
// Refresh token'larda RegisteredClaims.ID (jti) dolu gelir:
// "<username>-<unix-ms>-<uuid>" formatında bir teklik işareti.
// Neden gerekli? Refresh token'ın server'daki TEK kalıcı temsili,
// imzalı string'in TAMAMININ hash'idir. Aynı milisaniyede verilen iki
// token byte-byte aynı olsaydı, hash karşılaştırması "güncel" ile
// "bayat" token'ı ayırt edemezdi.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}
