// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ı burada tanımlıdır:
//   - auth: JWT token doğrulaması (Bearer access token)
package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/akinalp/pano/config"
	"github.com/akinalp/pano/middleware"
	"github.com/akinalp/pano/repository"
	"github.com/akinalp/pano/services"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Go 1.22 router method + path pattern'larını
// en-spesifik-kazanır kuralıyla eşler; "/api/posts" ile "/api/posts/{postId}"
// çakışmaz.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authService services.AuthService,
	userRepo repository.UserRepository,
	cfg *config.Config,
) {
	// ─── Middleware ───
	authMw := middleware.NewAuthMiddleware(authService, userRepo)

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(handler))
	}

	// Health check
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","service":"pano"}`)
	})

	// Auth — public endpoint'ler (token gerekmez)
	mux.HandleFunc("POST /api/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", h.Auth.Refresh)
	mux.Handle("POST /api/auth/logout", auth(h.Auth.Logout))
	mux.HandleFunc("POST /api/auth/forgot-password", h.Auth.ForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", h.Auth.ResetPassword)

	// User — kendi hesabı
	mux.Handle("GET /api/users/me", auth(h.Auth.Me))
	mux.Handle("POST /api/users/me/password", auth(h.Auth.ChangePassword))
	mux.Handle("PUT /api/users/me/email", auth(h.Auth.ChangeEmail))

	// Posts — feed ve tekil gönderi okuma PUBLIC, yazma işlemleri auth ister
	mux.HandleFunc("GET /api/posts", h.Post.List)
	mux.HandleFunc("GET /api/posts/{postId}", h.Post.Get)
	mux.Handle("POST /api/posts", auth(h.Post.Create))
	mux.Handle("PUT /api/posts/{postId}", auth(h.Post.Update))
	mux.Handle("DELETE /api/posts/{postId}", auth(h.Post.Delete))

	// Upload — storage driver'a göre tek varyant aktiftir
	if h.S3 != nil {
		// S3 modu: server dosya byte'ı almaz, presigned URL verir
		mux.Handle("POST /api/upload/presigned-url", auth(h.S3.PresignedURL))
	} else {
		// Local mod: multipart upload + statik dosya sunumu
		mux.Handle("POST /api/upload", auth(h.Upload.Upload))

		// Static file serving — yüklenen görsellere erişim
		//
		// http.StripPrefix: URL'den "/api/uploads/" kısmını çıkarır.
		// http.FileServer: Kalan path'i upload dizininde dosya olarak arar.
		// Örnek: GET /api/uploads/image-a1b2c3.png → ./data/uploads/image-a1b2c3.png
		//
		// Path traversal koruması:
		// http.FileServer zaten ".." path'lerini reddeder.
		// Ek güvenlik için sadece dosya isimlerini kabul edip subdirectory'leri reddediyoruz.
		fileServer := http.FileServer(http.Dir(cfg.Upload.Dir))
		uploadsHandler := http.StripPrefix("/api/uploads/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.Contains(r.URL.Path, "/") || strings.Contains(r.URL.Path, "\\") {
				http.NotFound(w, r)
				return
			}
			fileServer.ServeHTTP(w, r)
		}))
		mux.Handle("GET /api/uploads/", uploadsHandler)
	}
}
