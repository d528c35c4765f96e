// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Her handler, ihtiyaç duyduğu service interface'lerini constructor'dan alır.
// Handler'lar "thin" dir — sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/pano/config"
	"github.com/akinalp/pano/handlers"
)

// Handlers, tüm handler instance'larını tutan container struct.
// S3, sadece STORAGE_DRIVER=s3 modunda doludur.
type Handlers struct {
	Auth   *handlers.AuthHandler
	Post   *handlers.PostHandler
	Upload *handlers.UploadHandler
	S3     *handlers.S3Handler
}

// initHandlers, tüm handler'ları service ve rate limiter dependency'leri ile oluşturur.
func initHandlers(svcs *Services, limiters *RateLimiters, cfg *config.Config) *Handlers {
	h := &Handlers{
		Auth:   handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		Post:   handlers.NewPostHandler(svcs.Post),
		Upload: handlers.NewUploadHandler(svcs.Upload, cfg.Upload.MaxSize),
	}

	if svcs.S3 != nil {
		h.S3 = handlers.NewS3Handler(svcs.S3)
	}

	return h
}
