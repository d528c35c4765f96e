package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/services"
)

// S3Handler, presigned URL endpoint'ini yöneten struct.
// STORAGE_DRIVER=s3 modunda aktiftir — local modda route hiç register edilmez.
type S3Handler struct {
	s3Service services.S3Service
}

// NewS3Handler, constructor.
func NewS3Handler(s3Service services.S3Service) *S3Handler {
	return &S3Handler{s3Service: s3Service}
}

// PresignedURL godoc
// POST /api/upload/presigned-url
// Auth gerektirir. Body: { "file_extension": "png", "content_type": "image/png" }
//
// Dosya byte'ları server'a HİÇ gelmez: client dönen upload_url'e doğrudan
// PUT atar, sonra image_path'i gönderide kullanır.
func (h *S3Handler) PresignedURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileExtension string `json:"file_extension"`
		ContentType   string `json:"content_type"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileExtension == "" || req.ContentType == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file_extension and content_type are required")
		return
	}

	upload, err := h.s3Service.GeneratePresignedURL(r.Context(), req.FileExtension, req.ContentType)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, upload)
}
