package handlers

import (
	"errors"
	"net/http"

	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/services"
)

// UploadHandler, yerel disk yükleme endpoint'ini yöneten struct.
// STORAGE_DRIVER=local modunda aktiftir.
type UploadHandler struct {
	uploadService services.UploadService
	maxSize       int64
}

// NewUploadHandler, constructor.
func NewUploadHandler(uploadService services.UploadService, maxSize int64) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		maxSize:       maxSize,
	}
}

// Upload godoc
// POST /api/upload
// Auth gerektirir. multipart/form-data, field adı: "image"
//
// Dosya YOLLANMAMIŞSA hata değildir — { "image_path": null } döner.
// Client görselsiz gönderi atarken de aynı akışı kullanabilir.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// MaxBytesReader: body'yi limit+overhead'de keser — devasa upload'lar
	// diske/belleğe yazılmadan reddedilir. Multipart overhead'i için pay bırakılır.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+1024*1024)

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			pkg.Error(w, pkg.ErrTooLarge)
			return
		}
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			// Dosya yok — null path ile başarılı dön
			pkg.JSON(w, http.StatusCreated, map[string]any{"image_path": nil})
			return
		}
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid image field")
		return
	}
	defer file.Close()

	imagePath, err := h.uploadService.Upload(file, header)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, map[string]string{"image_path": imagePath})
}
