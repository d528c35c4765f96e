package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/akinalp/pano/pkg"
)

// UploadService, yerel disk dosya yükleme iş mantığı interface'i.
//
// Upload başarılı olursa dosyanın public path'ini döner
// (ör: "/api/uploads/image-a1b2c3d4e5f6.png"). Client bu path'i
// gönderi oluştururken image_path olarak kullanır.
type UploadService interface {
	Upload(file multipart.File, header *multipart.FileHeader) (string, error)
}

type uploadService struct {
	uploadDir string
	maxSize   int64
}

// NewUploadService, constructor.
func NewUploadService(uploadDir string, maxSize int64) UploadService {
	return &uploadService{
		uploadDir: uploadDir,
		maxSize:   maxSize,
	}
}

// allowedImageTypes, yüklemeye izin verilen görsel türleri.
// Sadece görseller — video/doküman yüklemesi yok.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// extensionByMime, orijinal dosya adında uzantı yoksa MIME type'tan uzantı türetir.
var extensionByMime = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload, görseli doğrular ve diske benzersiz bir adla kaydeder.
//
// Dosya adı "image-<random_hex><ext>" formatındadır — orijinal dosya adı
// HİÇ kullanılmaz. Path traversal ve çakışma riski bu sayede sıfırlanır:
// kullanıcının verdiği hiçbir string diske yazılan path'e girmez.
func (s *uploadService) Upload(file multipart.File, header *multipart.FileHeader) (string, error) {
	// Boyut kontrolü — 413 Payload Too Large
	if header.Size > s.maxSize {
		return "", fmt.Errorf("%w: file too large (max %dMB)", pkg.ErrTooLarge, s.maxSize/(1024*1024))
	}

	// MIME type kontrolü
	contentType := header.Header.Get("Content-Type")
	mimeBase := strings.TrimSpace(strings.Split(contentType, ";")[0])

	if !allowedImageTypes[mimeBase] {
		return "", fmt.Errorf("%w: only image files are allowed", pkg.ErrBadRequest)
	}

	// Uzantı: önce orijinal dosya adından, yoksa MIME type'tan
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = extensionByMime[mimeBase]
	}

	// Benzersiz dosya adı: image-<12 hex karakter><ext>
	randomBytes := make([]byte, 6)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random filename: %w", err)
	}
	diskFilename := "image-" + hex.EncodeToString(randomBytes) + ext

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Dosyayı diske kaydet
	destPath := filepath.Join(s.uploadDir, diskFilename)
	destFile, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, file); err != nil {
		// Hata durumunda yarım dosyayı temizle
		os.Remove(destPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return "/api/uploads/" + diskFilename, nil
}
