package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/pano/config"
	"github.com/akinalp/pano/pkg"
)

// newTestS3Service, statik credential'larla bir presign client kurar.
// Presign imzalama tamamen lokaldir — hiçbir network çağrısı yapılmaz,
// URL üretimi test edilebilir.
func newTestS3Service(t *testing.T) S3Service {
	t.Helper()

	svc, err := NewS3Service(context.Background(), config.S3Config{
		Region:    "us-east-1",
		AccessKey: "test-access-key",
		SecretKey: "test-secret-key",
		Endpoint:  "http://localhost:9000",
		Bucket:    "pano-test",
	})
	require.NoError(t, err)
	return svc
}

func TestGeneratePresignedURL_Success(t *testing.T) {
	svc := newTestS3Service(t)

	upload, err := svc.GeneratePresignedURL(context.Background(), "png", "image/png")
	require.NoError(t, err)

	// Key formatı: posts/<unix-ms>-<uuid>.<ext>
	assert.True(t, strings.HasPrefix(upload.ImagePath, "posts/"))
	assert.True(t, strings.HasSuffix(upload.ImagePath, ".png"))

	// URL bucket'ı ve key'i taşımalı (path-style: /bucket/key)
	assert.Contains(t, upload.UploadURL, "pano-test")
	assert.Contains(t, upload.UploadURL, upload.ImagePath)
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature")
}

func TestGeneratePresignedURL_UniqueKeys(t *testing.T) {
	svc := newTestS3Service(t)

	first, err := svc.GeneratePresignedURL(context.Background(), "jpg", "image/jpeg")
	require.NoError(t, err)
	second, err := svc.GeneratePresignedURL(context.Background(), "jpg", "image/jpeg")
	require.NoError(t, err)

	assert.NotEqual(t, first.ImagePath, second.ImagePath)
}

// Uzantı key'e giren tek kullanıcı girdisidir — alfanumerik dışı her şey
// reddedilir, "?", "/", ".." gibi karakterler key'e asla ulaşamaz.
func TestGeneratePresignedURL_RejectsBadExtension(t *testing.T) {
	svc := newTestS3Service(t)

	for _, ext := range []string{"p?ng", "png/../../etc", "", ".", "pn g"} {
		_, err := svc.GeneratePresignedURL(context.Background(), ext, "image/png")
		require.Error(t, err, "extension %q kabul edilmemeliydi", ext)
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	}
}

func TestGeneratePresignedURL_RejectsNonImageContentType(t *testing.T) {
	svc := newTestS3Service(t)

	_, err := svc.GeneratePresignedURL(context.Background(), "png", "text/plain")
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

// Başında nokta olan uzantı ("." dahil client'lar gönderir) normalize edilir.
func TestGeneratePresignedURL_NormalizesExtension(t *testing.T) {
	svc := newTestS3Service(t)

	upload, err := svc.GeneratePresignedURL(context.Background(), ".PNG", "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(upload.ImagePath, ".png"))
}
