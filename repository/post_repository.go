package repository

import (
	"context"

	"github.com/akinalp/pano/models"
)

// PostRepository, gönderi veritabanı işlemleri için interface.
//
// GetByID ve List, gönderileri "hydrate" edilmiş halde döner:
// yazar bilgisi (JOIN), yanıtlanan gönderinin önizlemesi (LEFT JOIN)
// ve yanıt listesi (ikinci sorgu) doldurulmuş olur.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List, cursor-based pagination ile gönderileri getirir (yeniden eskiye).
	// beforeID boşsa en yeni gönderilerden başlar.
	// limit+1 satır çekilir — fazladan satır varsa HasMore=true döner.
	List(ctx context.Context, beforeID string, limit int) (*models.PostPage, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}
