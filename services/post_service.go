package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/repository"
)

// Feed sayfalama sınırları.
const (
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

// PostService, gönderi iş kurallarını yönetir.
//
// Sahiplik hata ayrımı:
//   - Gönderi hiç yok → ErrNotFound (404)
//   - Gönderi var ama başkasının → ErrForbidden (403)
//
// İkisi ayrı tutulur çünkü feed zaten public — gönderinin VARLIĞI gizli
// bilgi değildir, 403 dönmek bilgi sızdırmaz ama client'a doğru sinyal verir.
type PostService interface {
	Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List, feed'i yeniden eskiye getirir. limit 0 → varsayılan (20),
	// üst sınır 100. beforeID boş → en yeni gönderiler.
	List(ctx context.Context, beforeID string, limit int) (*models.PostPage, error)
	Update(ctx context.Context, userID, postID string, req *models.UpdatePostRequest) (*models.Post, error)
	Delete(ctx context.Context, userID, postID string) error
}

// postService, PostService interface'inin implementasyonu.
type postService struct {
	postRepo repository.PostRepository
}

// NewPostService, constructor.
func NewPostService(postRepo repository.PostRepository) PostService {
	return &postService{postRepo: postRepo}
}

// Create, yeni gönderi veya yanıt oluşturur.
//
// Yanıt kuralları (tek seviye):
//  1. Yanıtlanan gönderi var olmalı
//  2. Yanıtlanan gönderi kendisi bir yanıt OLMAMALI — yanıtın yanıtı yok.
//     İstemci bir yanıta cevap vermek isterse reply_to_id olarak yanıtın
//     kendisini değil, üst gönderiyi göndermelidir.
func (s *postService) Create(ctx context.Context, authorID string, req *models.CreatePostRequest) (*models.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	if req.ReplyToID != nil {
		target, err := s.postRepo.GetByID(ctx, *req.ReplyToID)
		if err != nil {
			if errors.Is(err, pkg.ErrNotFound) {
				return nil, fmt.Errorf("%w: post to reply to not found", pkg.ErrNotFound)
			}
			return nil, err
		}
		if target.ReplyToID != nil {
			return nil, fmt.Errorf("%w: cannot reply to a reply", pkg.ErrBadRequest)
		}
	}

	post := &models.Post{
		Content:   req.Content,
		ImagePath: req.ImagePath,
		AuthorID:  authorID,
		ReplyToID: req.ReplyToID,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	// Hydrate edilmiş halini döndür (author, reply_to önizlemesi)
	return s.postRepo.GetByID(ctx, post.ID)
}

func (s *postService) GetByID(ctx context.Context, id string) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *postService) List(ctx context.Context, beforeID string, limit int) (*models.PostPage, error) {
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	return s.postRepo.List(ctx, beforeID, limit)
}

// Update, gönderi içeriğini/görselini değiştirir. Sadece sahibi yapabilir.
// ReplyToID düzenlenemez — yanıt ilişkisi oluşturma anında sabitlenir.
func (s *postService) Update(ctx context.Context, userID, postID string, req *models.UpdatePostRequest) (*models.Post, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", pkg.ErrBadRequest, err.Error())
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err // ErrNotFound → 404
	}

	if post.AuthorID != userID {
		return nil, fmt.Errorf("%w: you can only edit your own posts", pkg.ErrForbidden)
	}

	post.Content = req.Content
	post.ImagePath = req.ImagePath

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, postID)
}

// Delete, gönderiyi siler. Sadece sahibi yapabilir.
// Gönderiye verilmiş yanıtlar silinmez — reply_to_id'leri NULL'lanır.
func (s *postService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err // ErrNotFound → 404
	}

	if post.AuthorID != userID {
		return fmt.Errorf("%w: you can only delete your own posts", pkg.ErrForbidden)
	}

	return s.postRepo.Delete(ctx, postID)
}
