package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Post, bir gönderiyi temsil eder.
// DB'deki "posts" tablosunun Go karşılığı.
//
// Author, ReplyTo ve Replies alanları JOIN/ek sorgularla doldurulur —
// veritabanında ayrı satırlardadır ama API response'unda birlikte döner.
// Bu sayede frontend tek istekle gönderi + yazar + yanıtları alır.
type Post struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	ImagePath *string    `json:"image_path"` // Nullable — opak path/object key, varlığı doğrulanmaz
	AuthorID  string     `json:"author_id"`
	ReplyToID *string    `json:"reply_to_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Author    *PostAuthor `json:"author,omitempty"`   // JOIN ile gelen yazar bilgisi
	ReplyTo   *PostRef    `json:"reply_to,omitempty"` // Yanıtlanan gönderinin önizlemesi
	Replies   []PostRef   `json:"replies"`            // Bu gönderiye verilen yanıtlar (eskiden yeniye)
}

// PostAuthor, response'larda dönen minimal yazar bilgisi.
// Tam User struct'ı yerine sadece username — email gibi alanlar sızmaz.
type PostAuthor struct {
	Username string `json:"username"`
}

// PostRef, bir gönderinin kısaltılmış hali — reply_to önizlemesi ve
// replies listesi için kullanılır. Yanıtın yanıtı olmaz (tek seviye),
// bu yüzden PostRef kendi içinde ReplyTo/Replies taşımaz.
type PostRef struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	ImagePath *string     `json:"image_path"`
	CreatedAt time.Time   `json:"created_at"`
	Author    *PostAuthor `json:"author,omitempty"`
}

// PostPage, cursor-based pagination (sayfalama) sonucu.
//
// Offset-based ("LIMIT 20 OFFSET 100") yerine "bu ID'den önceki 20 gönderiyi
// getir" kullanılır. Avantajı: yeni gönderi eklendiğinde sayfa kayması olmaz.
type PostPage struct {
	Posts   []Post `json:"posts"`
	HasMore bool   `json:"has_more"` // Daha eski gönderiler var mı?
}

// maxPostContentLen, gönderi içeriği için üst sınır (rune cinsinden).
const maxPostContentLen = 25000

// CreatePostRequest, yeni gönderi oluşturma isteği.
//
// ImagePath client'ın daha önce /api/upload veya presigned URL ile
// yüklediği dosyanın referansıdır — opak string olarak saklanır,
// storage'da gerçekten var mı diye KONTROL EDİLMEZ (kabul edilen boşluk).
type CreatePostRequest struct {
	Content   string  `json:"content"`
	ImagePath *string `json:"image_path"`
	ReplyToID *string `json:"reply_to_id"`
}

// Validate, CreatePostRequest'in geçerli olup olmadığını kontrol eder.
func (r *CreatePostRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("post content is required")
	}
	if contentLen > maxPostContentLen {
		return fmt.Errorf("post content must be at most %d characters", maxPostContentLen)
	}

	if r.ReplyToID != nil {
		if _, err := uuid.Parse(*r.ReplyToID); err != nil {
			return fmt.Errorf("reply_to_id must be a valid UUID")
		}
	}

	return nil
}

// UpdatePostRequest, gönderi düzenleme isteği.
// ReplyToID düzenlenemez — yanıt ilişkisi oluşturma anında sabitlenir.
type UpdatePostRequest struct {
	Content   string  `json:"content"`
	ImagePath *string `json:"image_path"`
}

// Validate, UpdatePostRequest'in geçerli olup olmadığını kontrol eder.
func (r *UpdatePostRequest) Validate() error {
	r.Content = strings.TrimSpace(r.Content)
	contentLen := utf8.RuneCountInString(r.Content)
	if contentLen < 1 {
		return fmt.Errorf("post content is required")
	}
	if contentLen > maxPostContentLen {
		return fmt.Errorf("post content must be at most %d characters", maxPostContentLen)
	}
	return nil
}
