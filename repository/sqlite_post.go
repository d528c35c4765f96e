package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akinalp/pano/database"
	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
)

// sqlitePostRepo, PostRepository interface'inin SQLite implementasyonu.
type sqlitePostRepo struct {
	db database.TxQuerier
}

// NewSQLitePostRepo, constructor — interface döner.
func NewSQLitePostRepo(db database.TxQuerier) PostRepository {
	return &sqlitePostRepo{db: db}
}

func (r *sqlitePostRepo) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}

	query := `
		INSERT INTO posts (id, content, image_path, author_id, reply_to_id)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		post.ID,
		post.Content,
		post.ImagePath,
		post.AuthorID,
		post.ReplyToID,
	).Scan(&post.CreatedAt, &post.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

func (r *sqlitePostRepo) GetByID(ctx context.Context, id string) (*models.Post, error) {
	// Gönderiyi yazar bilgisi ve yanıtlanan gönderinin önizlemesiyle getir.
	// Yazar için INNER JOIN — author_id FK CASCADE ile silinir, orphan post olamaz.
	// reply_to için LEFT JOIN — yanıtlanan gönderi silinmişse reply_to_id NULL'lanır (FK SET NULL).
	query := `
		SELECT p.id, p.content, p.image_path, p.author_id, p.reply_to_id, p.created_at, p.updated_at,
		       u.username,
		       rt.id, rt.content, rt.image_path, rt.created_at, rtu.username
		FROM posts p
		JOIN users u ON p.author_id = u.id
		LEFT JOIN posts rt ON p.reply_to_id = rt.id
		LEFT JOIN users rtu ON rt.author_id = rtu.id
		WHERE p.id = ?`

	post := &models.Post{}
	var authorUsername string
	var rtID, rtContent, rtImagePath, rtUsername sql.NullString
	var rtCreatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&post.ID, &post.Content, &post.ImagePath, &post.AuthorID, &post.ReplyToID,
		&post.CreatedAt, &post.UpdatedAt,
		&authorUsername,
		&rtID, &rtContent, &rtImagePath, &rtCreatedAt, &rtUsername,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post by id: %w", err)
	}

	post.Author = &models.PostAuthor{Username: authorUsername}
	if rtID.Valid {
		post.ReplyTo = buildPostRef(rtID, rtContent, rtImagePath, rtCreatedAt, rtUsername)
	}

	// Yanıtları ayrı sorguyla doldur
	replies, err := r.loadReplies(ctx, []string{post.ID})
	if err != nil {
		return nil, err
	}
	post.Replies = replies[post.ID]
	if post.Replies == nil {
		post.Replies = []models.PostRef{}
	}

	return post, nil
}

// List, cursor-based pagination ile gönderileri getirir.
//
// Sorgu mantığı:
// 1. beforeID boşsa → en yeni gönderilerden başla
// 2. beforeID doluysa → cursor gönderisinin (created_at, id) değerinden öncekileri getir
// 3. ORDER BY created_at DESC, id DESC → en yeniden eskiye, aynı saniyede deterministik
// 4. limit+1 satır çek — fazladan satır geldiyse HasMore=true, fazlalığı at
//
// Row-value karşılaştırması "(p.created_at, p.id) < (...)" aynı saniyede oluşturulmuş
// gönderilerde satır atlamayı/tekrarını önler (SQLite 3.15+).
func (r *sqlitePostRepo) List(ctx context.Context, beforeID string, limit int) (*models.PostPage, error) {
	var query string
	var args []any

	selectCols := `
		SELECT p.id, p.content, p.image_path, p.author_id, p.reply_to_id, p.created_at, p.updated_at,
		       u.username,
		       rt.id, rt.content, rt.image_path, rt.created_at, rtu.username
		FROM posts p
		JOIN users u ON p.author_id = u.id
		LEFT JOIN posts rt ON p.reply_to_id = rt.id
		LEFT JOIN users rtu ON rt.author_id = rtu.id`

	if beforeID == "" {
		// İlk sayfa — en yeni gönderilerden başla
		query = selectCols + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`
		args = []any{limit + 1}
	} else {
		// Eski gönderileri yükle — cursor'dan öncekiler.
		// Subquery, cursor gönderisinin (created_at, id) çiftini bulur.
		// Cursor gönderisi silinmişse subquery boş döner ve sonuç boş sayfa olur.
		query = selectCols + `
		WHERE (p.created_at, p.id) < (SELECT created_at, id FROM posts WHERE id = ?)
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ?`
		args = []any{beforeID, limit + 1}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close() // Önemli: rows'u kapatmayı ASLA unutma — aksi halde bağlantı sızar (leak)

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		var authorUsername string
		var rtID, rtContent, rtImagePath, rtUsername sql.NullString
		var rtCreatedAt sql.NullTime

		if err := rows.Scan(
			&post.ID, &post.Content, &post.ImagePath, &post.AuthorID, &post.ReplyToID,
			&post.CreatedAt, &post.UpdatedAt,
			&authorUsername,
			&rtID, &rtContent, &rtImagePath, &rtCreatedAt, &rtUsername,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}

		post.Author = &models.PostAuthor{Username: authorUsername}
		if rtID.Valid {
			post.ReplyTo = buildPostRef(rtID, rtContent, rtImagePath, rtCreatedAt, rtUsername)
		}
		post.Replies = []models.PostRef{}

		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	// limit+1 trick: fazladan satır geldiyse daha eski sayfa var demektir
	hasMore := len(posts) > limit
	if hasMore {
		posts = posts[:limit]
	}

	// Yanıtları tek sorguyla topla (sayfa başına N+1 sorgu yerine 1)
	if len(posts) > 0 {
		ids := make([]string, len(posts))
		for i := range posts {
			ids[i] = posts[i].ID
		}

		replies, err := r.loadReplies(ctx, ids)
		if err != nil {
			return nil, err
		}

		for i := range posts {
			if rs, ok := replies[posts[i].ID]; ok {
				posts[i].Replies = rs
			}
		}
	}

	return &models.PostPage{Posts: posts, HasMore: hasMore}, nil
}

func (r *sqlitePostRepo) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts SET content = ?, image_path = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, post.Content, post.ImagePath, post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

func (r *sqlitePostRepo) Delete(ctx context.Context, id string) error {
	// Bu gönderiye verilmiş yanıtların reply_to_id'si FK ON DELETE SET NULL
	// ile NULL'lanır — yanıtlar silinmez, bağımsız gönderiye dönüşür.
	query := `DELETE FROM posts WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}

	return nil
}

// loadReplies, verilen gönderi ID'lerine ait tüm yanıtları tek sorguyla
// getirir ve parent ID'ye göre gruplar. Yanıtlar eskiden yeniye sıralıdır.
func (r *sqlitePostRepo) loadReplies(ctx context.Context, parentIDs []string) (map[string][]models.PostRef, error) {
	// IN clause için placeholder'ları dinamik oluştur: "?, ?, ?"
	placeholders := strings.Repeat("?, ", len(parentIDs)-1) + "?"
	args := make([]any, len(parentIDs))
	for i, id := range parentIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT p.reply_to_id, p.id, p.content, p.image_path, p.created_at, u.username
		FROM posts p
		JOIN users u ON p.author_id = u.id
		WHERE p.reply_to_id IN (%s)
		ORDER BY p.created_at ASC, p.id ASC`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load replies: %w", err)
	}
	defer rows.Close()

	replies := make(map[string][]models.PostRef)
	for rows.Next() {
		var parentID string
		var ref models.PostRef
		var username string

		if err := rows.Scan(&parentID, &ref.ID, &ref.Content, &ref.ImagePath, &ref.CreatedAt, &username); err != nil {
			return nil, fmt.Errorf("failed to scan reply row: %w", err)
		}

		ref.Author = &models.PostAuthor{Username: username}
		replies[parentID] = append(replies[parentID], ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reply rows: %w", err)
	}

	return replies, nil
}

// buildPostRef, nullable scan sonuçlarından reply_to önizlemesi oluşturur.
func buildPostRef(id, content, imagePath sql.NullString, createdAt sql.NullTime, username sql.NullString) *models.PostRef {
	ref := &models.PostRef{
		ID:        id.String,
		Content:   content.String,
		CreatedAt: createdAt.Time,
	}
	if imagePath.Valid {
		v := imagePath.String
		ref.ImagePath = &v
	}
	if username.Valid {
		ref.Author = &models.PostAuthor{Username: username.String}
	}
	return ref
}
