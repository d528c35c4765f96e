package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/pano/database"
	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/repository"
)

func newTestPostService(t *testing.T) (PostService, repository.UserRepository) {
	t.Helper()

	db, err := database.New(":memory:", database.EmbeddedMigrations())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	postRepo := repository.NewSQLitePostRepo(db.Conn)

	return NewPostService(postRepo), userRepo
}

func createUser(t *testing.T, userRepo repository.UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		PasswordHash: "irrelevant-for-post-tests",
	}
	require.NoError(t, userRepo.Create(context.Background(), user))
	return user
}

func TestPostCreate_HydratesAuthor(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")

	post, err := svc.Create(context.Background(), user.ID, &models.CreatePostRequest{
		Content: "merhaba pano",
	})
	require.NoError(t, err)
	assert.Equal(t, "merhaba pano", post.Content)
	require.NotNil(t, post.Author)
	assert.Equal(t, "ayse", post.Author.Username)
	assert.Nil(t, post.ReplyTo)
	assert.Empty(t, post.Replies)
}

func TestPostCreate_EmptyContent(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")

	_, err := svc.Create(context.Background(), user.ID, &models.CreatePostRequest{
		Content: "   ",
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestPostCreate_ReplyToMissingPost(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")

	missing := "01234567-89ab-cdef-0123-456789abcdef"
	_, err := svc.Create(context.Background(), user.ID, &models.CreatePostRequest{
		Content:   "yanıt",
		ReplyToID: &missing,
	})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

// Yanıtın yanıtı olmaz — reply zinciri tek seviyedir.
func TestPostCreate_ReplyToReplyRejected(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")
	ctx := context.Background()

	parent, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{Content: "ana gönderi"})
	require.NoError(t, err)

	reply, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{
		Content:   "ilk yanıt",
		ReplyToID: &parent.ID,
	})
	require.NoError(t, err)

	_, err = svc.Create(ctx, user.ID, &models.CreatePostRequest{
		Content:   "yanıtın yanıtı",
		ReplyToID: &reply.ID,
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestPostGet_WithReplyHydration(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	ayse := createUser(t, userRepo, "ayse")
	mehmet := createUser(t, userRepo, "mehmet")
	ctx := context.Background()

	parent, err := svc.Create(ctx, ayse.ID, &models.CreatePostRequest{Content: "ana gönderi"})
	require.NoError(t, err)

	reply, err := svc.Create(ctx, mehmet.ID, &models.CreatePostRequest{
		Content:   "yanıt",
		ReplyToID: &parent.ID,
	})
	require.NoError(t, err)

	// Yanıt, yanıtlanan gönderinin önizlemesini taşır
	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, parent.ID, reply.ReplyTo.ID)
	require.NotNil(t, reply.ReplyTo.Author)
	assert.Equal(t, "ayse", reply.ReplyTo.Author.Username)

	// Ana gönderi, yanıt listesini taşır
	got, err := svc.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, got.Replies, 1)
	assert.Equal(t, reply.ID, got.Replies[0].ID)
	assert.Equal(t, "mehmet", got.Replies[0].Author.Username)
}

func TestPostUpdate_Ownership(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	ayse := createUser(t, userRepo, "ayse")
	mehmet := createUser(t, userRepo, "mehmet")
	ctx := context.Background()

	post, err := svc.Create(ctx, ayse.ID, &models.CreatePostRequest{Content: "orijinal"})
	require.NoError(t, err)

	// Başkasının gönderisi → 403
	_, err = svc.Update(ctx, mehmet.ID, post.ID, &models.UpdatePostRequest{Content: "ele geçirildi"})
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	// Olmayan gönderi → 404
	_, err = svc.Update(ctx, ayse.ID, "01234567-89ab-cdef-0123-456789abcdef",
		&models.UpdatePostRequest{Content: "hiçlik"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	// Sahibi → başarılı
	updated, err := svc.Update(ctx, ayse.ID, post.ID, &models.UpdatePostRequest{Content: "düzenlendi"})
	require.NoError(t, err)
	assert.Equal(t, "düzenlendi", updated.Content)
}

func TestPostDelete_Ownership(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	ayse := createUser(t, userRepo, "ayse")
	mehmet := createUser(t, userRepo, "mehmet")
	ctx := context.Background()

	post, err := svc.Create(ctx, ayse.ID, &models.CreatePostRequest{Content: "silinecek"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, mehmet.ID, post.ID), pkg.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, ayse.ID, "01234567-89ab-cdef-0123-456789abcdef"), pkg.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, ayse.ID, post.ID))

	_, err = svc.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

// Gönderi silinince yanıtları SİLİNMEZ — bağımsız gönderiye dönüşür.
func TestPostDelete_DetachesReplies(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")
	ctx := context.Background()

	parent, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{Content: "ana gönderi"})
	require.NoError(t, err)

	reply, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{
		Content:   "yanıt",
		ReplyToID: &parent.ID,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, user.ID, parent.ID))

	got, err := svc.GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ReplyToID)
	assert.Nil(t, got.ReplyTo)
}

func TestPostList_PaginationIntegrity(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")
	ctx := context.Background()

	const total = 25
	for i := 0; i < total; i++ {
		_, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{
			Content: fmt.Sprintf("gönderi %d", i),
		})
		require.NoError(t, err)
	}

	// İlk sayfa
	page1, err := svc.List(ctx, "", 20)
	require.NoError(t, err)
	assert.Len(t, page1.Posts, 20)
	assert.True(t, page1.HasMore)

	// İkinci sayfa — cursor son gönderinin ID'si
	cursor := page1.Posts[len(page1.Posts)-1].ID
	page2, err := svc.List(ctx, cursor, 20)
	require.NoError(t, err)
	assert.Len(t, page2.Posts, 5)
	assert.False(t, page2.HasMore)

	// Sayfalar arasında ne atlama ne tekrar olmalı
	seen := make(map[string]bool)
	for _, p := range append(page1.Posts, page2.Posts...) {
		assert.False(t, seen[p.ID], "duplicate post %s across pages", p.ID)
		seen[p.ID] = true
	}
	assert.Len(t, seen, total)
}

func TestPostList_DefaultAndMaxLimit(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{
			Content: fmt.Sprintf("gönderi %d", i),
		})
		require.NoError(t, err)
	}

	// limit 0 → varsayılan 20
	page, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 20)

	// limit > 100 → 100'e kırpılır (25 gönderi varken hepsi döner)
	page, err = svc.List(ctx, "", 500)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 25)
	assert.False(t, page.HasMore)
}

// Silinmiş cursor → boş sayfa (hata değil)
func TestPostList_DeletedCursor(t *testing.T) {
	svc, userRepo := newTestPostService(t)
	user := createUser(t, userRepo, "ayse")
	ctx := context.Background()

	_, err := svc.Create(ctx, user.ID, &models.CreatePostRequest{Content: "tek gönderi"})
	require.NoError(t, err)

	page, err := svc.List(ctx, "01234567-89ab-cdef-0123-456789abcdef", 20)
	require.NoError(t, err)
	assert.Empty(t, page.Posts)
	assert.False(t, page.HasMore)
}
