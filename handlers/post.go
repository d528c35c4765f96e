package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/pano/models"
	"github.com/akinalp/pano/pkg"
	"github.com/akinalp/pano/services"
)

// PostHandler, gönderi endpoint'lerini yöneten struct.
type PostHandler struct {
	postService services.PostService
}

// NewPostHandler, constructor.
func NewPostHandler(postService services.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// Create godoc
// POST /api/posts
// Auth gerektirir. Body: { "content": "...", "image_path": "...", "reply_to_id": "..." }
//
// image_path opsiyoneldir — client daha önce /api/upload veya presigned URL
// ile yüklediği dosyanın path'ini gönderir.
// reply_to_id opsiyoneldir — doluysa gönderi bir yanıttır (tek seviye).
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postService.Create(r.Context(), user.ID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, post)
}

// List godoc
// GET /api/posts?before={postId}&limit={n}
// Public — auth gerekmez. Feed yeniden eskiye sıralıdır.
//
// before: cursor, bu gönderiden eskilerini getir (boş → en yeniler)
// limit: sayfa boyutu (varsayılan 20, max 100)
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	beforeID := r.URL.Query().Get("before")

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := h.postService.List(r.Context(), beforeID, limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, page)
}

// Get godoc
// GET /api/posts/{postId}
// Public — auth gerekmez. Yazar, reply_to önizlemesi ve yanıtlarla döner.
func (h *PostHandler) Get(w http.ResponseWriter, r *http.Request) {
	postID := r.PathValue("postId")

	post, err := h.postService.GetByID(r.Context(), postID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, post)
}

// Update godoc
// PUT /api/posts/{postId}
// Auth gerektirir — sadece gönderinin sahibi düzenleyebilir.
// Body: { "content": "...", "image_path": "..." }
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	postID := r.PathValue("postId")

	var req models.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	post, err := h.postService.Update(r.Context(), user.ID, postID, &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, post)
}

// Delete godoc
// DELETE /api/posts/{postId}
// Auth gerektirir — sadece gönderinin sahibi silebilir.
// Gönderiye verilmiş yanıtlar silinmez, bağımsız gönderiye dönüşür.
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	postID := r.PathValue("postId")

	if err := h.postService.Delete(r.Context(), user.ID, postID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
}
