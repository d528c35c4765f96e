// Package handlers_test — HTTP katmanının uçtan uca testleri.
//
// Neden ayrı paket (handlers_test)?
// middleware paketi handlers'ı import eder (UserContextKey için).
// Testler middleware'ı da kullanır — aynı pakette olsalardı import
// cycle oluşurdu. External test package bu döngüyü kırar.
//
// Testler gerçek bir stack kurar: in-memory SQLite + gerçek service'ler +
// gerçek middleware. Mock yok — httptest ile tam request/response döngüsü.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/pano/database"
	"github.com/akinalp/pano/handlers"
	"github.com/akinalp/pano/middleware"
	"github.com/akinalp/pano/repository"
	"github.com/akinalp/pano/services"
)

// envelope, API response zarfının test tarafı karşılığı.
// Data'yı json.RawMessage tutar — her test kendi tipine decode eder.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// newTestServer, tam bir HTTP stack kurar ve route'ları bağlar.
// Upload'lar t.TempDir()'e yazılır — test bitince otomatik silinir.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := database.New(":memory:", database.EmbeddedMigrations())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := repository.NewSQLiteUserRepo(db.Conn)
	postRepo := repository.NewSQLitePostRepo(db.Conn)
	resetRepo := repository.NewSQLiteResetTokenRepo(db.Conn)

	issuer := services.NewTokenIssuer("test-secret", 15, 7)
	ledger := services.NewRefreshLedger(userRepo)
	authService := services.NewAuthService(db.Conn, userRepo, resetRepo, issuer, ledger, nil)
	postService := services.NewPostService(postRepo)
	uploadService := services.NewUploadService(t.TempDir(), 1024*1024) // 1MB test limiti

	authHandler := handlers.NewAuthHandler(authService, nil) // rate limiter devre dışı
	postHandler := handlers.NewPostHandler(postService)
	uploadHandler := handlers.NewUploadHandler(uploadService, 1024*1024)

	authMw := middleware.NewAuthMiddleware(authService, userRepo)
	auth := func(h http.HandlerFunc) http.Handler {
		return authMw.Require(http.HandlerFunc(h))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/auth/logout", auth(authHandler.Logout))
	mux.Handle("GET /api/users/me", auth(authHandler.Me))
	mux.HandleFunc("GET /api/posts", postHandler.List)
	mux.HandleFunc("GET /api/posts/{postId}", postHandler.Get)
	mux.Handle("POST /api/posts", auth(postHandler.Create))
	mux.Handle("PUT /api/posts/{postId}", auth(postHandler.Update))
	mux.Handle("DELETE /api/posts/{postId}", auth(postHandler.Delete))
	mux.Handle("POST /api/upload", auth(uploadHandler.Upload))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON, JSON body'li bir request atar ve zarfı decode eder.
func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

// registerUser, bir kullanıcı kaydeder ve access token'ını döner.
func registerUser(t *testing.T, srv *httptest.Server, username string) (accessToken, refreshToken string) {
	t.Helper()

	status, env := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, env.Success)

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.AccessToken, data.RefreshToken
}

func TestRegisterAndMe(t *testing.T) {
	srv := newTestServer(t)

	token, _ := registerUser(t, srv, "ayse")

	status, env := doJSON(t, srv, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, status)

	var user struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "ayse", user.Username)
}

func TestRegister_DuplicateReturns409(t *testing.T) {
	srv := newTestServer(t)

	registerUser(t, srv, "ayse")

	status, env := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "ayse",
		"password": "another-pass",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "username already taken")
}

func TestProtectedRoute_WithoutToken(t *testing.T) {
	srv := newTestServer(t)

	status, env := doJSON(t, srv, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)
}

func TestRefreshEndpoint_Rotation(t *testing.T) {
	srv := newTestServer(t)

	_, refresh := registerUser(t, srv, "ayse")

	status, env := doJSON(t, srv, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	require.Equal(t, http.StatusOK, status)

	var pair struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEqual(t, refresh, pair.RefreshToken)

	// Eski token ikinci kez kullanılamaz
	status, _ = doJSON(t, srv, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogoutEndpoint_KillsRefreshToken(t *testing.T) {
	srv := newTestServer(t)

	access, refresh := registerUser(t, srv, "ayse")

	status, _ := doJSON(t, srv, http.MethodPost, "/api/auth/logout", access, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, srv, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": refresh,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

// Feed public'tir — token olmadan okunabilir, ama yazmak auth ister.
func TestFeed_PublicReadAuthenticatedWrite(t *testing.T) {
	srv := newTestServer(t)

	// Anonim yazma denemesi → 401
	status, _ := doJSON(t, srv, http.MethodPost, "/api/posts", "", map[string]string{
		"content": "anonim gönderi",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	token, _ := registerUser(t, srv, "ayse")

	status, env := doJSON(t, srv, http.MethodPost, "/api/posts", token, map[string]string{
		"content": "ilk gönderi",
	})
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	// Anonim feed okuma → 200
	status, env = doJSON(t, srv, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, status)

	var page struct {
		Posts []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
			Author  struct {
				Username string `json:"username"`
			} `json:"author"`
		} `json:"posts"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Posts, 1)
	assert.Equal(t, created.ID, page.Posts[0].ID)
	assert.Equal(t, "ilk gönderi", page.Posts[0].Content)
	assert.Equal(t, "ayse", page.Posts[0].Author.Username)
	assert.False(t, page.HasMore)

	// Anonim tekil gönderi okuma → 200
	status, _ = doJSON(t, srv, http.MethodGet, "/api/posts/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPostUpdate_NonOwnerGets403(t *testing.T) {
	srv := newTestServer(t)

	ayseToken, _ := registerUser(t, srv, "ayse")
	mehmetToken, _ := registerUser(t, srv, "mehmet")

	status, env := doJSON(t, srv, http.MethodPost, "/api/posts", ayseToken, map[string]string{
		"content": "ayse'nin gönderisi",
	})
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	status, _ = doJSON(t, srv, http.MethodPut, "/api/posts/"+created.ID, mehmetToken, map[string]string{
		"content": "başkasının düzenlemesi",
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, srv, http.MethodDelete, "/api/posts/"+created.ID, mehmetToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestFeed_InvalidLimit(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, srv, http.MethodGet, "/api/posts?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, srv, http.MethodGet, "/api/posts?limit=-5", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

// ─── Upload testleri ───

// multipartUpload, "image" field'ı ile multipart request gövdesi üretir.
func multipartUpload(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func doUpload(t *testing.T, srv *httptest.Server, token string, body *bytes.Buffer, contentType string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/upload", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestUpload_AcceptsImage(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "ayse")

	body, ct := multipartUpload(t, "photo.png", "image/png", []byte("fake-png-bytes"))
	status, env := doUpload(t, srv, token, body, ct)
	require.Equal(t, http.StatusCreated, status)

	var data struct {
		ImagePath string `json:"image_path"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, strings.HasPrefix(data.ImagePath, "/api/uploads/image-"))
	assert.True(t, strings.HasSuffix(data.ImagePath, ".png"))

	// İki upload aynı adı ÜRETMEMELİ
	body2, ct2 := multipartUpload(t, "photo.png", "image/png", []byte("fake-png-bytes"))
	_, env2 := doUpload(t, srv, token, body2, ct2)

	var data2 struct {
		ImagePath string `json:"image_path"`
	}
	require.NoError(t, json.Unmarshal(env2.Data, &data2))
	assert.NotEqual(t, data.ImagePath, data2.ImagePath)
}

func TestUpload_RejectsNonImage(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "ayse")

	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("just text"))
	status, env := doUpload(t, srv, token, body, ct)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error, "only image files")
}

func TestUpload_MissingFileReturnsNullPath(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "ayse")

	// "image" field'ı olmayan boş multipart form
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("unrelated", "value"))
	require.NoError(t, writer.Close())

	status, env := doUpload(t, srv, token, &buf, writer.FormDataContentType())
	require.Equal(t, http.StatusCreated, status)

	var data struct {
		ImagePath *string `json:"image_path"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Nil(t, data.ImagePath)
}

func TestUpload_TooLargeReturns413(t *testing.T) {
	srv := newTestServer(t)
	token, _ := registerUser(t, srv, "ayse")

	// Limit 1MB — 2MB'lik içerik gönder
	big := bytes.Repeat([]byte("x"), 2*1024*1024)
	body, ct := multipartUpload(t, "huge.png", "image/png", big)
	status, _ := doUpload(t, srv, token, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}
