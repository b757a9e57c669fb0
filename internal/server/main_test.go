package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "correct-horse-battery"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:             "test",
		Port:            "0",
		JWTSecret:       "test-secret-that-is-at-least-32-chars",
		DBDriver:        "sqlite",
		DBPath:          ":memory:",
		UploadDir:       t.TempDir(),
		UploadMaxSizeMB: 1,
		PostsPageSize:   config.MaxPostsPageSize,
		AllowedOrigins:  "http://localhost:5173",
	}
}

// newTestServer builds a server backed by an in-memory sqlite database and no Redis.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	s, err := NewServerWithDeps(testConfig(t), db, nil)
	require.NoError(t, err)
	s.userService = service.NewUserService(s.userRepo, bcrypt.MinCost)

	return s, s.NewApp()
}

func jsonRequest(method, path string, body any) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

func register(t *testing.T, app *fiber.App, username string) *http.Response {
	t.Helper()
	return doRequest(t, app, jsonRequest(http.MethodPost, "/register",
		map[string]string{"username": username, "password": testPassword}))
}

// loginCookie registers username and returns its session cookie.
func loginCookie(t *testing.T, app *fiber.App, username string) *http.Cookie {
	t.Helper()
	require.Equal(t, fiber.StatusOK, register(t, app, username).StatusCode)

	resp := doRequest(t, app, jsonRequest(http.MethodPost, "/login",
		map[string]string{"username": username, "password": testPassword}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == "token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func pngCover(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{G: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartRequest builds a form request; file is attached under "file" when non-nil.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, file []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	return namedMultipartRequest(t, method, path, fields, "cover.png", file, cookie)
}

func namedMultipartRequest(t *testing.T, method, path string, fields map[string]string, filename string, file []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if file != nil {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func createPost(t *testing.T, app *fiber.App, cookie *http.Cookie, title string) models.Post {
	t.Helper()
	resp := doRequest(t, app, multipartRequest(t, http.MethodPost, "/post", map[string]string{
		"title":   title,
		"summary": "about " + title,
		"content": "<p>" + title + "</p>",
	}, pngCover(t), cookie))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	return decode[models.Post](t, resp)
}

func seedPosts(t *testing.T, s *Server, author uint, n int) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		post := &models.Post{
			Title:     "post " + strings.Repeat("x", i%3) + string(rune('a'+i%26)),
			Cover:     "uploads/seed.png",
			AuthorID:  author,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, s.db.Create(post).Error)
	}
}
