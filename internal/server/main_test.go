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
	"net/url"
	"strings"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "test-secret-key-12345678901234567890123456789012"
	testPassword = "correct-horse-battery"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testServer struct {
	srv   *Server
	app   *fiber.App
	db    *gorm.DB
	store *storage.LocalStorage
}

// newTestServer builds the full middleware and route stack over SQLite and local storage.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: t.TempDir(), URLPrefix: "/media"})
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                 "test",
		JWTSecret:           testSecret,
		FeedCacheTTLSeconds: 300,
		ImageMaxDimension:   64,
	}
	srv, err := NewServerWithDeps(cfg, db, nil, store)
	require.NoError(t, err)

	app := fiber.New()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	return &testServer{srv: srv, app: app, db: db, store: store}
}

func (ts *testServer) createUser(t *testing.T, username string, admin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: string(hash),
		IsAdmin:  admin,
	}
	require.NoError(t, ts.db.Create(u).Error)
	return u
}

func (ts *testServer) createGroup(t *testing.T, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug}
	require.NoError(t, ts.db.Create(g).Error)
	return g
}

func (ts *testServer) createPost(t *testing.T, author *models.User, group *models.Group, minutes int) *models.Post {
	t.Helper()
	p := &models.Post{
		Text:     "post by " + author.Username,
		AuthorID: author.ID,
		PubDate:  baseTime.Add(time.Duration(minutes) * time.Minute),
	}
	if group != nil {
		p.GroupID = &group.ID
	}
	require.NoError(t, ts.db.Create(p).Error)
	return p
}

func tokenFor(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := middleware.GenerateToken(testSecret, u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (ts *testServer) postForm(t *testing.T, path string, form url.Values, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", fiber.MIMEApplicationForm)
	return ts.do(t, req, token)
}

func (ts *testServer) postJSON(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return ts.do(t, req, token)
}

// renderedPage mirrors the JSONRenderer envelope.
type renderedPage struct {
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

func decodePage(t *testing.T, resp *http.Response) renderedPage {
	t.Helper()
	var page renderedPage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	return page
}

// pageObj extracts the paginator fields from a rendered listing.
func (p renderedPage) pageObj(t *testing.T) map[string]any {
	t.Helper()
	obj, ok := p.Context["page_obj"].(map[string]any)
	require.True(t, ok, "page_obj missing from %s", p.Template)
	return obj
}

func (p renderedPage) formErrors(t *testing.T) map[string]any {
	t.Helper()
	f, ok := p.Context["form"].(map[string]any)
	require.True(t, ok, "form missing from %s", p.Template)
	errs, _ := f["errors"].(map[string]any)
	return errs
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartPost(t *testing.T, path string, fields map[string]string, img []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if img != nil {
		part, err := w.CreateFormFile("image", "picture.png")
		require.NoError(t, err)
		_, err = part.Write(img)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
