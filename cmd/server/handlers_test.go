package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/seed"
	"github.com/himanishpuri/VTuneDNA/internal/service"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	authn  *auth.Authenticator
}

func setupTestServer(t *testing.T, origins ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.NewDBClientWithPath(filepath.Join(t.TempDir(), "test_server.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to create test DB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	catalog, err := seed.Default()
	require.NoError(t, err)
	_, err = seed.Apply(context.Background(), db, catalog, false)
	require.NoError(t, err)

	authn := auth.NewAuthenticator(testSecret, "vtunedna", time.Hour)
	srv := NewServer(service.NewCatalogService(db), db, authn, config.ServerConfig{AllowedOrigins: origins})
	router, err := srv.setupRoutes()
	require.NoError(t, err)
	return &testServer{router: router, authn: authn}
}

func (ts *testServer) token(t *testing.T, userID uint) string {
	t.Helper()
	tok, err := ts.authn.Issue(userID)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
}

func TestCatalogEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/vtubers", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, decode[VTubersResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/songs?limit=3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[SongsResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/songs/search?q="+"%E5%8D%83%E6%9C%AC%E6%A1%9C", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[SongsResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/songs/genres", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	genres := decode[GenresResponse](t, rec).Genres
	require.NotEmpty(t, genres)
	assert.Equal(t, "cover", genres[0].Genre)

	rec = ts.do(t, http.MethodGet, "/api/songs/genre/original", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[SongsResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/tags", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, decode[TagsResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/songs/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Stellar Stellar")

	rec = ts.do(t, http.MethodGet, "/api/vtubers/1/songs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[SongsResponse](t, rec).Count)
}

func TestRelatedEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	// Song 6 is one of two covers of the same original.
	rec := ts.do(t, http.MethodGet, "/api/songs/6/related?limit=3", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[SongsResponse](t, rec)
	require.Len(t, resp.Songs, 3)
	assert.Equal(t, uint(7), resp.Songs[0].ID)
	for _, s := range resp.Songs {
		assert.NotEqual(t, uint(6), s.ID)
	}

	rec = ts.do(t, http.MethodGet, "/api/songs/9999/related", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"songs":[],"count":0}`, strings.TrimSpace(rec.Body.String()))

	rec = ts.do(t, http.MethodGet, "/api/songs/6/related?limit=51", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadInputAndMissingEntities(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		path string
		code int
	}{
		{"/api/songs/9999", http.StatusNotFound},
		{"/api/vtubers/9999", http.StatusNotFound},
		{"/api/songs/abc", http.StatusBadRequest},
		{"/api/songs/0", http.StatusBadRequest},
		{"/api/songs?limit=-1", http.StatusBadRequest},
		{"/api/songs?offset=x", http.StatusBadRequest},
		{"/api/songs/search?vtuber_id=x", http.StatusBadRequest},
		{"/api/vtubers/search?q=", http.StatusBadRequest},
		{"/api/songs/original", http.StatusBadRequest},
		{"/api/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, tt.path, "", "")
		assert.Equal(t, tt.code, rec.Code, tt.path)
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, tt.code, body.Code, tt.path)
	}
}

func TestProtectedEndpointsRequireIdentity(t *testing.T) {
	ts := setupTestServer(t)

	for _, tok := range []string{"", "not-a-token"} {
		for _, r := range []struct{ method, path, body string }{
			{http.MethodGet, "/api/favorites", ""},
			{http.MethodPost, "/api/favorites", `{"song_id":1}`},
			{http.MethodGet, "/api/favorites/1", ""},
			{http.MethodDelete, "/api/favorites/1", ""},
			{http.MethodGet, "/api/history", ""},
			{http.MethodPost, "/api/history", `{"song_id":1}`},
			{http.MethodGet, "/api/playlists", ""},
			{http.MethodPost, "/api/playlists", `{"name":"x"}`},
			{http.MethodGet, "/api/playlists/1", ""},
			{http.MethodDelete, "/api/playlists/1", ""},
		} {
			rec := ts.do(t, r.method, r.path, r.body, tok)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
		}
	}
}

func TestPlaylistFlow(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.token(t, 1)
	bob := ts.token(t, 2)

	rec := ts.do(t, http.MethodPost, "/api/playlists", `{"name":"Night drive","description":"late"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Night drive", created.Name)
	base := "/api/playlists/" + strconv.FormatUint(uint64(created.ID), 10)

	rec = ts.do(t, http.MethodPost, base+"/songs", `{"song_id":2}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, decode[AddPlaylistSongResponse](t, rec).Position)

	rec = ts.do(t, http.MethodPost, base+"/songs", `{"song_id":5}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, decode[AddPlaylistSongResponse](t, rec).Position)

	rec = ts.do(t, http.MethodPost, base+"/songs", `{"song_id":9999}`, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, base, "", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, base+"/songs", `{"song_id":3}`, bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPatch, base, `{}`, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPatch, base, `{"is_public":true}`, alice)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"/songs", "", bob)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[PlaylistSongsResponse](t, rec)
	require.Equal(t, 2, entries.Count)
	assert.Equal(t, uint(2), entries.Songs[0].ID)

	rec = ts.do(t, http.MethodDelete, base+"/songs/2", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, base+"/songs/2", "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/playlists", "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[PlaylistsResponse](t, rec).Count)

	rec = ts.do(t, http.MethodDelete, base, "", bob)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodDelete, base, "", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, base, "", alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFavoritesAndHistoryFlow(t *testing.T) {
	ts := setupTestServer(t)
	me := ts.token(t, 7)

	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/api/favorites", `{"song_id":3}`, me)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := ts.do(t, http.MethodGet, "/api/favorites", "", me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[FavoritesResponse](t, rec).Count)

	rec = ts.do(t, http.MethodGet, "/api/favorites/3", "", me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[FavoriteStatusResponse](t, rec).Favorite)

	rec = ts.do(t, http.MethodDelete, "/api/favorites/3", "", me)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/favorites/3", "", me)
	assert.False(t, decode[FavoriteStatusResponse](t, rec).Favorite)

	for i := 0; i < 3; i++ {
		rec = ts.do(t, http.MethodPost, "/api/history", `{"song_id":1}`, me)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec = ts.do(t, http.MethodGet, "/api/history?limit=2", "", me)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decode[HistoryResponse](t, rec).Count)

	rec = ts.do(t, http.MethodPost, "/api/history", `{"song_id":0}`, me)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/history", `{"song_id":`, me)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaylistValidation(t *testing.T) {
	ts := setupTestServer(t)
	me := ts.token(t, 1)

	for _, body := range []string{
		`{"name":""}`,
		`{"name":"   "}`,
		`{"name":"` + strings.Repeat("歌", 256) + `"}`,
		`{"name":"ok","description":"` + strings.Repeat("x", 2001) + `"}`,
		`{"name":"ok","cover_image_url":"not a url"}`,
	} {
		rec := ts.do(t, http.MethodPost, "/api/playlists", body, me)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	rec := ts.do(t, http.MethodPost, "/api/playlists", `{"name":"`+strings.Repeat("歌", 255)+`"}`, me)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRequestID(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", "")
	generated := rec.Header().Get(requestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "0b6f2f0c-6a3e-4f57-9b43-1f1c2a9c6d11")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, "0b6f2f0c-6a3e-4f57-9b43-1f1c2a9c6d11", rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "spoofed\nvalue")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.NotEqual(t, "spoofed\nvalue", rec.Header().Get(requestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t, "http://localhost:8081")

	req := httptest.NewRequest(http.MethodOptions, "/api/songs", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8081", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/songs", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	_, err := corsMiddleware([]string{"localhost"})
	assert.Error(t, err)
}
