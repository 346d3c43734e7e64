package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/service"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service *service.CatalogService
	db      *storage.DBClient
	auth    *auth.Authenticator
	config  config.ServerConfig
	log     *logger.Logger
	http    *http.Server
}

// NewServer creates a new server instance
func NewServer(svc *service.CatalogService, db *storage.DBClient, authn *auth.Authenticator, cfg config.ServerConfig) *Server {
	return &Server{
		service: svc,
		db:      db,
		auth:    authn,
		config:  cfg,
		log:     logger.Named("http"),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

// respondError writes an error response and stops the handler chain
func (s *Server) respondError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// respondServiceError maps a service error onto its HTTP status.
func (s *Server) respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		s.respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		s.respondError(c, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, service.ErrForbidden):
		s.respondError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		s.respondError(c, http.StatusNotFound, "Resource not found")
	default:
		s.log.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		s.respondError(c, http.StatusInternalServerError, "Internal server error")
	}
}

// pathID parses a positive numeric path parameter, answering 400 otherwise.
func (s *Server) pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		s.respondError(c, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return 0, false
	}
	return uint(id), true
}

// queryInt parses an optional integer query parameter; absent means 0.
func (s *Server) queryInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		s.respondError(c, http.StatusBadRequest, "Invalid "+name+": "+raw)
		return 0, false
	}
	return n, true
}

// bindJSON decodes the body into req and runs its Validate method.
func (s *Server) bindJSON(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.respondError(c, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func (s *Server) songs(c *gin.Context, songs []model.SongView, err error) {
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	songs = orEmpty(songs)
	s.respondJSON(c, http.StatusOK, SongsResponse{Songs: songs, Count: len(songs)})
}

// handleRoot handles GET /
func (s *Server) handleRoot(c *gin.Context) {
	s.respondJSON(c, http.StatusOK, gin.H{
		"service": "VTuneDNA API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"health":    "GET /health",
			"vtubers":   "GET /api/vtubers",
			"songs":     "GET /api/songs",
			"search":    "GET /api/songs/search?q=",
			"related":   "GET /api/songs/{id}/related",
			"tags":      "GET /api/tags",
			"playlists": "GET /api/playlists",
			"favorites": "GET /api/favorites",
			"history":   "GET /api/history",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Database: "ok", Time: time.Now().Format(time.RFC3339)}
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log.Warnf("Health check: database ping failed: %v", err)
		resp.Status = "degraded"
		resp.Database = "unreachable"
		s.respondJSON(c, http.StatusServiceUnavailable, resp)
		return
	}
	s.respondJSON(c, http.StatusOK, resp)
}

// VTubers

func (s *Server) handleListVTubers(c *gin.Context) {
	vtubers, err := s.service.ListVTubers(c.Request.Context())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	vtubers = orEmpty(vtubers)
	s.respondJSON(c, http.StatusOK, VTubersResponse{VTubers: vtubers, Count: len(vtubers)})
}

func (s *Server) handleSearchVTubers(c *gin.Context) {
	vtubers, err := s.service.SearchVTubers(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	vtubers = orEmpty(vtubers)
	s.respondJSON(c, http.StatusOK, VTubersResponse{VTubers: vtubers, Count: len(vtubers)})
}

func (s *Server) handleGetVTuber(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	v, err := s.service.GetVTuber(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if v == nil {
		s.respondError(c, http.StatusNotFound, "VTuber not found")
		return
	}
	s.respondJSON(c, http.StatusOK, v)
}

func (s *Server) handleVTuberSongs(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	songs, err := s.service.VTuberSongs(c.Request.Context(), id)
	s.songs(c, songs, err)
}

// Songs

func (s *Server) handleListSongs(c *gin.Context) {
	limit, ok := s.queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := s.queryInt(c, "offset")
	if !ok {
		return
	}
	songs, err := s.service.ListSongs(c.Request.Context(), limit, offset)
	s.songs(c, songs, err)
}

func (s *Server) handleSearchSongs(c *gin.Context) {
	f := model.SongFilter{
		Query:        strings.TrimSpace(c.Query("q")),
		Genre:        c.Query("genre"),
		OriginalSong: c.Query("original_song"),
	}
	var ok bool
	if f.Limit, ok = s.queryInt(c, "limit"); !ok {
		return
	}
	if f.Offset, ok = s.queryInt(c, "offset"); !ok {
		return
	}
	if raw := c.Query("vtuber_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, "Invalid vtuber_id: "+raw)
			return
		}
		f.VTuberID = uint(id)
	}
	songs, err := s.service.SearchSongs(c.Request.Context(), f)
	s.songs(c, songs, err)
}

func (s *Server) handleSongsByGenre(c *gin.Context) {
	limit, ok := s.queryInt(c, "limit")
	if !ok {
		return
	}
	songs, err := s.service.SongsByGenre(c.Request.Context(), c.Param("genre"), limit)
	s.songs(c, songs, err)
}

func (s *Server) handleSongsByOriginal(c *gin.Context) {
	songs, err := s.service.SongsByOriginal(c.Request.Context(), strings.TrimSpace(c.Query("name")))
	s.songs(c, songs, err)
}

func (s *Server) handleGenres(c *gin.Context) {
	genres, err := s.service.Genres(c.Request.Context())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, GenresResponse{Genres: orEmpty(genres)})
}

func (s *Server) handleGetSong(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	song, err := s.service.GetSong(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if song == nil {
		s.respondError(c, http.StatusNotFound, "Song not found")
		return
	}
	s.respondJSON(c, http.StatusOK, song)
}

func (s *Server) handleRelatedSongs(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	limit, ok := s.queryInt(c, "limit")
	if !ok {
		return
	}
	songs, err := s.service.RelatedSongs(c.Request.Context(), id, limit)
	s.songs(c, songs, err)
}

func (s *Server) handleSongTags(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	tags, err := s.service.SongTags(c.Request.Context(), id)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	tags = orEmpty(tags)
	s.respondJSON(c, http.StatusOK, TagsResponse{Tags: tags, Count: len(tags)})
}

// Tags

func (s *Server) handleListTags(c *gin.Context) {
	tags, err := s.service.ListTags(c.Request.Context())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	tags = orEmpty(tags)
	s.respondJSON(c, http.StatusOK, TagsResponse{Tags: tags, Count: len(tags)})
}

func (s *Server) handleTagSongs(c *gin.Context) {
	id, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	songs, err := s.service.TagSongs(c.Request.Context(), id)
	s.songs(c, songs, err)
}

// Playlists

func (s *Server) handleListPlaylists(c *gin.Context) {
	ctx := c.Request.Context()
	playlists, err := s.service.ListPlaylists(ctx, auth.FromContext(ctx))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	playlists = orEmpty(playlists)
	s.respondJSON(c, http.StatusOK, PlaylistsResponse{Playlists: playlists, Count: len(playlists)})
}

func (s *Server) handleCreatePlaylist(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)
	if id == nil {
		s.respondServiceError(c, service.ErrUnauthorized)
		return
	}
	var req CreatePlaylistRequest
	if !s.bindJSON(c, &req) {
		return
	}
	p, err := s.service.CreatePlaylist(ctx, id, req.input())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, p)
}

func (s *Server) handleGetPlaylist(c *gin.Context) {
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := s.service.GetPlaylist(ctx, auth.FromContext(ctx), pid)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	if p == nil {
		s.respondError(c, http.StatusNotFound, "Playlist not found")
		return
	}
	s.respondJSON(c, http.StatusOK, p)
}

func (s *Server) handleUpdatePlaylist(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)
	if id == nil {
		s.respondServiceError(c, service.ErrUnauthorized)
		return
	}
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePlaylistRequest
	if !s.bindJSON(c, &req) {
		return
	}
	p, err := s.service.UpdatePlaylist(ctx, id, pid, req.update())
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, p)
}

func (s *Server) handleDeletePlaylist(c *gin.Context) {
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.service.DeletePlaylist(ctx, auth.FromContext(ctx), pid); err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, MessageResponse{Message: "Playlist deleted"})
}

func (s *Server) handlePlaylistSongs(c *gin.Context) {
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	entries, err := s.service.PlaylistSongs(ctx, auth.FromContext(ctx), pid)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	entries = orEmpty(entries)
	s.respondJSON(c, http.StatusOK, PlaylistSongsResponse{PlaylistID: pid, Songs: entries, Count: len(entries)})
}

func (s *Server) handleAddPlaylistSong(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)
	if id == nil {
		s.respondServiceError(c, service.ErrUnauthorized)
		return
	}
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	var req SongRefRequest
	if !s.bindJSON(c, &req) {
		return
	}
	pos, err := s.service.AddPlaylistSong(ctx, id, pid, req.SongID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, AddPlaylistSongResponse{PlaylistID: pid, SongID: req.SongID, Position: pos})
}

func (s *Server) handleRemovePlaylistSong(c *gin.Context) {
	pid, ok := s.pathID(c, "id")
	if !ok {
		return
	}
	songID, ok := s.pathID(c, "songId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.service.RemovePlaylistSong(ctx, auth.FromContext(ctx), pid, songID); err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, MessageResponse{Message: "Song removed from playlist"})
}

// Favorites

func (s *Server) handleListFavorites(c *gin.Context) {
	ctx := c.Request.Context()
	favs, err := s.service.ListFavorites(ctx, auth.FromContext(ctx))
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	favs = orEmpty(favs)
	s.respondJSON(c, http.StatusOK, FavoritesResponse{Favorites: favs, Count: len(favs)})
}

func (s *Server) handleAddFavorite(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)
	if id == nil {
		s.respondServiceError(c, service.ErrUnauthorized)
		return
	}
	var req SongRefRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.service.AddFavorite(ctx, id, req.SongID); err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, FavoriteStatusResponse{SongID: req.SongID, Favorite: true})
}

func (s *Server) handleIsFavorite(c *gin.Context) {
	songID, ok := s.pathID(c, "songId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	fav, err := s.service.IsFavorite(ctx, auth.FromContext(ctx), songID)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, FavoriteStatusResponse{SongID: songID, Favorite: fav})
}

func (s *Server) handleRemoveFavorite(c *gin.Context) {
	songID, ok := s.pathID(c, "songId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if err := s.service.RemoveFavorite(ctx, auth.FromContext(ctx), songID); err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusOK, FavoriteStatusResponse{SongID: songID, Favorite: false})
}

// History

func (s *Server) handleListHistory(c *gin.Context) {
	limit, ok := s.queryInt(c, "limit")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	hist, err := s.service.ListHistory(ctx, auth.FromContext(ctx), limit)
	if err != nil {
		s.respondServiceError(c, err)
		return
	}
	hist = orEmpty(hist)
	s.respondJSON(c, http.StatusOK, HistoryResponse{History: hist, Count: len(hist)})
}

func (s *Server) handleAddHistory(c *gin.Context) {
	ctx := c.Request.Context()
	id := auth.FromContext(ctx)
	if id == nil {
		s.respondServiceError(c, service.ErrUnauthorized)
		return
	}
	var req SongRefRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.service.AddHistory(ctx, id, req.SongID); err != nil {
		s.respondServiceError(c, err)
		return
	}
	s.respondJSON(c, http.StatusCreated, MessageResponse{Message: "Play recorded"})
}
