package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
)

const requestIDHeader = "X-Request-ID"

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() (*gin.Engine, error) {
	corsMW, err := corsMiddleware(s.config.AllowedOrigins)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestIDMiddleware(), s.loggingMiddleware(), corsMW, s.identityMiddleware())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")

	vtubers := api.Group("/vtubers")
	vtubers.GET("", s.handleListVTubers)
	vtubers.GET("/search", s.handleSearchVTubers)
	vtubers.GET("/:id", s.handleGetVTuber)
	vtubers.GET("/:id/songs", s.handleVTuberSongs)

	songs := api.Group("/songs")
	songs.GET("", s.handleListSongs)
	songs.GET("/search", s.handleSearchSongs)
	songs.GET("/genres", s.handleGenres)
	songs.GET("/original", s.handleSongsByOriginal)
	songs.GET("/genre/:genre", s.handleSongsByGenre)
	songs.GET("/:id", s.handleGetSong)
	songs.GET("/:id/related", s.handleRelatedSongs)
	songs.GET("/:id/tags", s.handleSongTags)

	tags := api.Group("/tags")
	tags.GET("", s.handleListTags)
	tags.GET("/:id/songs", s.handleTagSongs)

	playlists := api.Group("/playlists")
	playlists.GET("", s.handleListPlaylists)
	playlists.POST("", s.handleCreatePlaylist)
	playlists.GET("/:id", s.handleGetPlaylist)
	playlists.PATCH("/:id", s.handleUpdatePlaylist)
	playlists.DELETE("/:id", s.handleDeletePlaylist)
	playlists.GET("/:id/songs", s.handlePlaylistSongs)
	playlists.POST("/:id/songs", s.handleAddPlaylistSong)
	playlists.DELETE("/:id/songs/:songId", s.handleRemovePlaylistSong)

	favorites := api.Group("/favorites")
	favorites.GET("", s.handleListFavorites)
	favorites.POST("", s.handleAddFavorite)
	favorites.GET("/:songId", s.handleIsFavorite)
	favorites.DELETE("/:songId", s.handleRemoveFavorite)

	history := api.Group("/history")
	history.GET("", s.handleListHistory)
	history.POST("", s.handleAddHistory)

	r.NoRoute(func(c *gin.Context) {
		s.respondError(c, http.StatusNotFound, "No route for "+c.Request.Method+" "+c.Request.URL.Path)
	})
	return r, nil
}

// corsMiddleware allows every origin when the list is empty or contains "*".
// Credentials are only allowed for an explicit origin list.
func corsMiddleware(allowedOrigins []string) (gin.HandlerFunc, error) {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Requested-With", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        time.Hour,
	}
	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
		cfg.AllowCredentials = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CORS settings: %w", err)
	}
	return cors.New(cfg), nil
}

// requestIDMiddleware keeps a well-formed incoming X-Request-ID or assigns a
// fresh one, and echoes it on the response.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if !utils.ValidUUID(id) {
			id = utils.GenerateUUID()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		line := fmt.Sprintf("%s %s -> %d (%s) from %s [%s]",
			c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Microsecond),
			c.ClientIP(), c.GetString("request_id"))
		switch {
		case status >= http.StatusInternalServerError:
			s.log.Error(line)
		case status >= http.StatusBadRequest:
			s.log.Warn(line)
		default:
			s.log.Info(line)
		}
	}
}

// identityMiddleware resolves an optional bearer token into the request
// context. A bad token is treated as no token; handlers that need an
// identity answer 401 through the service.
func (s *Server) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		id, err := s.auth.FromHeader(header)
		if err != nil {
			s.log.Debugf("Ignoring bearer token: %v", err)
			c.Next()
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// Start serves until ctx is cancelled, then drains in-flight requests for up
// to the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.log.Infof("VTuneDNA server starting on %s", addr)
	s.log.Infof("   CORS Origins: %v", s.config.AllowedOrigins)
	for _, ri := range handler.Routes() {
		s.log.Debugf("   %-7s %s", ri.Method, ri.Path)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.log.Infof("Shutting down (timeout %s)", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
