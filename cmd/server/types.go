package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/service"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError flattens validator output into one readable message.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
		case "url":
			msgs = append(msgs, field+" must be a URL")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// CreatePlaylistRequest is the request body for POST /api/playlists
type CreatePlaylistRequest struct {
	Name          string  `json:"name" validate:"required,max=255"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	CoverImageURL *string `json:"cover_image_url,omitempty" validate:"omitempty,url"`
	IsPublic      bool    `json:"is_public"`
}

// Validate checks if the request is valid
func (r *CreatePlaylistRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

func (r *CreatePlaylistRequest) input() service.PlaylistInput {
	return service.PlaylistInput{
		Name:          r.Name,
		Description:   r.Description,
		CoverImageURL: r.CoverImageURL,
		IsPublic:      r.IsPublic,
	}
}

// UpdatePlaylistRequest is the request body for PATCH /api/playlists/{id}.
// Absent fields are left unchanged.
type UpdatePlaylistRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	CoverImageURL *string `json:"cover_image_url,omitempty" validate:"omitempty,url"`
	IsPublic      *bool   `json:"is_public,omitempty"`
}

// Validate checks if the request is valid
func (r *UpdatePlaylistRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	if r.update().Empty() {
		return errors.New("no fields to update")
	}
	return nil
}

func (r *UpdatePlaylistRequest) update() model.PlaylistUpdate {
	return model.PlaylistUpdate{
		Name:          r.Name,
		Description:   r.Description,
		CoverImageURL: r.CoverImageURL,
		IsPublic:      r.IsPublic,
	}
}

// SongRefRequest is the body for adding a song to a playlist, the favorites
// or the history.
type SongRefRequest struct {
	SongID uint `json:"song_id" validate:"required,gt=0"`
}

// Validate checks if the request is valid
func (r *SongRefRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationError(err)
	}
	return nil
}

// VTubersResponse is the response for the vtuber list endpoints
type VTubersResponse struct {
	VTubers []model.VTuber `json:"vtubers"`
	Count   int            `json:"count"`
}

// SongsResponse is the response for every song list endpoint
type SongsResponse struct {
	Songs []model.SongView `json:"songs"`
	Count int              `json:"count"`
}

type GenresResponse struct {
	Genres []model.GenreCount `json:"genres"`
}

type TagsResponse struct {
	Tags  []model.Tag `json:"tags"`
	Count int         `json:"count"`
}

type PlaylistsResponse struct {
	Playlists []model.Playlist `json:"playlists"`
	Count     int              `json:"count"`
}

// PlaylistSongsResponse is the response for GET /api/playlists/{id}/songs
type PlaylistSongsResponse struct {
	PlaylistID uint                  `json:"playlist_id"`
	Songs      []model.PlaylistEntry `json:"songs"`
	Count      int                   `json:"count"`
}

// AddPlaylistSongResponse reports where the song landed
type AddPlaylistSongResponse struct {
	PlaylistID uint `json:"playlist_id"`
	SongID     uint `json:"song_id"`
	Position   int  `json:"position"`
}

type FavoritesResponse struct {
	Favorites []model.FavoriteEntry `json:"favorites"`
	Count     int                   `json:"count"`
}

// FavoriteStatusResponse is the response for GET /api/favorites/{songId}
type FavoriteStatusResponse struct {
	SongID   uint `json:"song_id"`
	Favorite bool `json:"favorite"`
}

type HistoryResponse struct {
	History []model.HistoryEntry `json:"history"`
	Count   int                  `json:"count"`
}

// MessageResponse acknowledges a mutation that has no other payload
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Time     string `json:"time"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
