package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/model"
)

// Every method in this file requires an identity and returns ErrUnauthorized
// before touching the store when there is none.

type PlaylistInput struct {
	Name          string
	Description   *string
	CoverImageURL *string
	IsPublic      bool
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("name must not be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return invalid("name longer than %d characters", MaxNameLength)
	}
	return nil
}

func validateDescription(d *string) error {
	if d != nil && len([]rune(*d)) > MaxDescription {
		return invalid("description longer than %d characters", MaxDescription)
	}
	return nil
}

// ownedPlaylist loads playlistID and checks that id may modify it.
func (s *CatalogService) ownedPlaylist(ctx context.Context, id *auth.Identity, playlistID uint) (*model.Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	if p.UserID != id.UserID {
		return nil, fmt.Errorf("%w: playlist %d belongs to another user", ErrForbidden, playlistID)
	}
	return p, nil
}

// visiblePlaylist loads playlistID if id owns it or it is public.
func (s *CatalogService) visiblePlaylist(ctx context.Context, id *auth.Identity, playlistID uint) (*model.Playlist, error) {
	p, err := s.store.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.UserID != id.UserID && !p.IsPublic {
		return nil, fmt.Errorf("%w: playlist %d is private", ErrForbidden, playlistID)
	}
	return p, nil
}

// Playlists

func (s *CatalogService) ListPlaylists(ctx context.Context, id *auth.Identity) ([]model.Playlist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, id.UserID)
}

// GetPlaylist returns nil, nil when the playlist does not exist.
func (s *CatalogService) GetPlaylist(ctx context.Context, id *auth.Identity, playlistID uint) (*model.Playlist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	p, err := s.visiblePlaylist(ctx, id, playlistID)
	return absent(p, err)
}

func (s *CatalogService) CreatePlaylist(ctx context.Context, id *auth.Identity, in PlaylistInput) (*model.Playlist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	if err := validateDescription(in.Description); err != nil {
		return nil, err
	}

	p := &model.Playlist{
		UserID:        id.UserID,
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		CoverImageURL: in.CoverImageURL,
		IsPublic:      in.IsPublic,
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	s.log.Infof("user %d created playlist %d", id.UserID, p.ID)
	return p, nil
}

func (s *CatalogService) UpdatePlaylist(ctx context.Context, id *auth.Identity, playlistID uint, u model.PlaylistUpdate) (*model.Playlist, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*u.Name)
		u.Name = &trimmed
	}
	if err := validateDescription(u.Description); err != nil {
		return nil, err
	}
	if _, err := s.ownedPlaylist(ctx, id, playlistID); err != nil {
		return nil, err
	}

	p, err := s.store.UpdatePlaylist(ctx, playlistID, u)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return p, nil
}

func (s *CatalogService) DeletePlaylist(ctx context.Context, id *auth.Identity, playlistID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if _, err := s.ownedPlaylist(ctx, id, playlistID); err != nil {
		return err
	}
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return mapStoreErr(err)
	}
	s.log.Infof("user %d deleted playlist %d", id.UserID, playlistID)
	return nil
}

func (s *CatalogService) PlaylistSongs(ctx context.Context, id *auth.Identity, playlistID uint) ([]model.PlaylistEntry, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if _, err := s.visiblePlaylist(ctx, id, playlistID); err != nil {
		return nil, mapStoreErr(err)
	}
	return s.store.PlaylistSongs(ctx, playlistID)
}

// AddPlaylistSong appends songID and returns its position.
func (s *CatalogService) AddPlaylistSong(ctx context.Context, id *auth.Identity, playlistID, songID uint) (int, error) {
	if err := requireIdentity(id); err != nil {
		return 0, err
	}
	if _, err := s.ownedPlaylist(ctx, id, playlistID); err != nil {
		return 0, err
	}
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return 0, mapStoreErr(err)
	}
	return s.store.AddPlaylistSong(ctx, playlistID, songID)
}

func (s *CatalogService) RemovePlaylistSong(ctx context.Context, id *auth.Identity, playlistID, songID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if _, err := s.ownedPlaylist(ctx, id, playlistID); err != nil {
		return err
	}
	return mapStoreErr(s.store.RemovePlaylistSong(ctx, playlistID, songID))
}

// Favorites

func (s *CatalogService) ListFavorites(ctx context.Context, id *auth.Identity) ([]model.FavoriteEntry, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.store.ListFavorites(ctx, id.UserID)
}

// AddFavorite is idempotent.
func (s *CatalogService) AddFavorite(ctx context.Context, id *auth.Identity, songID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return mapStoreErr(err)
	}
	return s.store.AddFavorite(ctx, id.UserID, songID)
}

func (s *CatalogService) RemoveFavorite(ctx context.Context, id *auth.Identity, songID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	return s.store.RemoveFavorite(ctx, id.UserID, songID)
}

func (s *CatalogService) IsFavorite(ctx context.Context, id *auth.Identity, songID uint) (bool, error) {
	if err := requireIdentity(id); err != nil {
		return false, err
	}
	return s.store.IsFavorite(ctx, id.UserID, songID)
}

// History

func (s *CatalogService) ListHistory(ctx context.Context, id *auth.Identity, limit int) ([]model.HistoryEntry, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.store.ListHistory(ctx, id.UserID, clamp(limit, DefaultHistory, MaxHistory))
}

func (s *CatalogService) AddHistory(ctx context.Context, id *auth.Identity, songID uint) error {
	if err := requireIdentity(id); err != nil {
		return err
	}
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return mapStoreErr(err)
	}
	return s.store.AddHistory(ctx, id.UserID, songID)
}
