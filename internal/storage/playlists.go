package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm"
)

func (c *DBClient) ListPlaylists(ctx context.Context, userID uint) ([]model.Playlist, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.Playlist
	err := c.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	return out, nil
}

func (c *DBClient) GetPlaylist(ctx context.Context, id uint) (*model.Playlist, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var p model.Playlist
	if err := c.DB.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, "querying playlist")
	}
	return &p, nil
}

func (c *DBClient) CreatePlaylist(ctx context.Context, p *model.Playlist) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.DB.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	return nil
}

// UpdatePlaylist applies the non-nil fields of u and returns the fresh row.
func (c *DBClient) UpdatePlaylist(ctx context.Context, id uint, u model.PlaylistUpdate) (*model.Playlist, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if u.Name != nil {
		changes["name"] = *u.Name
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.CoverImageURL != nil {
		changes["cover_image_url"] = *u.CoverImageURL
	}
	if u.IsPublic != nil {
		changes["is_public"] = *u.IsPublic
	}

	if len(changes) > 0 {
		res := c.DB.WithContext(ctx).Model(&model.Playlist{ID: id}).Updates(changes)
		if res.Error != nil {
			return nil, fmt.Errorf("updating playlist %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, ErrNotFound
		}
	}
	return c.GetPlaylist(ctx, id)
}

// DeletePlaylist removes the playlist and its song links together.
func (c *DBClient) DeletePlaylist(ctx context.Context, id uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.PlaylistSong{}).Error; err != nil {
			return fmt.Errorf("deleting playlist songs: %w", err)
		}
		res := tx.Delete(&model.Playlist{}, id)
		if res.Error != nil {
			return fmt.Errorf("deleting playlist: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// PlaylistSongs returns the playlist's songs in position order.
func (c *DBClient) PlaylistSongs(ctx context.Context, playlistID uint) ([]model.PlaylistEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.PlaylistEntry
	err := c.songViews(ctx, "playlist_songs.position AS position", "playlist_songs.added_at AS added_at").
		Joins("INNER JOIN playlist_songs ON playlist_songs.song_id = songs.id").
		Where("playlist_songs.playlist_id = ?", playlistID).
		Order("playlist_songs.position ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing playlist %d songs: %w", playlistID, err)
	}
	return out, nil
}

// AddPlaylistSong appends songID after the current last position (the first
// song gets 1) and returns the position used.
func (c *DBClient) AddPlaylistSong(ctx context.Context, playlistID, songID uint) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}

	var position int
	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&model.PlaylistSong{}).
			Where("playlist_id = ?", playlistID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error
		if err != nil {
			return fmt.Errorf("reading max position: %w", err)
		}

		position = maxPos + 1
		entry := model.PlaylistSong{PlaylistID: playlistID, SongID: songID, Position: position}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("adding song to playlist: %w", err)
		}
		return touchPlaylist(tx, playlistID)
	})
	if err != nil {
		return 0, err
	}
	return position, nil
}

// RemovePlaylistSong unlinks songID. Remaining positions are not renumbered.
func (c *DBClient) RemovePlaylistSong(ctx context.Context, playlistID, songID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("playlist_id = ? AND song_id = ?", playlistID, songID).Delete(&model.PlaylistSong{})
		if res.Error != nil {
			return fmt.Errorf("removing song from playlist: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return touchPlaylist(tx, playlistID)
	})
}

func touchPlaylist(tx *gorm.DB, id uint) error {
	err := tx.Model(&model.Playlist{}).Where("id = ?", id).UpdateColumn("updated_at", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touching playlist: %w", err)
	}
	return nil
}
