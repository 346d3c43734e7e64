package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm/clause"
)

func (c *DBClient) ListFavorites(ctx context.Context, userID uint) ([]model.FavoriteEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.FavoriteEntry
	err := c.songViews(ctx, "favorites.created_at AS favorited_at").
		Joins("INNER JOIN favorites ON favorites.song_id = songs.id").
		Where("favorites.user_id = ?", userID).
		Order("favorites.created_at DESC, favorites.id DESC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	return out, nil
}

// AddFavorite records (userID, songID). Adding an existing pair keeps the
// original row and timestamp.
func (c *DBClient) AddFavorite(ctx context.Context, userID, songID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	fav := model.Favorite{UserID: userID, SongID: songID, CreatedAt: time.Now()}
	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "song_id"}},
			DoNothing: true,
		}).
		Create(&fav).Error
	if err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}
	return nil
}

func (c *DBClient) RemoveFavorite(ctx context.Context, userID, songID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.DB.WithContext(ctx).
		Where("user_id = ? AND song_id = ?", userID, songID).
		Delete(&model.Favorite{}).Error
	if err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	return nil
}

func (c *DBClient) IsFavorite(ctx context.Context, userID, songID uint) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	var n int64
	err := c.DB.WithContext(ctx).
		Model(&model.Favorite{}).
		Where("user_id = ? AND song_id = ?", userID, songID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return n > 0, nil
}
