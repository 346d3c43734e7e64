package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/model"
)

// ListHistory returns the user's most recent plays first. Repeated plays of
// the same song each get their own entry.
func (c *DBClient) ListHistory(ctx context.Context, userID uint, limit int) ([]model.HistoryEntry, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.HistoryEntry
	err := c.songViews(ctx, "play_history.played_at AS played_at").
		Joins("INNER JOIN play_history ON play_history.song_id = songs.id").
		Where("play_history.user_id = ?", userID).
		Order("play_history.played_at DESC, play_history.id DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return out, nil
}

func (c *DBClient) AddHistory(ctx context.Context, userID, songID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	entry := model.PlayHistory{UserID: userID, SongID: songID, PlayedAt: time.Now()}
	if err := c.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("adding history: %w", err)
	}
	return nil
}
