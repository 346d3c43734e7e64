package storage

import (
	"context"
	"fmt"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm"
)

// The queries below back the related-songs tiers. Each returns at most limit
// songs ordered by view count and never returns an id listed in exclude.

func (c *DBClient) SongsWithOriginal(ctx context.Context, original string, exclude []uint, limit int) ([]model.SongView, error) {
	return c.relatedTier(ctx, "songs.original_song = ?", original, exclude, limit)
}

func (c *DBClient) SongsWithVTuber(ctx context.Context, vtuberID uint, exclude []uint, limit int) ([]model.SongView, error) {
	return c.relatedTier(ctx, "songs.vtuber_id = ?", vtuberID, exclude, limit)
}

func (c *DBClient) SongsWithGenre(ctx context.Context, genre string, exclude []uint, limit int) ([]model.SongView, error) {
	return c.relatedTier(ctx, "songs.genre = ?", genre, exclude, limit)
}

func (c *DBClient) relatedTier(ctx context.Context, cond string, key any, exclude []uint, limit int) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	q := c.songViews(ctx).Where(cond, key)
	q = excludeIDs(q, exclude)

	var out []model.SongView
	if err := q.Order(byViews).Limit(limit).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("related tier (%s): %w", cond, err)
	}
	return out, nil
}

func excludeIDs(q *gorm.DB, ids []uint) *gorm.DB {
	if len(ids) == 0 {
		return q
	}
	return q.Where("songs.id NOT IN ?", ids)
}
