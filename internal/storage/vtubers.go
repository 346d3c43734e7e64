package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm"
)

// ListVTubers returns every artist, most prolific first.
func (c *DBClient) ListVTubers(ctx context.Context) ([]model.VTuber, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.VTuber
	if err := c.DB.WithContext(ctx).Order("song_count DESC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing vtubers: %w", err)
	}
	return out, nil
}

func (c *DBClient) GetVTuber(ctx context.Context, id uint) (*model.VTuber, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var v model.VTuber
	if err := c.DB.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err, "querying vtuber")
	}
	return &v, nil
}

func (c *DBClient) SearchVTubers(ctx context.Context, query string, limit int) ([]model.VTuber, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.VTuber
	err := c.DB.WithContext(ctx).
		Where(`name LIKE ? ESCAPE '\'`, likePattern(query)).
		Order("song_count DESC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("searching vtubers: %w", err)
	}
	return out, nil
}

func (c *DBClient) CreateVTuber(ctx context.Context, v *model.VTuber) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.DB.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("creating vtuber: %w", err)
	}
	return nil
}

// FindOrCreateVTuber returns the artist called name, creating it with the
// given avatar and channel when absent.
func (c *DBClient) FindOrCreateVTuber(ctx context.Context, name, avatarURL, channelURL string) (*model.VTuber, bool, error) {
	if err := c.ready(); err != nil {
		return nil, false, err
	}

	var v model.VTuber
	err := c.DB.WithContext(ctx).Where("name = ?", name).First(&v).Error
	if err == nil {
		return &v, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("querying vtuber %q: %w", name, err)
	}

	v = model.VTuber{Name: name}
	if avatarURL != "" {
		v.AvatarURL = &avatarURL
	}
	if channelURL != "" {
		v.ChannelURL = &channelURL
	}
	if err := c.CreateVTuber(ctx, &v); err != nil {
		return nil, false, err
	}
	return &v, true, nil
}

// RecountSongs recomputes every artist's denormalized song count.
func (c *DBClient) RecountSongs(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.DB.WithContext(ctx).Exec(
		"UPDATE vtubers SET song_count = (SELECT COUNT(*) FROM songs WHERE songs.vtuber_id = vtubers.id)",
	).Error
	if err != nil {
		return fmt.Errorf("recounting songs: %w", err)
	}
	return nil
}
