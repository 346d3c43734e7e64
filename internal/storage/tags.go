package storage

import (
	"context"
	"fmt"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm/clause"
)

func (c *DBClient) ListTags(ctx context.Context) ([]model.Tag, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.Tag
	if err := c.DB.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return out, nil
}

func (c *DBClient) TagsForSong(ctx context.Context, songID uint) ([]model.Tag, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.Tag
	err := c.DB.WithContext(ctx).
		Table("tags").
		Select("tags.id, tags.name, tags.created_at").
		Joins("INNER JOIN song_tags ON song_tags.tag_id = tags.id").
		Where("song_tags.song_id = ?", songID).
		Order("tags.name ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing tags of song %d: %w", songID, err)
	}
	return out, nil
}

func (c *DBClient) SongsByTag(ctx context.Context, tagID uint) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	err := c.songViews(ctx).
		Joins("INNER JOIN song_tags ON song_tags.song_id = songs.id").
		Where("song_tags.tag_id = ?", tagID).
		Order(byViews).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing songs of tag %d: %w", tagID, err)
	}
	return out, nil
}

// FindOrCreateTag returns the tag with this unique name.
func (c *DBClient) FindOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	tag := model.Tag{Name: name}
	if err := c.DB.WithContext(ctx).Where(model.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
		return nil, fmt.Errorf("find or create tag %q: %w", name, err)
	}
	return &tag, nil
}

// TagSong links a song and a tag; linking twice is a no-op.
func (c *DBClient) TagSong(ctx context.Context, songID, tagID uint) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SongTag{SongID: songID, TagID: tagID}).Error
	if err != nil {
		return fmt.Errorf("tagging song %d: %w", songID, err)
	}
	return nil
}
