package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"gorm.io/gorm"
)

// songViewColumns projects songs LEFT JOIN vtubers onto model.SongView.
const songViewColumns = "songs.id AS id, songs.title AS title, songs.vtuber_id AS vtuber_id, " +
	"vtubers.name AS vtuber_name, vtubers.avatar_url AS vtuber_avatar, " +
	"songs.thumbnail_url AS thumbnail_url, songs.video_url AS video_url, " +
	"songs.duration AS duration, songs.genre AS genre, songs.original_song AS original_song, " +
	"songs.upload_date AS upload_date, songs.view_count AS view_count"

const (
	byViews  = "songs.view_count DESC, songs.id ASC"
	byUpload = "songs.upload_date DESC, songs.id DESC"
)

// songViews starts a query over the joined song rows. extra columns are
// appended to the projection.
func (c *DBClient) songViews(ctx context.Context, extra ...string) *gorm.DB {
	cols := songViewColumns
	if len(extra) > 0 {
		cols += ", " + strings.Join(extra, ", ")
	}
	return c.DB.WithContext(ctx).
		Table("songs").
		Select(cols).
		Joins("LEFT JOIN vtubers ON vtubers.id = songs.vtuber_id")
}

// likePattern escapes LIKE metacharacters in q and wraps it in %...%.
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// ListSongs returns songs newest upload first.
func (c *DBClient) ListSongs(ctx context.Context, limit, offset int) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	err := c.songViews(ctx).Order(byUpload).Limit(limit).Offset(offset).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing songs: %w", err)
	}
	return out, nil
}

func (c *DBClient) GetSong(ctx context.Context, id uint) (*model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	if err := c.songViews(ctx).Where("songs.id = ?", id).Limit(1).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("querying song %d: %w", id, err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

// SearchSongs matches f.Query against title and original song and applies the
// optional exact filters. Results are ordered by view count.
func (c *DBClient) SearchSongs(ctx context.Context, f model.SongFilter) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	q := c.songViews(ctx)
	if f.Query != "" {
		p := likePattern(f.Query)
		q = q.Where(`(songs.title LIKE ? ESCAPE '\' OR songs.original_song LIKE ? ESCAPE '\')`, p, p)
	}
	if f.Genre != "" {
		q = q.Where("songs.genre = ?", f.Genre)
	}
	if f.VTuberID != 0 {
		q = q.Where("songs.vtuber_id = ?", f.VTuberID)
	}
	if f.OriginalSong != "" {
		q = q.Where("songs.original_song = ?", f.OriginalSong)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []model.SongView
	if err := q.Order(byViews).Scan(&out).Error; err != nil {
		return nil, fmt.Errorf("searching songs: %w", err)
	}
	return out, nil
}

func (c *DBClient) SongsByGenre(ctx context.Context, genre string, limit int) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	err := c.songViews(ctx).Where("songs.genre = ?", genre).Order(byUpload).Limit(limit).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing songs of genre %q: %w", genre, err)
	}
	return out, nil
}

// SongsByOriginal lists every cover of the named original song.
func (c *DBClient) SongsByOriginal(ctx context.Context, name string, limit int) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	err := c.songViews(ctx).Where("songs.original_song = ?", name).Order(byViews).Limit(limit).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing covers of %q: %w", name, err)
	}
	return out, nil
}

func (c *DBClient) SongsByVTuber(ctx context.Context, vtuberID uint) ([]model.SongView, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.SongView
	err := c.songViews(ctx).Where("songs.vtuber_id = ?", vtuberID).Order(byUpload).Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing songs of vtuber %d: %w", vtuberID, err)
	}
	return out, nil
}

// Genres returns each distinct genre with its song count, largest first.
func (c *DBClient) Genres(ctx context.Context) ([]model.GenreCount, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var out []model.GenreCount
	err := c.DB.WithContext(ctx).
		Model(&model.Song{}).
		Select("genre, COUNT(*) AS count").
		Group("genre").
		Order("count DESC, genre ASC").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("counting genres: %w", err)
	}
	return out, nil
}

// CreateSong inserts song and bumps its artist's song count in one
// transaction.
func (c *DBClient) CreateSong(ctx context.Context, song *model.Song) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(song).Error; err != nil {
			return fmt.Errorf("creating song: %w", err)
		}
		res := tx.Model(&model.VTuber{}).
			Where("id = ?", song.VTuberID).
			Update("song_count", gorm.Expr("song_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("incrementing song count: %w", res.Error)
		}
		return nil
	})
}

// SongIDByVideoURL looks a stored song up by its media locator.
func (c *DBClient) SongIDByVideoURL(ctx context.Context, videoURL string) (uint, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var song model.Song
	err := c.DB.WithContext(ctx).Select("id").Where("video_url = ?", videoURL).First(&song).Error
	if err != nil {
		return 0, notFound(err, "looking up video url")
	}
	return song.ID, nil
}

// SetViewCount is the only mutation allowed on a stored song.
func (c *DBClient) SetViewCount(ctx context.Context, id uint, views int64) error {
	if err := c.ready(); err != nil {
		return err
	}
	res := c.DB.WithContext(ctx).Model(&model.Song{ID: id}).Update("view_count", views)
	if res.Error != nil {
		return fmt.Errorf("updating view count: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
