package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const dateLayout = "2006-01-02"

type Catalog struct {
	DefaultThumbnail string   `yaml:"default_thumbnail"`
	VTubers          []VTuber `yaml:"vtubers"`
	Tags             []string `yaml:"tags"`
	Songs            []Song   `yaml:"songs"`
}

type VTuber struct {
	Name        string `yaml:"name"`
	AvatarURL   string `yaml:"avatar_url"`
	ChannelURL  string `yaml:"channel_url"`
	Description string `yaml:"description"`
}

type Song struct {
	Title        string   `yaml:"title"`
	VTuber       string   `yaml:"vtuber"`
	ThumbnailURL string   `yaml:"thumbnail_url"`
	VideoURL     string   `yaml:"video_url"`
	Duration     int      `yaml:"duration"`
	Genre        string   `yaml:"genre"`
	OriginalSong string   `yaml:"original_song"`
	UploadDate   string   `yaml:"upload_date"`
	ViewCount    int64    `yaml:"view_count"`
	Tags         []string `yaml:"tags"`
}

// Store is the write side the seeder needs. *storage.DBClient implements it.
type Store interface {
	ClearAll(ctx context.Context) error
	FindOrCreateVTuber(ctx context.Context, name, avatarURL, channelURL string) (*model.VTuber, bool, error)
	FindOrCreateTag(ctx context.Context, name string) (*model.Tag, error)
	SongIDByVideoURL(ctx context.Context, videoURL string) (uint, error)
	CreateSong(ctx context.Context, song *model.Song) error
	TagSong(ctx context.Context, songID, tagID uint) error
	RecountSongs(ctx context.Context) error
}

var _ Store = (*storage.DBClient)(nil)

// Result counts what Apply wrote.
type Result struct {
	VTubers int
	Tags    int
	Songs   int
	Skipped int
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every song names a declared vtuber and tag and
// carries a usable date.
func (c *Catalog) Validate() error {
	vtubers := make(map[string]bool, len(c.VTubers))
	for _, v := range c.VTubers {
		if v.Name == "" {
			return errors.New("catalog: vtuber without a name")
		}
		vtubers[v.Name] = true
	}
	tags := make(map[string]bool, len(c.Tags))
	for _, t := range c.Tags {
		tags[t] = true
	}

	for i, s := range c.Songs {
		switch {
		case s.Title == "":
			return fmt.Errorf("catalog: song %d has no title", i)
		case s.VideoURL == "":
			return fmt.Errorf("catalog: song %q has no video_url", s.Title)
		case !vtubers[s.VTuber]:
			return fmt.Errorf("catalog: song %q references unknown vtuber %q", s.Title, s.VTuber)
		}
		if _, err := time.Parse(dateLayout, s.UploadDate); err != nil {
			return fmt.Errorf("catalog: song %q: bad upload_date %q", s.Title, s.UploadDate)
		}
		for _, t := range s.Tags {
			if !tags[t] {
				return fmt.Errorf("catalog: song %q references unknown tag %q", s.Title, t)
			}
		}
	}
	return nil
}

// Apply writes c through store. With reset set every existing row is
// deleted first; otherwise songs whose video_url is already stored are
// skipped. Artist song counts are recomputed at the end.
func Apply(ctx context.Context, store Store, c *Catalog, reset bool) (Result, error) {
	log := logger.Named("seed")
	var res Result

	if reset {
		log.Info("Cleaning up existing data")
		if err := store.ClearAll(ctx); err != nil {
			return res, err
		}
	}

	vtuberIDs := make(map[string]uint, len(c.VTubers))
	for _, v := range c.VTubers {
		row, created, err := store.FindOrCreateVTuber(ctx, v.Name, v.AvatarURL, v.ChannelURL)
		if err != nil {
			return res, err
		}
		if created {
			res.VTubers++
		}
		vtuberIDs[v.Name] = row.ID
	}

	tagIDs := make(map[string]uint, len(c.Tags))
	for _, name := range c.Tags {
		tag, err := store.FindOrCreateTag(ctx, name)
		if err != nil {
			return res, err
		}
		tagIDs[name] = tag.ID
	}
	res.Tags = len(tagIDs)

	for _, s := range c.Songs {
		if _, err := store.SongIDByVideoURL(ctx, s.VideoURL); err == nil {
			res.Skipped++
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return res, err
		}

		song := s.model(vtuberIDs[s.VTuber], c.DefaultThumbnail)
		if err := store.CreateSong(ctx, song); err != nil {
			return res, err
		}
		for _, t := range s.Tags {
			if err := store.TagSong(ctx, song.ID, tagIDs[t]); err != nil {
				return res, err
			}
		}
		res.Songs++
	}

	if err := store.RecountSongs(ctx); err != nil {
		return res, err
	}
	log.Infof("Seeded %d vtubers, %d tags, %d songs (%d skipped)", res.VTubers, res.Tags, res.Songs, res.Skipped)
	return res, nil
}

func (s Song) model(vtuberID uint, defaultThumb string) *model.Song {
	uploaded, _ := time.Parse(dateLayout, s.UploadDate)
	thumb := s.ThumbnailURL
	if thumb == "" {
		thumb = defaultThumb
	}
	song := &model.Song{
		Title:        s.Title,
		VTuberID:     vtuberID,
		ThumbnailURL: thumb,
		VideoURL:     s.VideoURL,
		Duration:     s.Duration,
		Genre:        s.Genre,
		UploadDate:   uploaded,
		ViewCount:    s.ViewCount,
	}
	if s.OriginalSong != "" {
		orig := s.OriginalSong
		song.OriginalSong = &orig
	}
	return song
}
