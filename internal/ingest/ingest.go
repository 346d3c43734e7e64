package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
)

const unknownArtist = "Unknown Artist"

// Store is the write side ingestion needs. *storage.DBClient implements it.
type Store interface {
	FindOrCreateVTuber(ctx context.Context, name, avatarURL, channelURL string) (*model.VTuber, bool, error)
	SongIDByVideoURL(ctx context.Context, videoURL string) (uint, error)
	SetViewCount(ctx context.Context, id uint, views int64) error
	CreateSong(ctx context.Context, song *model.Song) error
}

var _ Store = (*storage.DBClient)(nil)

// Report totals one Run.
type Report struct {
	Queries    int
	Found      int
	Added      int
	Refreshed  int
	NewVTubers int
	Failed     int
}

func (r Report) String() string {
	return fmt.Sprintf("%d queries, %d videos found, %d added, %d refreshed, %d new vtubers, %d failed",
		r.Queries, r.Found, r.Added, r.Refreshed, r.NewVTubers, r.Failed)
}

type Ingester struct {
	provider      Provider
	store         Store
	maxResults    int
	delay         time.Duration
	defaultAvatar string
	now           func() time.Time
	log           *logger.Logger
}

func NewIngester(p Provider, store Store, cfg config.IngestConfig) *Ingester {
	return &Ingester{
		provider:      p,
		store:         store,
		maxResults:    cfg.MaxResults,
		delay:         cfg.Delay,
		defaultAvatar: cfg.DefaultAvatar,
		now:           time.Now,
		log:           logger.Named("ingest"),
	}
}

// NewProvider builds the provider selected by cfg.Ingest.Provider.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.Ingest.Provider {
	case "", "youtube":
		return NewYouTubeClient(cfg.YouTube), nil
	case "ytdlp":
		return NewYtdlpProvider(cfg.Ingest.YtdlpPath), nil
	default:
		return nil, fmt.Errorf("unknown ingest provider %q", cfg.Ingest.Provider)
	}
}

// Run searches every query and stores the hits. A failing query is logged
// and counted. Run stops early on a missing API key, a cancelled ctx or a
// store failure.
func (in *Ingester) Run(ctx context.Context, queries []string) (Report, error) {
	var rep Report
	for i, q := range queries {
		if i > 0 && in.delay > 0 {
			select {
			case <-ctx.Done():
				return rep, ctx.Err()
			case <-time.After(in.delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		rep.Queries++
		in.log.Infof("searching for %q", q)
		videos, err := in.provider.Search(ctx, q, in.maxResults)
		if err != nil {
			if errors.Is(err, ErrNoAPIKey) {
				return rep, err
			}
			in.log.Errorf("query %q failed: %v", q, err)
			rep.Failed++
			continue
		}
		if len(videos) == 0 {
			in.log.Warnf("no videos found for %q", q)
			continue
		}
		rep.Found += len(videos)

		for _, v := range videos {
			if err := in.save(ctx, v, &rep); err != nil {
				return rep, err
			}
		}
	}
	in.log.Infof("ingest finished: %s", rep)
	return rep, nil
}

// save writes a single video, refreshing the view count when the video is
// already catalogued.
func (in *Ingester) save(ctx context.Context, v Video, rep *Report) error {
	videoURL := utils.CanonicalVideoURL(v.VideoURL)
	if videoURL == "" {
		videoURL = utils.WatchURL(v.ID)
	}

	existing, err := in.store.SongIDByVideoURL(ctx, videoURL)
	switch {
	case err == nil:
		if err := in.store.SetViewCount(ctx, existing, v.ViewCount); err != nil {
			return fmt.Errorf("refreshing %s: %w", videoURL, err)
		}
		in.log.Debugf("refreshed view count of %q", v.Title)
		rep.Refreshed++
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	artist := strings.TrimSpace(v.ChannelTitle)
	if artist == "" {
		artist = unknownArtist
	}
	avatar := v.ThumbnailURL
	if avatar == "" {
		avatar = in.defaultAvatar
	}
	vt, created, err := in.store.FindOrCreateVTuber(ctx, artist, avatar, utils.ChannelURL(v.ChannelID))
	if err != nil {
		return err
	}
	if created {
		rep.NewVTubers++
		in.log.Infof("new vtuber %q", artist)
	}

	song := &model.Song{
		Title:        v.Title,
		VTuberID:     vt.ID,
		ThumbnailURL: v.ThumbnailURL,
		VideoURL:     videoURL,
		Duration:     v.Duration,
		Genre:        Genre(v.Title),
		UploadDate:   v.PublishedAt,
		ViewCount:    v.ViewCount,
	}
	if song.UploadDate.IsZero() {
		song.UploadDate = in.now()
	}
	if orig := OriginalSong(v.Title); orig != "" {
		song.OriginalSong = &orig
	}
	if err := in.store.CreateSong(ctx, song); err != nil {
		return err
	}
	if song.IsCover() {
		in.log.Infof("added %q (%s cover of %q)", v.Title, song.Genre, *song.OriginalSong)
	} else {
		in.log.Infof("added %q (%s)", v.Title, song.Genre)
	}
	rep.Added++
	return nil
}
