package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider answers from a fixed map of query results.
type fakeProvider struct {
	results map[string][]Video
	errs    map[string]error
	queries []string
}

func (f *fakeProvider) Search(_ context.Context, query string, _ int) ([]Video, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func setupTestDB(t *testing.T) *storage.DBClient {
	t.Helper()
	db, err := storage.NewDBClientWithPath(filepath.Join(t.TempDir(), "test_ingest.sqlite3"))
	if err != nil {
		t.Fatalf("Failed to create test DB: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestIngesterRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	published := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	p := &fakeProvider{
		results: map[string][]Video{
			"suisei": {
				{ID: "a1", Title: "【Ghost】歌ってみた", ChannelTitle: "Suisei", ChannelID: "UC1", ThumbnailURL: "a1.jpg", Duration: 240, ViewCount: 100, PublishedAt: published, VideoURL: "https://youtu.be/a1"},
				{ID: "a2", Title: "ROCK medley", ChannelTitle: "Suisei", ViewCount: 50, VideoURL: "https://www.youtube.com/watch?v=a2"},
			},
			"marine": {
				{ID: "b1", Title: "Marine original", ChannelTitle: "", ViewCount: 7, VideoURL: "https://www.youtube.com/watch?v=b1"},
			},
		},
		errs: map[string]error{"broken": errors.New("boom")},
	}

	in := NewIngester(p, db, config.IngestConfig{MaxResults: 5, DefaultAvatar: "default.png"})
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	in.now = func() time.Time { return fixed }

	rep, err := in.Run(ctx, []string{"suisei", "broken", "marine", "empty"})
	require.NoError(t, err)
	assert.Equal(t, Report{Queries: 4, Found: 3, Added: 3, NewVTubers: 2, Failed: 1}, rep)
	assert.Equal(t, []string{"suisei", "broken", "marine", "empty"}, p.queries)

	id, err := db.SongIDByVideoURL(ctx, "https://www.youtube.com/watch?v=a1")
	require.NoError(t, err, "youtu.be links are stored in watch form")
	song, err := db.GetSong(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, song.OriginalSong)
	assert.Equal(t, "Ghost", *song.OriginalSong)
	assert.Equal(t, "pop", song.Genre)
	assert.Equal(t, "Suisei", song.ArtistName())

	id, err = db.SongIDByVideoURL(ctx, "https://www.youtube.com/watch?v=a2")
	require.NoError(t, err)
	song, err = db.GetSong(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "rock", song.Genre)
	assert.Nil(t, song.OriginalSong)
	assert.True(t, song.UploadDate.Equal(fixed))

	vtubers, err := db.ListVTubers(ctx)
	require.NoError(t, err)
	require.Len(t, vtubers, 2)
	assert.Equal(t, "Suisei", vtubers[0].Name)
	assert.Equal(t, 2, vtubers[0].SongCount)
	require.NotNil(t, vtubers[0].ChannelURL)
	assert.Equal(t, "https://www.youtube.com/channel/UC1", *vtubers[0].ChannelURL)
	assert.Equal(t, unknownArtist, vtubers[1].Name)
	require.NotNil(t, vtubers[1].AvatarURL)
	assert.Equal(t, "default.png", *vtubers[1].AvatarURL)
}

func TestIngesterRefreshesExisting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	video := Video{ID: "x", Title: "Song", ChannelTitle: "Noel", ViewCount: 10, VideoURL: "https://www.youtube.com/watch?v=x"}
	p := &fakeProvider{results: map[string][]Video{"q": {video}}}
	in := NewIngester(p, db, config.IngestConfig{})

	_, err := in.Run(ctx, []string{"q"})
	require.NoError(t, err)

	video.ViewCount = 500
	p.results["q"] = []Video{video}
	rep, err := in.Run(ctx, []string{"q"})
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Added)
	assert.Equal(t, 1, rep.Refreshed)

	songs, err := db.ListSongs(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, int64(500), songs[0].ViewCount)

	vt, err := db.GetVTuber(ctx, songs[0].VTuberID)
	require.NoError(t, err)
	assert.Equal(t, 1, vt.SongCount)
}

func TestIngesterStopsWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	p := &fakeProvider{errs: map[string]error{"a": ErrNoAPIKey}}
	in := NewIngester(p, db, config.IngestConfig{})

	_, err := in.Run(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, []string{"a"}, p.queries)
}

func TestIngesterHonoursCancellation(t *testing.T) {
	db := setupTestDB(t)
	p := &fakeProvider{}
	in := NewIngester(p, db, config.IngestConfig{Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	rep, err := in.Run(ctx, []string{"a", "b"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rep.Queries)
}

func TestNewProvider(t *testing.T) {
	cfg := config.DefaultConfig()

	p, err := NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &YouTubeClient{}, p)

	cfg.Ingest.Provider = "ytdlp"
	p, err = NewProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &YtdlpProvider{}, p)

	cfg.Ingest.Provider = "vimeo"
	_, err = NewProvider(cfg)
	assert.Error(t, err)
}
