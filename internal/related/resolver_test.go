package related

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sort"
	"testing"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource struct {
	songs []model.SongView
	// ignoreExclude makes tier queries return excluded ids anyway.
	ignoreExclude bool
	calls         []string
	err           error
}

func (m *memSource) GetSong(_ context.Context, id uint) (*model.SongView, error) {
	for i := range m.songs {
		if m.songs[i].ID == id {
			return &m.songs[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memSource) tier(name string, match func(model.SongView) bool, exclude []uint, limit int) ([]model.SongView, error) {
	m.calls = append(m.calls, name)
	if m.err != nil {
		return nil, m.err
	}
	var out []model.SongView
	for _, s := range m.songs {
		if !match(s) {
			continue
		}
		if !m.ignoreExclude && slices.Contains(exclude, s.ID) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSource) SongsWithOriginal(_ context.Context, original string, exclude []uint, limit int) ([]model.SongView, error) {
	return m.tier("original", func(s model.SongView) bool {
		return s.OriginalSong != nil && *s.OriginalSong == original
	}, exclude, limit)
}

func (m *memSource) SongsWithVTuber(_ context.Context, vtuberID uint, exclude []uint, limit int) ([]model.SongView, error) {
	return m.tier("artist", func(s model.SongView) bool { return s.VTuberID == vtuberID }, exclude, limit)
}

func (m *memSource) SongsWithGenre(_ context.Context, genre string, exclude []uint, limit int) ([]model.SongView, error) {
	return m.tier("genre", func(s model.SongView) bool { return s.Genre == genre }, exclude, limit)
}

func song(id, vtuber uint, genre, original string, views int64) model.SongView {
	s := model.SongView{ID: id, VTuberID: vtuber, Genre: genre, ViewCount: views}
	if original != "" {
		s.OriginalSong = &original
	}
	return s
}

func idsOf(songs []model.SongView) []uint {
	out := make([]uint, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.ID)
	}
	return out
}

func TestCoverTierComesFirst(t *testing.T) {
	// X(O1,100) and Y(O1,50) by the same artist.
	src := &memSource{songs: []model.SongView{
		song(1, 1, "pop", "O1", 100),
		song(2, 1, "pop", "O1", 50),
	}}
	got, err := NewResolver(src).Related(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, idsOf(got))
}

func TestTierOrderWithoutCoverMatches(t *testing.T) {
	src := &memSource{songs: []model.SongView{
		song(1, 1, "rock", "", 10),
		song(2, 1, "pop", "", 5),    // same artist
		song(3, 1, "pop", "", 7),    // same artist
		song(4, 2, "rock", "", 900), // same genre only
		song(5, 3, "rock", "", 100), // same genre only
		song(6, 3, "jazz", "", 1e6), // unrelated
	}}
	got, err := NewResolver(src).Related(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 2, 4, 5}, idsOf(got), "artist tier precedes genre tier, no cross-tier re-sort")
	assert.Equal(t, []string{"artist", "genre"}, src.calls, "cover tier skipped for non-covers")
}

func TestStopsOnceLimitReached(t *testing.T) {
	src := &memSource{songs: []model.SongView{
		song(1, 1, "pop", "O1", 10),
		song(2, 2, "pop", "O1", 9),
		song(3, 3, "pop", "O1", 8),
		song(4, 1, "pop", "", 7),
	}}
	got, err := NewResolver(src).Related(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3}, idsOf(got))
	assert.Equal(t, []string{"original"}, src.calls)
}

func TestNeverReturnsSourceOrDuplicates(t *testing.T) {
	songs := []model.SongView{
		song(1, 1, "pop", "O1", 10),
		song(2, 1, "pop", "O1", 50), // cover, same artist, same genre
		song(3, 1, "pop", "", 40),
		song(4, 2, "pop", "", 30),
	}
	for _, leaky := range []bool{false, true} {
		src := &memSource{songs: songs, ignoreExclude: leaky}
		got, err := NewResolver(src).Related(context.Background(), 1, 10)
		require.NoError(t, err)
		assert.Equal(t, []uint{2, 3, 4}, idsOf(got), "ignoreExclude=%v", leaky)
	}
}

func TestMissingSourceIsEmpty(t *testing.T) {
	src := &memSource{}
	got, err := NewResolver(src).Related(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, src.calls)
}

func TestTierErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	src := &memSource{songs: []model.SongView{song(1, 1, "pop", "", 1)}, err: boom}
	_, err := NewResolver(src).Related(context.Background(), 1, 5)
	assert.ErrorIs(t, err, boom)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxLimit, ClampLimit(MaxLimit+1))
}

func TestRelatedAgainstSQLite(t *testing.T) {
	db, err := storage.NewDBClientWithPath(filepath.Join(t.TempDir(), "related.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()

	a := &model.VTuber{Name: "A"}
	b := &model.VTuber{Name: "B"}
	require.NoError(t, db.CreateVTuber(ctx, a))
	require.NoError(t, db.CreateVTuber(ctx, b))

	o1 := "O1"
	insert := func(title string, vtuber uint, genre string, original *string, views int64) uint {
		s := &model.Song{
			Title: title, VTuberID: vtuber, Genre: genre, OriginalSong: original, ViewCount: views,
			VideoURL: "https://youtu.be/" + title, ThumbnailURL: "t", Duration: 180, UploadDate: time.Now(),
		}
		require.NoError(t, db.CreateSong(ctx, s))
		return s.ID
	}
	x := insert("x", a.ID, "pop", &o1, 100)
	y := insert("y", a.ID, "pop", &o1, 50)
	w := insert("w", b.ID, "ballad", &o1, 70)
	z := insert("z", a.ID, "rock", nil, 10)
	g := insert("g", b.ID, "pop", nil, 5)

	got, err := NewResolver(db).Related(ctx, x, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{w, y, z, g}, idsOf(got))
	assert.Equal(t, "B", got[0].ArtistName())
}
