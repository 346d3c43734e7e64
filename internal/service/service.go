package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/himanishpuri/VTuneDNA/internal/auth"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/related"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

const (
	DefaultPageSize    = 50
	MaxPageSize        = 100
	DefaultGenreLimit  = 20
	DefaultSearchLimit = 50
	DefaultHistory     = 50
	MaxHistory         = 200
	MaxNameLength      = 255
	MaxDescription     = 2000
	MaxQueryLength     = 255
)

// Store is everything the service reads from or writes to. *storage.DBClient
// implements it.
type Store interface {
	related.Source

	ListVTubers(ctx context.Context) ([]model.VTuber, error)
	GetVTuber(ctx context.Context, id uint) (*model.VTuber, error)
	SearchVTubers(ctx context.Context, query string, limit int) ([]model.VTuber, error)
	SongsByVTuber(ctx context.Context, vtuberID uint) ([]model.SongView, error)

	ListSongs(ctx context.Context, limit, offset int) ([]model.SongView, error)
	SearchSongs(ctx context.Context, f model.SongFilter) ([]model.SongView, error)
	SongsByGenre(ctx context.Context, genre string, limit int) ([]model.SongView, error)
	SongsByOriginal(ctx context.Context, name string, limit int) ([]model.SongView, error)
	Genres(ctx context.Context) ([]model.GenreCount, error)

	ListTags(ctx context.Context) ([]model.Tag, error)
	TagsForSong(ctx context.Context, songID uint) ([]model.Tag, error)
	SongsByTag(ctx context.Context, tagID uint) ([]model.SongView, error)

	ListPlaylists(ctx context.Context, userID uint) ([]model.Playlist, error)
	GetPlaylist(ctx context.Context, id uint) (*model.Playlist, error)
	CreatePlaylist(ctx context.Context, p *model.Playlist) error
	UpdatePlaylist(ctx context.Context, id uint, u model.PlaylistUpdate) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id uint) error
	PlaylistSongs(ctx context.Context, playlistID uint) ([]model.PlaylistEntry, error)
	AddPlaylistSong(ctx context.Context, playlistID, songID uint) (int, error)
	RemovePlaylistSong(ctx context.Context, playlistID, songID uint) error

	ListFavorites(ctx context.Context, userID uint) ([]model.FavoriteEntry, error)
	AddFavorite(ctx context.Context, userID, songID uint) error
	RemoveFavorite(ctx context.Context, userID, songID uint) error
	IsFavorite(ctx context.Context, userID, songID uint) (bool, error)

	ListHistory(ctx context.Context, userID uint, limit int) ([]model.HistoryEntry, error)
	AddHistory(ctx context.Context, userID, songID uint) error
}

var _ Store = (*storage.DBClient)(nil)

// CatalogService is the request/response surface over the catalog, the
// resolver and the per-user collections.
type CatalogService struct {
	store    Store
	resolver *related.Resolver
	log      *logger.Logger
}

func NewCatalogService(store Store) *CatalogService {
	return &CatalogService{
		store:    store,
		resolver: related.NewResolver(store),
		log:      logger.Named("service"),
	}
}

func requireIdentity(id *auth.Identity) error {
	if id == nil || id.UserID == 0 {
		return ErrUnauthorized
	}
	return nil
}

// absent turns a storage miss into a nil result.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func mapStoreErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

func clamp(n, def, upper int) int {
	if n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

func checkQuery(q string) error {
	if q == "" {
		return invalid("query must not be empty")
	}
	if len([]rune(q)) > MaxQueryLength {
		return invalid("query longer than %d characters", MaxQueryLength)
	}
	return nil
}

// VTubers

func (s *CatalogService) ListVTubers(ctx context.Context) ([]model.VTuber, error) {
	return s.store.ListVTubers(ctx)
}

// GetVTuber returns nil, nil when the artist does not exist.
func (s *CatalogService) GetVTuber(ctx context.Context, id uint) (*model.VTuber, error) {
	v, err := s.store.GetVTuber(ctx, id)
	return absent(v, err)
}

func (s *CatalogService) SearchVTubers(ctx context.Context, query string) ([]model.VTuber, error) {
	if err := checkQuery(query); err != nil {
		return nil, err
	}
	return s.store.SearchVTubers(ctx, query, DefaultSearchLimit)
}

func (s *CatalogService) VTuberSongs(ctx context.Context, vtuberID uint) ([]model.SongView, error) {
	return s.store.SongsByVTuber(ctx, vtuberID)
}

// Songs

func (s *CatalogService) ListSongs(ctx context.Context, limit, offset int) ([]model.SongView, error) {
	if offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	return s.store.ListSongs(ctx, clamp(limit, DefaultPageSize, MaxPageSize), offset)
}

// GetSong returns nil, nil when the song does not exist.
func (s *CatalogService) GetSong(ctx context.Context, id uint) (*model.SongView, error) {
	song, err := s.store.GetSong(ctx, id)
	return absent(song, err)
}

func (s *CatalogService) SearchSongs(ctx context.Context, f model.SongFilter) ([]model.SongView, error) {
	if f.Query != "" {
		if err := checkQuery(f.Query); err != nil {
			return nil, err
		}
	}
	if f.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	f.Limit = clamp(f.Limit, DefaultSearchLimit, MaxPageSize)
	return s.store.SearchSongs(ctx, f)
}

func (s *CatalogService) SongsByGenre(ctx context.Context, genre string, limit int) ([]model.SongView, error) {
	if genre == "" {
		return nil, invalid("genre must not be empty")
	}
	return s.store.SongsByGenre(ctx, genre, clamp(limit, DefaultGenreLimit, MaxPageSize))
}

func (s *CatalogService) SongsByOriginal(ctx context.Context, name string) ([]model.SongView, error) {
	if err := checkQuery(name); err != nil {
		return nil, err
	}
	return s.store.SongsByOriginal(ctx, name, MaxPageSize)
}

func (s *CatalogService) Genres(ctx context.Context) ([]model.GenreCount, error) {
	return s.store.Genres(ctx)
}

// RelatedSongs returns up to limit songs related to songID, or an empty list
// when songID does not exist.
func (s *CatalogService) RelatedSongs(ctx context.Context, songID uint, limit int) ([]model.SongView, error) {
	if limit > related.MaxLimit {
		return nil, invalid("limit must be at most %d", related.MaxLimit)
	}
	return s.resolver.Related(ctx, songID, limit)
}

// Tags

func (s *CatalogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	return s.store.ListTags(ctx)
}

func (s *CatalogService) SongTags(ctx context.Context, songID uint) ([]model.Tag, error) {
	return s.store.TagsForSong(ctx, songID)
}

func (s *CatalogService) TagSongs(ctx context.Context, tagID uint) ([]model.SongView, error) {
	return s.store.SongsByTag(ctx, tagID)
}
