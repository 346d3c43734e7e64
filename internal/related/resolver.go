// Package related ranks songs related to a given song using three fallback
// tiers: same original song, same artist, same genre.
package related

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/internal/storage"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Source is the read side the resolver needs. Each tier query returns at most
// limit songs ordered by view count descending and skips every id in exclude.
type Source interface {
	GetSong(ctx context.Context, id uint) (*model.SongView, error)
	SongsWithOriginal(ctx context.Context, original string, exclude []uint, limit int) ([]model.SongView, error)
	SongsWithVTuber(ctx context.Context, vtuberID uint, exclude []uint, limit int) ([]model.SongView, error)
	SongsWithGenre(ctx context.Context, genre string, exclude []uint, limit int) ([]model.SongView, error)
}

type Resolver struct {
	src Source
	log *logger.Logger
}

func NewResolver(src Source) *Resolver {
	return &Resolver{src: src, log: logger.Named("related")}
}

// ClampLimit maps a requested count onto [1, MaxLimit], using DefaultLimit
// for non-positive input.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Related returns up to limit songs related to songID. Tiers run in order and
// only while the result is short; a song found by an earlier tier is never
// repeated by a later one, and songID itself is never returned. A missing
// source song yields an empty result.
func (r *Resolver) Related(ctx context.Context, songID uint, limit int) ([]model.SongView, error) {
	limit = ClampLimit(limit)

	src, err := r.src.GetSong(ctx, songID)
	if errors.Is(err, storage.ErrNotFound) {
		return []model.SongView{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading song %d: %w", songID, err)
	}

	out := make([]model.SongView, 0, limit)
	seen := []uint{src.ID}

	collect := func(name string, fetch func(exclude []uint, need int) ([]model.SongView, error)) error {
		need := limit - len(out)
		if need <= 0 {
			return nil
		}
		songs, err := fetch(seen, need)
		if err != nil {
			return fmt.Errorf("%s tier: %w", name, err)
		}
		for _, s := range songs {
			if len(out) == limit {
				break
			}
			if slices.Contains(seen, s.ID) {
				continue
			}
			out = append(out, s)
			seen = append(seen, s.ID)
		}
		return nil
	}

	if src.OriginalSong != nil && *src.OriginalSong != "" {
		original := *src.OriginalSong
		err := collect("original", func(ex []uint, n int) ([]model.SongView, error) {
			return r.src.SongsWithOriginal(ctx, original, ex, n)
		})
		if err != nil {
			return nil, err
		}
	}

	err = collect("artist", func(ex []uint, n int) ([]model.SongView, error) {
		return r.src.SongsWithVTuber(ctx, src.VTuberID, ex, n)
	})
	if err != nil {
		return nil, err
	}

	err = collect("genre", func(ex []uint, n int) ([]model.SongView, error) {
		return r.src.SongsWithGenre(ctx, src.Genre, ex, n)
	})
	if err != nil {
		return nil, err
	}

	r.log.Debugf("song %d: %d related (limit %d)", songID, len(out), limit)
	return out, nil
}
