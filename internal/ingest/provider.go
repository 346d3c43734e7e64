package ingest

import (
	"context"
	"errors"
	"time"
)

// ErrNoAPIKey is returned by the Data API provider when no key is configured.
var ErrNoAPIKey = errors.New("youtube api key not configured")

// Video is one search hit, normalized across providers.
type Video struct {
	ID           string
	Title        string
	ChannelTitle string
	ChannelID    string
	ThumbnailURL string
	Duration     int // seconds
	ViewCount    int64
	PublishedAt  time.Time
	VideoURL     string
}

// Provider searches a video platform for music videos.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Video, error)
}

// CoverQuery is the search used to find covers of an original song.
func CoverQuery(originalTitle string) string {
	return originalTitle + " cover 歌ってみた"
}

// SearchCovers looks for covers of originalTitle through p.
func SearchCovers(ctx context.Context, p Provider, originalTitle string, maxResults int) ([]Video, error) {
	return p.Search(ctx, CoverQuery(originalTitle), maxResults)
}
