package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
	"github.com/lrstanley/go-ytdlp"
)

// ytdlpInfo is the subset of yt-dlp's per-video JSON we read.
type ytdlpInfo struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Channel    string  `json:"channel"`
	ChannelID  string  `json:"channel_id"`
	Uploader   string  `json:"uploader"`
	Thumbnail  string  `json:"thumbnail"`
	Duration   float64 `json:"duration"`
	ViewCount  int64   `json:"view_count"`
	UploadDate string  `json:"upload_date"`
	Timestamp  int64   `json:"timestamp"`
	WebpageURL string  `json:"webpage_url"`
}

// YtdlpProvider searches YouTube by shelling out to yt-dlp.
type YtdlpProvider struct {
	run func(ctx context.Context, args ...string) (string, error)
	log *logger.Logger
}

var _ Provider = (*YtdlpProvider)(nil)

// NewYtdlpProvider uses the yt-dlp binary at executable, or the one on PATH
// when empty.
func NewYtdlpProvider(executable string) *YtdlpProvider {
	return &YtdlpProvider{
		run: func(ctx context.Context, args ...string) (string, error) {
			cmd := ytdlp.New().
				DumpJSON().
				SkipDownload().
				NoWarnings().
				IgnoreErrors()
			if executable != "" {
				cmd = cmd.SetExecutable(executable)
			}
			res, err := cmd.Run(ctx, args...)
			if err != nil {
				if res != nil && res.Stderr != "" {
					return "", fmt.Errorf("yt-dlp failed: %w\nstderr:\n%s", err, res.Stderr)
				}
				return "", fmt.Errorf("yt-dlp failed: %w", err)
			}
			return res.Stdout, nil
		},
		log: logger.Named("ingest.ytdlp"),
	}
}

func (p *YtdlpProvider) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if maxResults <= 0 {
		maxResults = defaultAPIResult
	}
	out, err := p.run(ctx, fmt.Sprintf("ytsearch%d:%s", maxResults, query))
	if err != nil {
		return nil, err
	}
	return p.parse(out), nil
}

// parse reads one JSON document per line, skipping lines it cannot use.
func (p *YtdlpProvider) parse(out string) []Video {
	videos := []Video{}
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var info ytdlpInfo
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			p.log.Warnf("skipping unparseable yt-dlp line: %v", err)
			continue
		}
		if strings.TrimSpace(info.ID) == "" || strings.TrimSpace(info.Title) == "" {
			continue
		}
		videos = append(videos, info.video())
	}
	return videos
}

func (info ytdlpInfo) video() Video {
	channel := info.Channel
	if strings.TrimSpace(channel) == "" {
		channel = info.Uploader
	}

	var published time.Time
	if info.Timestamp > 0 {
		published = time.Unix(info.Timestamp, 0).UTC()
	} else if t, err := time.Parse("20060102", info.UploadDate); err == nil {
		published = t
	}

	return Video{
		ID:           info.ID,
		Title:        info.Title,
		ChannelTitle: channel,
		ChannelID:    info.ChannelID,
		ThumbnailURL: info.Thumbnail,
		Duration:     int(info.Duration + 0.5),
		ViewCount:    info.ViewCount,
		PublishedAt:  published,
		VideoURL:     utils.WatchURL(info.ID),
	}
}
