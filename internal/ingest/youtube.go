package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
)

const (
	musicCategoryID  = "10"
	maxAPIResults    = 50
	defaultAPIResult = 10
)

// YouTubeClient searches through the YouTube Data API v3.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

var _ Provider = (*YouTubeClient)(nil)

func NewYouTubeClient(cfg config.YouTubeConfig) *YouTubeClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultConfig().YouTube.BaseURL
	}
	return &YouTubeClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
		log:     logger.Named("ingest.youtube"),
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string               `json:"title"`
			ChannelTitle string               `json:"channelTitle"`
			ChannelID    string               `json:"channelId"`
			PublishedAt  string               `json:"publishedAt"`
			Thumbnails   map[string]thumbnail `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search runs a music-category video search and then fetches details for
// every hit in a single videos call.
func (c *YouTubeClient) Search(ctx context.Context, query string, maxResults int) ([]Video, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if maxResults <= 0 {
		maxResults = defaultAPIResult
	}
	if maxResults > maxAPIResults {
		maxResults = maxAPIResults
	}

	var found searchResponse
	err := c.get(ctx, "search", url.Values{
		"part":            {"snippet"},
		"q":               {query},
		"type":            {"video"},
		"videoCategoryId": {musicCategoryID},
		"maxResults":      {strconv.Itoa(maxResults)},
	}, &found)
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", query, err)
	}

	ids := make([]string, 0, len(found.Items))
	for _, item := range found.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return []Video{}, nil
	}

	var details videosResponse
	err = c.get(ctx, "videos", url.Values{
		"part": {"snippet,contentDetails,statistics"},
		"id":   {strings.Join(ids, ",")},
	}, &details)
	if err != nil {
		return nil, fmt.Errorf("fetching video details: %w", err)
	}

	videos := make([]Video, 0, len(details.Items))
	for _, item := range details.Items {
		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		published, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		if err != nil {
			c.log.Warnf("video %s has unparseable publish date %q", item.ID, item.Snippet.PublishedAt)
		}
		videos = append(videos, Video{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			ChannelID:    item.Snippet.ChannelID,
			ThumbnailURL: bestThumbnail(item.Snippet.Thumbnails),
			Duration:     ParseISODuration(item.ContentDetails.Duration),
			ViewCount:    views,
			PublishedAt:  published,
			VideoURL:     utils.WatchURL(item.ID),
		})
	}
	c.log.Debugf("query %q returned %d videos", query, len(videos))
	return videos, nil
}

func (c *YouTubeClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("reading %s response: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s: %d %s", endpoint, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", endpoint, err)
	}
	return nil
}

// bestThumbnail prefers high, then medium, then default resolution.
func bestThumbnail(thumbs map[string]thumbnail) string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT4M8S to seconds.
// Unparseable input yields 0.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}
