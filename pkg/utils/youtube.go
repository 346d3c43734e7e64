package utils

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	watchURLPrefix   = "https://www.youtube.com/watch?v="
	channelURLPrefix = "https://www.youtube.com/channel/"
)

// ExtractYouTubeID returns the video id of a watch, short, embed, shorts or
// youtu.be link.
func ExtractYouTubeID(youtubeURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(youtubeURL))
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.ToLower(u.Host)

	if strings.Contains(host, "youtu.be") {
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
		return "", fmt.Errorf("no video ID found in youtu.be URL")
	}

	if strings.Contains(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			if id := u.Query().Get("v"); id != "" {
				return id, nil
			}
		}
		for _, prefix := range []string{"/embed/", "/v/", "/shorts/"} {
			if id, ok := strings.CutPrefix(u.Path, prefix); ok && id != "" {
				return strings.Trim(id, "/"), nil
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
}

func IsYouTubeURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Host)
	return strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be")
}

// WatchURL is the canonical locator stored for a video id.
func WatchURL(videoID string) string {
	return watchURLPrefix + videoID
}

func ChannelURL(channelID string) string {
	if channelID == "" {
		return ""
	}
	return channelURLPrefix + channelID
}

// CanonicalVideoURL rewrites any YouTube link to its WatchURL form. Links
// that are not YouTube are returned unchanged.
func CanonicalVideoURL(raw string) string {
	if !IsYouTubeURL(raw) {
		return raw
	}
	id, err := ExtractYouTubeID(raw)
	if err != nil {
		return raw
	}
	return WatchURL(id)
}
