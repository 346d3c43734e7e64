package ingest

import (
	"regexp"
	"strings"
)

const DefaultGenre = "pop"

// genreKeywords is checked in order; the first hit wins.
var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"rock", []string{"rock", "ロック"}},
	{"jazz", []string{"jazz", "ジャズ"}},
	{"ballad", []string{"ballad", "バラード"}},
	{"anime", []string{"anime", "アニメ"}},
}

var coverMarkers = []string{"cover", "歌ってみた", "カバー"}

var (
	lenticular = regexp.MustCompile(`【(.+?)】`)
	cornered   = regexp.MustCompile(`「(.+?)」`)
)

// Genre guesses a genre from title keywords.
func Genre(title string) string {
	lower := strings.ToLower(title)
	for _, g := range genreKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.genre
			}
		}
	}
	return DefaultGenre
}

// IsCoverTitle reports whether the title marks the video as a cover.
func IsCoverTitle(title string) bool {
	lower := strings.ToLower(title)
	for _, m := range coverMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// OriginalSong extracts the covered song's name from a cover title, taking
// the first 【…】 group, else the first 「…」 group. It returns "" for
// titles that are not covers or carry no bracketed name.
func OriginalSong(title string) string {
	if !IsCoverTitle(title) {
		return ""
	}
	for _, re := range []*regexp.Regexp{lenticular, cornered} {
		if m := re.FindStringSubmatch(title); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
