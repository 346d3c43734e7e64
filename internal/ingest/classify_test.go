package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenre(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Stellar Stellar / Hoshimachi Suisei", "pop"},
		{"【ROCK cover】 God knows", "rock"},
		{"ジャズアレンジで歌ってみた", "jazz"},
		{"Late night Ballad", "ballad"},
		{"アニメOPメドレー", "anime"},
		{"rock jazz crossover", "rock"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Genre(tt.title), tt.title)
	}
}

func TestOriginalSong(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"【ghost】歌ってみた / 星街すいせい", "ghost"},
		{"「KING」 cover by Marine", "KING"},
		{"【歌ってみた】「アイドル」", "歌ってみた"},
		{"Cover song without brackets", ""},
		{"【MV】Stellar Stellar", ""},
		{"オリジナル曲「Bibbidiba」", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OriginalSong(tt.title), tt.title)
	}
}

func TestCoverQuery(t *testing.T) {
	assert.Equal(t, "Ghost cover 歌ってみた", CoverQuery("Ghost"))
}
