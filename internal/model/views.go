package model

import "time"

// SongView is a song row joined with its artist. The artist columns are
// nullable because the join is a LEFT JOIN.
type SongView struct {
	ID           uint      `json:"id"`
	Title        string    `json:"title"`
	VTuberID     uint      `gorm:"column:vtuber_id" json:"vtuber_id"`
	VTuberName   *string   `gorm:"column:vtuber_name" json:"vtuber_name"`
	VTuberAvatar *string   `gorm:"column:vtuber_avatar" json:"vtuber_avatar"`
	ThumbnailURL string    `gorm:"column:thumbnail_url" json:"thumbnail_url"`
	VideoURL     string    `gorm:"column:video_url" json:"video_url"`
	Duration     int       `json:"duration"`
	Genre        string    `json:"genre"`
	OriginalSong *string   `gorm:"column:original_song" json:"original_song"`
	UploadDate   time.Time `gorm:"column:upload_date" json:"upload_date"`
	ViewCount    int64     `gorm:"column:view_count" json:"view_count"`
}

// ArtistName returns the joined artist name or "" when the artist row is
// missing.
func (s SongView) ArtistName() string {
	if s.VTuberName == nil {
		return ""
	}
	return *s.VTuberName
}

type PlaylistEntry struct {
	SongView
	Position int       `json:"position"`
	AddedAt  time.Time `gorm:"column:added_at" json:"added_at"`
}

type FavoriteEntry struct {
	SongView
	FavoritedAt time.Time `gorm:"column:favorited_at" json:"favorited_at"`
}

type HistoryEntry struct {
	SongView
	PlayedAt time.Time `gorm:"column:played_at" json:"played_at"`
}

// GenreCount is one row of the genre breakdown.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int64  `json:"count"`
}

// SongFilter narrows SearchSongs. Zero values mean "no filter".
type SongFilter struct {
	Query        string
	Genre        string
	VTuberID     uint
	OriginalSong string
	Limit        int
	Offset       int
}

// PlaylistUpdate carries the fields of a partial playlist update. Nil fields
// are left unchanged.
type PlaylistUpdate struct {
	Name          *string
	Description   *string
	CoverImageURL *string
	IsPublic      *bool
}

func (u PlaylistUpdate) Empty() bool {
	return u.Name == nil && u.Description == nil && u.CoverImageURL == nil && u.IsPublic == nil
}
