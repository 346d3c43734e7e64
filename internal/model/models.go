package model

import "time"

// VTuber is an artist that owns songs. SongCount is denormalized and kept in
// step by the store whenever a song is inserted.
type VTuber struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:255;not null;index:idx_vtubers_name" json:"name"`
	AvatarURL   *string   `gorm:"column:avatar_url;type:text" json:"avatar_url"`
	ChannelURL  *string   `gorm:"column:channel_url;type:text" json:"channel_url"`
	Description *string   `gorm:"type:text" json:"description"`
	SongCount   int       `gorm:"column:song_count;not null;default:0" json:"song_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (VTuber) TableName() string { return "vtubers" }

// Song is immutable after insert apart from ViewCount and UpdatedAt. A
// non-nil OriginalSong marks the song as a cover.
type Song struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	VTuberID     uint      `gorm:"column:vtuber_id;not null;index:idx_songs_vtuber" json:"vtuber_id"`
	ThumbnailURL string    `gorm:"column:thumbnail_url;type:text;not null" json:"thumbnail_url"`
	VideoURL     string    `gorm:"column:video_url;type:text;not null;index:idx_songs_video_url" json:"video_url"`
	Duration     int       `gorm:"not null" json:"duration"`
	Genre        string    `gorm:"size:50;not null;index:idx_songs_genre" json:"genre"`
	OriginalSong *string   `gorm:"column:original_song;size:255;index:idx_songs_original" json:"original_song"`
	UploadDate   time.Time `gorm:"column:upload_date;not null" json:"upload_date"`
	ViewCount    int64     `gorm:"column:view_count;not null;default:0" json:"view_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Song) TableName() string { return "songs" }

func (s *Song) IsCover() bool {
	return s.OriginalSong != nil && *s.OriginalSong != ""
}

type Tag struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_tags_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Tag) TableName() string { return "tags" }

type SongTag struct {
	ID     uint `gorm:"primaryKey;autoIncrement"`
	SongID uint `gorm:"column:song_id;not null;uniqueIndex:idx_song_tags_pair,priority:1"`
	TagID  uint `gorm:"column:tag_id;not null;uniqueIndex:idx_song_tags_pair,priority:2;index:idx_song_tags_tag"`
}

func (SongTag) TableName() string { return "song_tags" }

type Playlist struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint      `gorm:"column:user_id;not null;index:idx_playlists_user" json:"user_id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Description   *string   `gorm:"type:text" json:"description"`
	CoverImageURL *string   `gorm:"column:cover_image_url;type:text" json:"cover_image_url"`
	IsPublic      bool      `gorm:"column:is_public;not null;default:false" json:"is_public"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Playlist) TableName() string { return "playlists" }

// PlaylistSong positions grow by one per append and are never renumbered, so
// gaps remain after removals.
type PlaylistSong struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	PlaylistID uint      `gorm:"column:playlist_id;not null;index:idx_playlist_songs_playlist"`
	SongID     uint      `gorm:"column:song_id;not null"`
	Position   int       `gorm:"not null"`
	AddedAt    time.Time `gorm:"column:added_at;autoCreateTime"`
}

func (PlaylistSong) TableName() string { return "playlist_songs" }

type Favorite struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	UserID    uint      `gorm:"column:user_id;not null;uniqueIndex:idx_favorites_pair,priority:1"`
	SongID    uint      `gorm:"column:song_id;not null;uniqueIndex:idx_favorites_pair,priority:2"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Favorite) TableName() string { return "favorites" }

type PlayHistory struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	UserID   uint      `gorm:"column:user_id;not null;index:idx_play_history_user"`
	SongID   uint      `gorm:"column:song_id;not null"`
	PlayedAt time.Time `gorm:"column:played_at;not null"`
}

func (PlayHistory) TableName() string { return "play_history" }

// AllModels lists every table in migration order.
func AllModels() []any {
	return []any{
		&VTuber{}, &Song{}, &Tag{}, &SongTag{},
		&Playlist{}, &PlaylistSong{}, &Favorite{}, &PlayHistory{},
	}
}
