package config

import "time"

// Config holds the runtime settings shared by the server and the CLI.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	YouTube  YouTubeConfig  `mapstructure:"youtube"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Player   PlayerConfig   `mapstructure:"player"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig selects the gorm dialect. Path is used by sqlite and DSN by
// postgres.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Colorize   bool   `mapstructure:"colorize"`
	ShowCaller bool   `mapstructure:"show_caller"`
}

type YouTubeConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	// Provider is "youtube" (Data API v3) or "ytdlp".
	Provider      string        `mapstructure:"provider"`
	Queries       []string      `mapstructure:"queries"`
	MaxResults    int           `mapstructure:"max_results"`
	Delay         time.Duration `mapstructure:"delay"`
	DefaultAvatar string        `mapstructure:"default_avatar"`
	YtdlpPath     string        `mapstructure:"ytdlp_path"`
}

type PlayerConfig struct {
	// RelatedQueue is how many related songs `play` appends after the
	// requested one.
	RelatedQueue int           `mapstructure:"related_queue"`
	AudioOnly    bool          `mapstructure:"audio_only"`
	Volume       int           `mapstructure:"volume"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			Path:            "vtunedna.sqlite3",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			SlowThreshold:   200 * time.Millisecond,
		},
		Auth: AuthConfig{
			Issuer:   "vtunedna",
			TokenTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level:    "info",
			Colorize: true,
		},
		YouTube: YouTubeConfig{
			BaseURL: "https://www.googleapis.com/youtube/v3",
			Timeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Provider: "youtube",
			Queries: []string{
				"VTuber 歌ってみた",
				"ホロライブ 歌ってみた",
				"にじさんじ 歌ってみた",
				"VTuber cover song",
				"VTuber original song",
			},
			MaxResults:    20,
			Delay:         time.Second,
			DefaultAvatar: "https://via.placeholder.com/150",
			YtdlpPath:     "yt-dlp",
		},
		Player: PlayerConfig{
			RelatedQueue: 10,
			AudioOnly:    true,
			Volume:       80,
			PollInterval: 500 * time.Millisecond,
		},
	}
}
