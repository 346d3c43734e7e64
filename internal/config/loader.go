package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "VTUNE"

// Loader reads config.toml, the environment and an optional .env file into a
// Config. Keep the Loader around to Watch the file afterwards.
type Loader struct {
	v       *viper.Viper
	path    string
	envFile string

	mu  sync.Mutex
	cfg *Config
}

type LoaderOption func(*Loader)

// WithConfigFile pins the config file instead of searching the default paths.
func WithConfigFile(path string) LoaderOption {
	return func(l *Loader) { l.path = path }
}

// WithEnvFile overrides the dotenv file name (".env" by default).
func WithEnvFile(path string) LoaderOption {
	return func(l *Loader) { l.envFile = path }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{v: viper.New(), envFile: ".env"}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load is shorthand for NewLoader(WithConfigFile(path)).Load(). An empty
// path searches the default locations.
func Load(path string) (*Config, error) {
	var opts []LoaderOption
	if path != "" {
		opts = append(opts, WithConfigFile(path))
	}
	return NewLoader(opts...).Load()
}

func (l *Loader) Load() (*Config, error) {
	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", l.envFile, err)
		}
	}

	v := l.v
	v.SetConfigType("toml")
	if l.path != "" {
		v.SetConfigFile(l.path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("$HOME/.config/vtunedna")
		v.AddConfigPath(".")
	}

	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Current returns the most recently loaded Config.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg
}

// ConfigFileUsed reports the file Load read, or "" if only defaults and
// environment were used.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Watch re-decodes the config whenever the file changes and hands the result
// to onChange. It is a no-op when no file was read.
func (l *Loader) Watch(onChange func(*Config)) bool {
	if l.v.ConfigFileUsed() == "" {
		return false
	}

	log := logger.Named("config")
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := l.decode()
		if err != nil {
			log.Warnf("Ignoring config change from %s: %v", e.Name, err)
			return
		}
		l.mu.Lock()
		l.cfg = cfg
		l.mu.Unlock()
		log.Infof("Reloaded %s", e.Name)
		if onChange != nil {
			onChange(cfg)
		}
	})
	l.v.WatchConfig()
	return true
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", d.Database.ConnMaxLifetime)
	v.SetDefault("database.slow_threshold", d.Database.SlowThreshold)

	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.colorize", d.Log.Colorize)
	v.SetDefault("log.show_caller", d.Log.ShowCaller)

	v.SetDefault("youtube.api_key", d.YouTube.APIKey)
	v.SetDefault("youtube.base_url", d.YouTube.BaseURL)
	v.SetDefault("youtube.timeout", d.YouTube.Timeout)

	v.SetDefault("ingest.provider", d.Ingest.Provider)
	v.SetDefault("ingest.queries", d.Ingest.Queries)
	v.SetDefault("ingest.max_results", d.Ingest.MaxResults)
	v.SetDefault("ingest.delay", d.Ingest.Delay)
	v.SetDefault("ingest.default_avatar", d.Ingest.DefaultAvatar)
	v.SetDefault("ingest.ytdlp_path", d.Ingest.YtdlpPath)

	v.SetDefault("player.related_queue", d.Player.RelatedQueue)
	v.SetDefault("player.audio_only", d.Player.AudioOnly)
	v.SetDefault("player.volume", d.Player.Volume)
	v.SetDefault("player.poll_interval", d.Player.PollInterval)
}

// Validate checks the fields that have no usable zero value.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Ingest.Provider {
	case "youtube", "ytdlp":
	default:
		return fmt.Errorf("unsupported ingest.provider %q", c.Ingest.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ApplyLogging pushes the log section onto l.
func (c *Config) ApplyLogging(l *logger.Logger) {
	lvl, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		lvl = logger.INFO
	}
	l.SetLevel(lvl)
	l.SetColorize(c.Log.Colorize)
	l.SetShowCaller(c.Log.ShowCaller)
}
