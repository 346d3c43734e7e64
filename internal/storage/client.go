package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/VTuneDNA/internal/config"
	"github.com/himanishpuri/VTuneDNA/internal/model"
	"github.com/himanishpuri/VTuneDNA/pkg/logger"
	"github.com/himanishpuri/VTuneDNA/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const DefaultDBFile = "vtunedna.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned by single-row lookups when the row is absent.
var ErrNotFound = errors.New("record not found")

type DBClient struct {
	DB  *gorm.DB
	db  *sql.DB
	log *logger.Logger
}

// NewDBClient opens the database described by cfg and migrates the schema.
func NewDBClient(cfg config.DatabaseConfig) (*DBClient, error) {
	log := logger.Named("storage")

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.Path
		if path == "" {
			path = DefaultDBFile
		}
		if err := utils.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
		dialector = sqlite.Open(path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	slow := cfg.SlowThreshold
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log.Named("gorm"), slow),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", dialector.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	maxOpen, maxIdle, lifetime := cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime
	if maxOpen <= 0 {
		maxOpen = 25
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	log.Infof("Opened %s database", dialector.Name())
	return &DBClient{DB: db, db: sqlDB, log: log}, nil
}

// NewDBClientWithPath opens a sqlite database at dbPath with default pool
// settings.
func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	return NewDBClient(config.DatabaseConfig{Driver: "sqlite", Path: dbPath})
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errors.New(errDBClientNil)
	}
	return c.db.PingContext(ctx)
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// notFound converts gorm's sentinel into ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

// ClearAll deletes every row, children before parents, in one transaction.
func (c *DBClient) ClearAll(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{
			&model.SongTag{}, &model.PlaylistSong{}, &model.Favorite{}, &model.PlayHistory{},
			&model.Playlist{}, &model.Song{}, &model.Tag{}, &model.VTuber{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clearing %T: %w", m, err)
			}
		}
		return nil
	})
}
