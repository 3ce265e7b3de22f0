package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNoRecord is returned when the index has no row for a tile.
var ErrNoRecord = errors.New("no index record")

// Manager owns the tile index connection.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager. sqlitePath is used directly
// for the sqlite index and as the fallback when Postgres is unreachable.
func NewManager(log zerolog.Logger, sqlitePath string) *Manager {
	return &Manager{
		IsValid:        false,
		SqliteFilePath: sqlitePath,
		Logger:         log,
	}
}

// Connect opens the index. With kind "postgres" it tries Postgres first and
// falls back to SQLite if that fails.
func (m *Manager) Connect(kind string) error {
	var err error

	switch kind {
	case "postgres":
		m.DB, err = m.GetPostgresDB()
		if err == nil {
			m.SqlDB, err = m.DB.DB()
		}
		if err == nil {
			err = m.SqlDB.Ping()
		}
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
			m.ShouldSaveLocal = true
		} else {
			m.Logger.Info().Msg("Connected to database")
			m.SqlDB.SetMaxOpenConns(10)
		}
	case "sqlite", "":
		m.ShouldSaveLocal = true
	default:
		return fmt.Errorf("unknown index type: %s", kind)
	}

	if m.ShouldSaveLocal {
		m.DB, err = m.GetSqliteDB(m.SqliteFilePath)
		if err != nil || m.DB == nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		m.SqlDB, err = m.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		// sqlite allows a single writer
		m.SqlDB.SetMaxOpenConns(1)
	}

	m.IsValid = true
	return nil
}

// GetPostgresDB returns a connection to the Postgres database.
func (m *Manager) GetPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)

	m.Logger.Debug().
		Str("host", viper.GetString("db.host")).
		Str("database", viper.GetString("db.database")).
		Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDB returns a connection to a SQLite database file.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		m.IsValid = false
		return nil, err
	}
	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite tile index")
	} else {
		m.Logger.Info().Msg("Using in-memory SQLite tile index")
	}

	// set PRAGMAS
	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -8000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// Setup migrates the index schema.
func (m *Manager) Setup() error {
	if m.DB == nil {
		return errors.New("db not connected")
	}
	m.Logger.Info().Msg("Migrating schema")
	if err := m.DB.AutoMigrate(&TileRecord{}); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	m.IsValid = false
	return m.SqlDB.Close()
}

// UpsertTile inserts rec or replaces the row with the same tile address.
func (m *Manager) UpsertTile(rec *TileRecord) error {
	return m.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}, {Name: "zoom"}, {Name: "x"}, {Name: "y"}},
		DoUpdates: clause.AssignmentColumns([]string{"path", "size", "checksum", "fetched_at", "meta"}),
	}).Create(rec).Error
}

// FindTile returns the index row for a tile address.
func (m *Manager) FindTile(source string, zoom, x, y int) (TileRecord, error) {
	var rec TileRecord
	err := m.DB.Where("source = ? AND zoom = ? AND x = ? AND y = ?", source, zoom, x, y).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return TileRecord{}, ErrNoRecord
	}
	return rec, err
}

// DeleteTile removes the index row for a tile address.
func (m *Manager) DeleteTile(source string, zoom, x, y int) error {
	return m.DB.Where("source = ? AND zoom = ? AND x = ? AND y = ?", source, zoom, x, y).
		Delete(&TileRecord{}).Error
}

// TilesFetchedBefore returns every row fetched before t.
func (m *Manager) TilesFetchedBefore(t time.Time) ([]TileRecord, error) {
	var recs []TileRecord
	err := m.DB.Where("fetched_at < ?", t).Find(&recs).Error
	return recs, err
}

// AllTiles returns every row.
func (m *Manager) AllTiles() ([]TileRecord, error) {
	var recs []TileRecord
	err := m.DB.Find(&recs).Error
	return recs, err
}

// DeleteAllTiles empties the index.
func (m *Manager) DeleteAllTiles() error {
	return m.DB.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TileRecord{}).Error
}
