package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/yungbote/pathprogress/internal/domain/progress"
	"github.com/yungbote/pathprogress/internal/platform/logger"
)

type cacheRow struct {
	CacheKey  string         `gorm:"column:cache_key;primaryKey"`
	Payload   datatypes.JSON `gorm:"column:payload;type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

func (cacheRow) TableName() string { return "progress_cache" }

// SQLite persists records to a local database file, one row per key.
type SQLite struct {
	db  *gorm.DB
	log *logger.Logger
}

// OpenSQLite opens (creating if needed) the database file at path. ":memory:" works too.
func OpenSQLite(path string, baseLog *logger.Logger) (*SQLite, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create cache dir: %w", err)
			}
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	// Single writer; keeps ":memory:" on one connection.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return NewSQLite(db, baseLog)
}

func NewSQLite(db *gorm.DB, baseLog *logger.Logger) (*SQLite, error) {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if err := db.AutoMigrate(&cacheRow{}); err != nil {
		return nil, fmt.Errorf("migrate progress cache: %w", err)
	}
	return &SQLite{db: db, log: baseLog.With("cache", "sqlite")}, nil
}

func (c *SQLite) Load(ctx context.Context) (map[string]*types.PathProgress, error) {
	var rows []cacheRow
	if err := c.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]*types.PathProgress, len(rows))
	for _, r := range rows {
		var p types.PathProgress
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			c.log.Warn("dropping unreadable cache row", "cache_key", r.CacheKey, "error", err)
			continue
		}
		out[r.CacheKey] = &p
	}
	return out, nil
}

func (c *SQLite) Save(ctx context.Context, records map[string]*types.PathProgress) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]cacheRow, 0, len(records))
	for k, p := range records {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode %s: %w", k, err)
		}
		rows = append(rows, cacheRow{CacheKey: k, Payload: datatypes.JSON(raw), UpdatedAt: now})
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (c *SQLite) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
