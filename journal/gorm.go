package journal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DBConfig selects and tunes the SQL backend.
type DBConfig struct {
	Type            string // sqlite, postgres, mysql
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string // silent, error, warn, info
}

// GormStore keeps documents in a single SQL table.
type GormStore struct {
	db *gorm.DB
}

var _ Documents = (*GormStore)(nil)

// NewGormStore opens the database and migrates the documents table.
func NewGormStore(cfg DBConfig) (*GormStore, error) {
	var dialector gorm.Dialector

	switch cfg.Type {
	case "sqlite":
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(cfg.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return logger.Silent
	}
}

func ensureSQLiteDir(dsn string) error {
	if dsn == "" || dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}
	return nil
}

func (g *GormStore) Get(ctx context.Context, path string) (Document, error) {
	var doc Document
	err := g.db.WithContext(ctx).Where("path = ?", path).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Document{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (g *GormStore) Put(ctx context.Context, path string, data []byte) error {
	doc := Document{
		Path:       path,
		Collection: collectionOf(path),
		Data:       string(data),
		UpdatedAt:  time.Now().UTC(),
	}
	return g.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"collection", "data", "updated_at"}),
		}).
		Create(&doc).Error
}

func (g *GormStore) Delete(ctx context.Context, path string) error {
	res := g.db.WithContext(ctx).Where("path = ?", path).Delete(&Document{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return nil
}

func (g *GormStore) List(ctx context.Context, collection string) ([]Document, error) {
	var docs []Document
	err := g.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("path").
		Find(&docs).Error
	return docs, err
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
