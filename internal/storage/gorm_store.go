package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketagg/internal/model"
)

// GormStore is the Postgres-backed Store, grounded on the teacher's
// gorm.Open/AutoMigrate/connection-pool setup.
type GormStore struct {
	db *gorm.DB
}

// OpenGormStore dials Postgres, tunes the connection pool, and
// migrates the lines table.
func OpenGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.AutoMigrate(&model.Line{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &GormStore{db: db}, nil
}

func (s *GormStore) AddNewLine(ctx context.Context, line model.Line) error {
	return s.db.WithContext(ctx).Create(&line).Error
}

func (s *GormStore) GetSpreadHistory(ctx context.Context, pairLabel, symbol string, limit int) ([]model.Line, error) {
	var lines []model.Line
	q := s.db.WithContext(ctx).
		Where("pair_label = ? AND symbol = ?", pairLabel, symbol).
		Order("ts DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&lines).Error; err != nil {
		return nil, err
	}
	reverseLines(lines)
	return lines, nil
}

func (s *GormStore) GetLastSpreadOfAllExchangePairs(ctx context.Context) ([]model.Line, error) {
	var lines []model.Line
	err := s.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (pair_label) *
		FROM lines
		ORDER BY pair_label, ts DESC
	`).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func reverseLines(lines []model.Line) {
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
}
