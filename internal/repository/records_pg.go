package repository

import (
	"context"
	"fmt"

	"github.com/iamsernine/aptoseidon/internal/config"
	"github.com/iamsernine/aptoseidon/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// RecordRepo is the audit trail of settled analyses.
type RecordRepo interface {
	Insert(ctx context.Context, record *model.AnalysisRecord) error
	ListByWallet(ctx context.Context, walletAddress string, limit int) ([]model.AnalysisRecord, error)
}

type PostgresRecordRepo struct {
	db *gorm.DB
}

func NewDB(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return db, nil
}

func NewPostgresRecordRepo(db *gorm.DB) (*PostgresRecordRepo, error) {
	if err := db.AutoMigrate(&model.AnalysisRecord{}); err != nil {
		return nil, fmt.Errorf("migrate analysis records: %w", err)
	}
	return &PostgresRecordRepo{db: db}, nil
}

func (r *PostgresRecordRepo) Insert(ctx context.Context, record *model.AnalysisRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *PostgresRecordRepo) ListByWallet(ctx context.Context, walletAddress string, limit int) ([]model.AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []model.AnalysisRecord
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
