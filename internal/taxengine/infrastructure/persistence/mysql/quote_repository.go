// Package mysql 提供计税记录的 MySQL 持久化实现。
package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
)

// QuoteModel 计税记录的持久化模型，明细以 JSON 文本整体存储。
type QuoteModel struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	QuoteID      string    `gorm:"type:varchar(64);uniqueIndex"`
	Jurisdiction string    `gorm:"type:varchar(4);index"`
	Scheme       string    `gorm:"type:varchar(20)"`
	Breakdown    string    `gorm:"type:text"`
	ComputedAt   time.Time `gorm:"index"`
	CreatedAt    time.Time
}

// TableName 指定表名
func (QuoteModel) TableName() string {
	return "vehicle_tax_quotes"
}

type quoteRepository struct{ db *gorm.DB }

// NewQuoteRepository 创建计税记录仓储。
func NewQuoteRepository(db *gorm.DB) domain.QuoteRepository {
	return &quoteRepository{db: db}
}

// AutoMigrate 建表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&QuoteModel{})
}

func (r *quoteRepository) SaveQuote(ctx context.Context, record *domain.TaxQuoteRecord) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *quoteRepository) GetQuote(ctx context.Context, quoteID string) (*domain.TaxQuoteRecord, error) {
	var model QuoteModel
	err := r.db.WithContext(ctx).Where("quote_id = ?", quoteID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrQuoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(&model)
}

func (r *quoteRepository) ListQuotesByJurisdiction(ctx context.Context, code domain.JurisdictionCode, limit int) ([]*domain.TaxQuoteRecord, error) {
	var models []QuoteModel
	err := r.db.WithContext(ctx).
		Where("jurisdiction = ?", string(code)).
		Order("computed_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	records := make([]*domain.TaxQuoteRecord, 0, len(models))
	for i := range models {
		record, err := toDomain(&models[i])
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func toModel(record *domain.TaxQuoteRecord) (*QuoteModel, error) {
	payload, err := json.Marshal(record.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown for %s: %w", record.QuoteID, err)
	}
	return &QuoteModel{
		QuoteID:      record.QuoteID,
		Jurisdiction: string(record.Jurisdiction),
		Scheme:       string(record.Scheme),
		Breakdown:    string(payload),
		ComputedAt:   record.ComputedAt,
	}, nil
}

func toDomain(model *QuoteModel) (*domain.TaxQuoteRecord, error) {
	var breakdown domain.TaxBreakdown
	if err := json.Unmarshal([]byte(model.Breakdown), &breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown for %s: %w", model.QuoteID, err)
	}
	return &domain.TaxQuoteRecord{
		QuoteID:      model.QuoteID,
		Jurisdiction: domain.JurisdictionCode(model.Jurisdiction),
		Scheme:       domain.Scheme(model.Scheme),
		Breakdown:    &breakdown,
		ComputedAt:   model.ComputedAt,
	}, nil
}
