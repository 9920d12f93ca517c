package domain

import (
	"context"
	"time"
)

// TaxQuoteRecord 一次计税的审计记录。引擎本身不做持久化，
// 落库由应用层在计算完成后交给仓储实现。
type TaxQuoteRecord struct {
	QuoteID      string
	Jurisdiction JurisdictionCode
	Scheme       Scheme
	Breakdown    *TaxBreakdown
	ComputedAt   time.Time
}

// QuoteRepository 计税记录仓储接口。
type QuoteRepository interface {
	SaveQuote(ctx context.Context, record *TaxQuoteRecord) error
	GetQuote(ctx context.Context, quoteID string) (*TaxQuoteRecord, error)
	ListQuotesByJurisdiction(ctx context.Context, code JurisdictionCode, limit int) ([]*TaxQuoteRecord, error)
}
