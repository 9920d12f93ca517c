// Package application 编排计税用例：校验请求、调用领域调度器、
// 缓存与落库、发布领域事件。计算本身全部发生在领域层。
package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
	"github.com/wyfcoding/vehicletax/pkg/utils"
)

// QuoteCache 计税结果缓存接口。引擎输出是确定性的，
// 同一请求摘要可以安全复用缓存结果。
type QuoteCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// QuoteRequest 计税请求。金额一律用字符串承载，由领域层转成精确小数，
// 绝不让二进制浮点进入计算路径。
type QuoteRequest struct {
	Jurisdiction     string         `json:"jurisdiction"`
	SalePrice        string         `json:"sale_price"`
	TradeInValue     string         `json:"trade_in_value"`
	FairMarketValue  string         `json:"fair_market_value"`
	VehicleClass     string         `json:"vehicle_class"`
	ModelYear        int            `json:"model_year"`
	PurchaseDate     string         `json:"purchase_date"`
	RegistrationDate string         `json:"registration_date"`
	Fees             []ChargeInput  `json:"fees"`
	Rebates          []RebateInput  `json:"rebates"`
	PriorTax         *PriorTaxInput `json:"prior_tax"`
}

// ChargeInput 请求中的一项费用。
type ChargeInput struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// RebateInput 请求中的一项返利。
type RebateInput struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Origin string `json:"origin"`
}

// PriorTaxInput 外州已缴税款记录。
type PriorTaxInput struct {
	Jurisdiction string `json:"jurisdiction"`
	AmountPaid   string `json:"amount_paid"`
	PaymentDate  string `json:"payment_date"`
}

// QuoteResult 计税用例的返回：带配额 ID 的完整明细。
type QuoteResult struct {
	QuoteID   string               `json:"quote_id"`
	Breakdown *domain.TaxBreakdown `json:"breakdown"`
	Cached    bool                 `json:"cached"`
}

const defaultQuoteCacheTTL = 10 * time.Minute

// TaxService 计税应用服务。
type TaxService struct {
	calculator *domain.TaxCalculator
	registry   *domain.Registry
	repo       domain.QuoteRepository
	publisher  domain.EventPublisher
	cache      QuoteCache
	cacheTTL   time.Duration
	idGen      *utils.SnowflakeID
	logger     *slog.Logger
}

// NewTaxService 组装计税应用服务。repo、publisher、cache 允许为 nil（纯库用法）。
func NewTaxService(
	calculator *domain.TaxCalculator,
	registry *domain.Registry,
	repo domain.QuoteRepository,
	publisher domain.EventPublisher,
	cache QuoteCache,
	idGen *utils.SnowflakeID,
	logger *slog.Logger,
) *TaxService {
	return &TaxService{
		calculator: calculator,
		registry:   registry,
		repo:       repo,
		publisher:  publisher,
		cache:      cache,
		cacheTTL:   defaultQuoteCacheTTL,
		idGen:      idGen,
		logger:     logger.With("service", "taxengine_application"),
	}
}

// SetCacheTTL 覆盖缓存过期时间，非正值忽略。
func (s *TaxService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// Quote 计算一笔交易的税款明细。
// 缓存命中直接返回；未命中则计算、落库、写 outbox，然后回填缓存。
func (s *TaxService) Quote(ctx context.Context, req *QuoteRequest) (*QuoteResult, error) {
	tx, err := req.toDomain()
	if err != nil {
		return nil, err
	}

	digest := req.digest()
	if s.cache != nil {
		var cached QuoteResult
		hit, err := s.cache.Get(ctx, digest, &cached)
		if err != nil {
			// 缓存故障不阻断计算，降级为直接计算。
			s.logger.WarnContext(ctx, "quote cache lookup failed", "error", err)
		} else if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	breakdown, err := s.calculator.CalculateTax(tx)
	if err != nil {
		return nil, err
	}

	quoteID := fmt.Sprintf("vtq_%d", s.idGen.Generate())
	result := &QuoteResult{QuoteID: quoteID, Breakdown: breakdown}
	computedAt := time.Now()

	if s.repo != nil {
		record := &domain.TaxQuoteRecord{
			QuoteID:      quoteID,
			Jurisdiction: breakdown.Jurisdiction,
			Scheme:       breakdown.Scheme,
			Breakdown:    breakdown,
			ComputedAt:   computedAt,
		}
		if err := s.repo.SaveQuote(ctx, record); err != nil {
			return nil, fmt.Errorf("save quote %s: %w", quoteID, err)
		}
	}

	if s.publisher != nil {
		event := domain.TaxQuoteComputedEvent{
			QuoteID:        quoteID,
			Jurisdiction:   breakdown.Jurisdiction,
			Scheme:         breakdown.Scheme,
			TaxableBase:    breakdown.TaxableBase.String(),
			TaxAmount:      breakdown.TaxAmount.String(),
			FinalAmountDue: breakdown.FinalAmountDue.String(),
			ComputedAt:     computedAt,
		}
		if err := s.publisher.PublishTaxQuoteComputed(event); err != nil {
			// 事件发布走 outbox，失败只影响下游通知，不回滚计税结果。
			s.logger.ErrorContext(ctx, "publish tax quote event failed", "quote_id", quoteID, "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, digest, result, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "quote cache store failed", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "tax quote computed",
		"quote_id", quoteID,
		"jurisdiction", breakdown.Jurisdiction,
		"scheme", breakdown.Scheme,
		"final_amount_due", breakdown.FinalAmountDue.String(),
	)
	return result, nil
}

// GetQuote 按 ID 查历史计税记录。
func (s *TaxService) GetQuote(ctx context.Context, quoteID string) (*domain.TaxQuoteRecord, error) {
	if s.repo == nil {
		return nil, domain.ErrQuoteNotFound
	}
	return s.repo.GetQuote(ctx, quoteID)
}

// ListQuotesByJurisdiction 查询某州最近的计税记录。
func (s *TaxService) ListQuotesByJurisdiction(ctx context.Context, code string, limit int) ([]*domain.TaxQuoteRecord, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if _, err := s.registry.Get(domain.JurisdictionCode(code)); err != nil {
		return nil, err
	}
	return s.repo.ListQuotesByJurisdiction(ctx, domain.JurisdictionCode(code), limit)
}

// ListJurisdictions 返回已注册的州代码。
func (s *TaxService) ListJurisdictions() []domain.JurisdictionCode {
	return s.registry.Codes()
}

// GetJurisdiction 返回一个州的税则描述符。
func (s *TaxService) GetJurisdiction(code string) (*domain.StateRule, error) {
	return s.registry.Get(domain.JurisdictionCode(code))
}

// toDomain 把请求转换为领域交易，所有金额走精确小数构造器。
func (r *QuoteRequest) toDomain() (*domain.VehicleTransaction, error) {
	tx := &domain.VehicleTransaction{
		Jurisdiction: domain.JurisdictionCode(r.Jurisdiction),
		VehicleClass: domain.VehicleClass(r.VehicleClass),
		ModelYear:    r.ModelYear,
	}

	var err error
	if tx.SalePrice, err = domain.NewMoney(orZero(r.SalePrice)); err != nil {
		return nil, fmt.Errorf("sale price: %w", err)
	}
	if tx.TradeInValue, err = domain.NewMoney(orZero(r.TradeInValue)); err != nil {
		return nil, fmt.Errorf("trade-in value: %w", err)
	}
	if tx.FairMarketValue, err = domain.NewMoney(orZero(r.FairMarketValue)); err != nil {
		return nil, fmt.Errorf("fair market value: %w", err)
	}
	if tx.PurchaseDate, err = parseDate(r.PurchaseDate); err != nil {
		return nil, err
	}
	if tx.RegistrationDate, err = parseDate(r.RegistrationDate); err != nil {
		return nil, err
	}

	for _, f := range r.Fees {
		amount, err := domain.NewMoney(orZero(f.Amount))
		if err != nil {
			return nil, fmt.Errorf("fee %q: %w", f.Name, err)
		}
		tx.Fees = append(tx.Fees, domain.Fee{Name: f.Name, Amount: amount})
	}
	for _, rb := range r.Rebates {
		amount, err := domain.NewMoney(orZero(rb.Amount))
		if err != nil {
			return nil, fmt.Errorf("rebate %q: %w", rb.Name, err)
		}
		tx.Rebates = append(tx.Rebates, domain.Rebate{
			Name:   rb.Name,
			Amount: amount,
			Origin: domain.RebateOrigin(rb.Origin),
		})
	}

	if r.PriorTax != nil {
		paid, err := domain.NewMoney(orZero(r.PriorTax.AmountPaid))
		if err != nil {
			return nil, fmt.Errorf("prior tax paid: %w", err)
		}
		paymentDate, err := parseDate(r.PriorTax.PaymentDate)
		if err != nil {
			return nil, err
		}
		tx.PriorTax = &domain.PriorTax{
			Jurisdiction: domain.JurisdictionCode(r.PriorTax.Jurisdiction),
			AmountPaid:   paid,
			PaymentDate:  paymentDate,
		}
	}

	return tx, nil
}

// digest 生成请求的确定性摘要作为缓存键。
func (r *QuoteRequest) digest() string {
	data, _ := json.Marshal(r)
	sum := sha256.Sum256(data)
	return "taxengine:quote:" + hex.EncodeToString(sum[:])
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q (want YYYY-MM-DD)", domain.ErrInvalidTransaction, s)
	}
	return t, nil
}
