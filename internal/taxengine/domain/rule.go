package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// JurisdictionCode 州缩写（两位字母），必须能在规则注册表中唯一解析。
type JurisdictionCode string

// Scheme 计税方案。每个州恰好选择一种方案。
type Scheme string

const (
	// SchemeFlat 平税率：tax = rate × base。
	SchemeFlat Scheme = "FLAT"
	// SchemeAdValorem 从价税：按折旧后的公允价值计税（如 GA 的 TAVT）。
	SchemeAdValorem Scheme = "AD_VALOREM"
	// SchemeUseTax 时间窗用税：税率取决于起算日到挂牌日的间隔是否落在窗口内。
	SchemeUseTax Scheme = "USE_TAX_WINDOW"
	// SchemePrivilege 特权税：按车辆类别查表取平税率或固定金额。
	SchemePrivilege Scheme = "PRIVILEGE"
	// SchemeNone 无车辆销售税的州（AK/DE/MT/NH/OR 等）。
	SchemeNone Scheme = "NONE"
)

// TradeInPolicy 置换抵扣政策。
type TradeInPolicy string

const (
	// TradeInFull 置换车价值全额抵减税基。
	TradeInFull TradeInPolicy = "FULL"
	// TradeInCapped 置换抵扣设上限（如 MI）。
	TradeInCapped TradeInPolicy = "CAPPED"
	// TradeInNone 不允许置换抵扣（如 CA）。
	TradeInNone TradeInPolicy = "NONE"
)

// TaxabilityCode 费用/返利应税性分类结果的闭集。
type TaxabilityCode string

const (
	TaxabilityTaxable     TaxabilityCode = "TAXABLE"
	TaxabilityExempt      TaxabilityCode = "EXEMPT"
	TaxabilityConditional TaxabilityCode = "CONDITIONAL"
)

// TaxabilityCondition 条件应税的声明式谓词，例如
// {Field: "rebate_origin", Equals: "MANUFACTURER"} 表示仅厂家返利应税。
type TaxabilityCondition struct {
	Field  string
	Equals string
}

// 条件谓词可引用的交易字段。
const (
	ConditionFieldRebateOrigin = "rebate_origin"
	ConditionFieldVehicleClass = "vehicle_class"
)

// TaxabilityEntry 策略表中的一条：费用名 → 应税/免税/条件应税。
type TaxabilityEntry struct {
	Code      TaxabilityCode
	Condition *TaxabilityCondition
}

// DepreciationBracket 从价税折旧档：车龄 ≥ MinAgeYears 时公允价值乘 ValueFactor。
// 档位按 MinAgeYears 升序排列；超过末档的车龄沿用末档系数。
type DepreciationBracket struct {
	MinAgeYears int
	ValueFactor decimal.Decimal
}

// UseTaxWindow 时间窗用税参数。间隔 ≤ WindowDays 适用 InWindowRate，
// 否则适用 PostWindowRate；Exclusive 为 true 时边界日按窗外处理。
type UseTaxWindow struct {
	WindowDays     int
	Exclusive      bool
	InWindowRate   decimal.Decimal
	PostWindowRate decimal.Decimal
}

// ClassTaxEntry 特权税类别表中的一条：税率或固定金额二选一。
type ClassTaxEntry struct {
	Rate       decimal.Decimal
	FlatAmount decimal.Decimal
}

// StateRule 是一个州的声明式税则描述符。
// 注册表加载后不可变，可在任意多并发计算间无锁共享。
type StateRule struct {
	Jurisdiction  JurisdictionCode
	Name          string
	Scheme        Scheme
	BaseRate      decimal.Decimal
	TradeInPolicy TradeInPolicy
	TradeInCap    decimal.Decimal
	DocFeeCap     decimal.Decimal
	Taxability    map[string]TaxabilityEntry

	// 方案参数表，仅对应方案使用。
	Depreciation []DepreciationBracket
	UseTax       *UseTaxWindow
	ClassTable   map[VehicleClass]ClassTaxEntry
}

var validSchemes = map[Scheme]bool{
	SchemeFlat:      true,
	SchemeAdValorem: true,
	SchemeUseTax:    true,
	SchemePrivilege: true,
	SchemeNone:      true,
}

var validTradeInPolicies = map[TradeInPolicy]bool{
	TradeInFull:   true,
	TradeInCapped: true,
	TradeInNone:   true,
}

// Validate 校验单条州规则。任何一条规则非法都会导致注册表整体构建失败，
// 绝不允许坏规则静默作用于线上交易。
func (r *StateRule) Validate() error {
	if r.Jurisdiction == "" {
		return fmt.Errorf("%w: jurisdiction code is empty", ErrRegistryValidation)
	}
	if !validSchemes[r.Scheme] {
		return fmt.Errorf("%w: %s: unsupported scheme %q", ErrRegistryValidation, r.Jurisdiction, r.Scheme)
	}
	if err := ValidateRate(r.BaseRate); err != nil {
		return fmt.Errorf("%w: %s: base rate: %v", ErrRegistryValidation, r.Jurisdiction, err)
	}
	if !validTradeInPolicies[r.TradeInPolicy] {
		return fmt.Errorf("%w: %s: unsupported trade-in policy %q", ErrRegistryValidation, r.Jurisdiction, r.TradeInPolicy)
	}
	if r.TradeInPolicy == TradeInCapped && !r.TradeInCap.IsPositive() {
		return fmt.Errorf("%w: %s: capped trade-in policy requires a positive cap", ErrRegistryValidation, r.Jurisdiction)
	}
	if r.TradeInCap.IsNegative() {
		return fmt.Errorf("%w: %s: trade-in cap must be non-negative", ErrRegistryValidation, r.Jurisdiction)
	}
	if r.DocFeeCap.IsNegative() {
		return fmt.Errorf("%w: %s: doc fee cap must be non-negative", ErrRegistryValidation, r.Jurisdiction)
	}
	for name, entry := range r.Taxability {
		if err := entry.validate(); err != nil {
			return fmt.Errorf("%w: %s: taxability entry %q: %v", ErrRegistryValidation, r.Jurisdiction, name, err)
		}
	}
	return r.validateSchemeTables()
}

func (e TaxabilityEntry) validate() error {
	switch e.Code {
	case TaxabilityTaxable, TaxabilityExempt:
		return nil
	case TaxabilityConditional:
		if e.Condition == nil {
			return fmt.Errorf("conditional entry has no condition")
		}
		switch e.Condition.Field {
		case ConditionFieldRebateOrigin, ConditionFieldVehicleClass:
			return nil
		default:
			return fmt.Errorf("unknown condition field %q", e.Condition.Field)
		}
	default:
		return fmt.Errorf("unknown taxability code %q", e.Code)
	}
}

func (r *StateRule) validateSchemeTables() error {
	switch r.Scheme {
	case SchemeAdValorem:
		if len(r.Depreciation) == 0 {
			return fmt.Errorf("%w: %s: ad-valorem scheme requires a depreciation schedule", ErrRegistryValidation, r.Jurisdiction)
		}
		prev := -1
		for i, b := range r.Depreciation {
			if b.MinAgeYears <= prev && i > 0 {
				return fmt.Errorf("%w: %s: depreciation brackets must be strictly increasing by age", ErrRegistryValidation, r.Jurisdiction)
			}
			if b.ValueFactor.IsNegative() || b.ValueFactor.GreaterThan(decimal.NewFromInt(1)) {
				return fmt.Errorf("%w: %s: depreciation factor %s not in [0, 1]", ErrRegistryValidation, r.Jurisdiction, b.ValueFactor)
			}
			prev = b.MinAgeYears
		}
		if r.Depreciation[0].MinAgeYears != 0 {
			return fmt.Errorf("%w: %s: first depreciation bracket must start at age 0", ErrRegistryValidation, r.Jurisdiction)
		}
	case SchemeUseTax:
		if r.UseTax == nil {
			return fmt.Errorf("%w: %s: use-tax scheme requires a window", ErrRegistryValidation, r.Jurisdiction)
		}
		if r.UseTax.WindowDays <= 0 {
			return fmt.Errorf("%w: %s: use-tax window must be positive", ErrRegistryValidation, r.Jurisdiction)
		}
		if err := ValidateRate(r.UseTax.InWindowRate); err != nil {
			return fmt.Errorf("%w: %s: in-window rate: %v", ErrRegistryValidation, r.Jurisdiction, err)
		}
		if err := ValidateRate(r.UseTax.PostWindowRate); err != nil {
			return fmt.Errorf("%w: %s: post-window rate: %v", ErrRegistryValidation, r.Jurisdiction, err)
		}
	case SchemePrivilege:
		if len(r.ClassTable) == 0 {
			return fmt.Errorf("%w: %s: privilege scheme requires a vehicle class table", ErrRegistryValidation, r.Jurisdiction)
		}
		for class, entry := range r.ClassTable {
			if err := ValidateRate(entry.Rate); err != nil {
				return fmt.Errorf("%w: %s: class %s rate: %v", ErrRegistryValidation, r.Jurisdiction, class, err)
			}
			if entry.FlatAmount.IsNegative() {
				return fmt.Errorf("%w: %s: class %s flat amount must be non-negative", ErrRegistryValidation, r.Jurisdiction, class)
			}
		}
	}
	return nil
}
