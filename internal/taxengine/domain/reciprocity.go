package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReciprocityMode 互惠抵免模式。
type ReciprocityMode string

const (
	// ReciprocityFull 全额抵免：credit = min(已缴, 应缴)。
	ReciprocityFull ReciprocityMode = "FULL"
	// ReciprocityPartial 部分/封顶抵免：credit = min(已缴 × factor, 应缴, cap)。
	ReciprocityPartial ReciprocityMode = "PARTIAL"
	// ReciprocityNone 无互惠协议：credit = 0。
	ReciprocityNone ReciprocityMode = "NONE"
)

// WildcardJurisdiction 配对表中的通配来源/目的州。
const WildcardJurisdiction JurisdictionCode = "*"

// ReciprocityPolicy 一个 (origin, destination) 配对的抵免政策。
type ReciprocityPolicy struct {
	Mode   ReciprocityMode
	Factor decimal.Decimal // PARTIAL 模式的折算系数，(0, 1]
	Cap    decimal.Decimal // PARTIAL 模式的抵免上限，零表示不封顶
}

// Validate 校验配对政策。
func (p ReciprocityPolicy) Validate() error {
	switch p.Mode {
	case ReciprocityFull, ReciprocityNone:
		return nil
	case ReciprocityPartial:
		if !p.Factor.IsPositive() || p.Factor.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("partial factor %s not in (0, 1]", p.Factor)
		}
		if p.Cap.IsNegative() {
			return fmt.Errorf("partial cap must be non-negative")
		}
		return nil
	default:
		return fmt.Errorf("unknown reciprocity mode %q", p.Mode)
	}
}

type reciprocityKey struct {
	origin      JurisdictionCode
	destination JurisdictionCode
}

// ReciprocityResolver 互惠抵免解析器：在 (origin, destination) 配对表上查找政策。
// 配对缺失一律按无抵免处理（宁可全额征税、不可误发抵免的兜底）。
// 同一 destination 下，具体 (origin, destination) 表项优先于 (origin, *) 通配项。
type ReciprocityResolver struct {
	policies map[reciprocityKey]ReciprocityPolicy
}

// ReciprocityPair 配对表加载输入。
type ReciprocityPair struct {
	Origin      JurisdictionCode
	Destination JurisdictionCode
	Policy      ReciprocityPolicy
}

// NewReciprocityResolver 构建解析器并校验全部配对。与州规则注册表一样，
// 任何一条配对非法即整体构建失败。
func NewReciprocityResolver(pairs []ReciprocityPair) (*ReciprocityResolver, error) {
	m := make(map[reciprocityKey]ReciprocityPolicy, len(pairs))
	for _, p := range pairs {
		if p.Origin == "" || p.Destination == "" {
			return nil, fmt.Errorf("%w: reciprocity pair with empty jurisdiction", ErrRegistryValidation)
		}
		if err := p.Policy.Validate(); err != nil {
			return nil, fmt.Errorf("%w: reciprocity %s->%s: %v", ErrRegistryValidation, p.Origin, p.Destination, err)
		}
		key := reciprocityKey{origin: p.Origin, destination: p.Destination}
		if _, dup := m[key]; dup {
			return nil, fmt.Errorf("%w: duplicate reciprocity pair %s->%s", ErrRegistryValidation, p.Origin, p.Destination)
		}
		m[key] = p.Policy
	}
	return &ReciprocityResolver{policies: m}, nil
}

// ReciprocityResult 抵免结果。不变量：Credit ≤ min(已缴, 应缴)。
type ReciprocityResult struct {
	Mode   ReciprocityMode
	Credit decimal.Decimal
	// Overage 是可用抵免额超出本州应缴税额的部分（即多缴部分），
	// 仅作报告，绝不折成负的应缴额。
	Overage decimal.Decimal
}

// ResolveCredit 计算 destination 州应给予的抵免。
func (rr *ReciprocityResolver) ResolveCredit(origin, destination JurisdictionCode, priorTaxPaid, destinationTaxOwed decimal.Decimal) ReciprocityResult {
	policy := rr.lookup(origin, destination)

	// available 是政策口径下可用的抵免额（未被应缴额封顶前）。
	var available decimal.Decimal
	switch policy.Mode {
	case ReciprocityFull:
		available = priorTaxPaid
	case ReciprocityPartial:
		available = ApplyCap(priorTaxPaid.Mul(policy.Factor), policy.Cap)
	default:
		available = decimal.Zero
	}

	// 抵免上界永远是 min(已缴, 应缴)，无论政策如何配置。
	credit := MinMoney(available, MinMoney(priorTaxPaid, destinationTaxOwed))
	credit = ClampNonNegative(credit)

	return ReciprocityResult{
		Mode:    policy.Mode,
		Credit:  credit,
		Overage: ClampNonNegative(available.Sub(destinationTaxOwed)),
	}
}

// lookup 按优先级取政策：精确配对 > (origin, *) 通配 > 无抵免。
func (rr *ReciprocityResolver) lookup(origin, destination JurisdictionCode) ReciprocityPolicy {
	if p, ok := rr.policies[reciprocityKey{origin: origin, destination: destination}]; ok {
		return p
	}
	if p, ok := rr.policies[reciprocityKey{origin: origin, destination: WildcardJurisdiction}]; ok {
		return p
	}
	return ReciprocityPolicy{Mode: ReciprocityNone}
}

// Len 返回配对数量。
func (rr *ReciprocityResolver) Len() int {
	return len(rr.policies)
}
