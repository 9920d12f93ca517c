// Package domain 包含车辆税计算引擎的领域模型、规则注册表和计算服务。
// 这是领域驱动设计（DDD）中的核心层：纯计算，无 I/O，无共享可变状态。
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale 是对外可见金额的小数位数。所有最终金额按该精度四舍五入；
// 多步公式的中间值保留全部精度，除非某条州规则明确要求对子结果取整。
const MoneyScale = 2

// NewMoney 从字符串构造金额。非法或非数字输入返回 ErrInvalidMoneyValue。
func NewMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidMoneyValue, s)
	}
	return d, nil
}

// NewRate 从字符串构造税率。税率必须落在 [0, 1] 区间，否则返回 ErrInvalidRate。
func NewRate(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	if err := ValidateRate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ValidateRate 校验税率区间 [0, 1]。
func ValidateRate(r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s not in [0, 1]", ErrInvalidRate, r.String())
	}
	return nil
}

// RoundMoney 将金额四舍五入到分（half-up）。
// 幂等：RoundMoney(RoundMoney(x)) == RoundMoney(x)。
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// SumMoney 求和，不做中间取整。
func SumMoney(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// PercentageOf 按税率计算金额的百分比部分，保留全部精度。
func PercentageOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate)
}

// DivMoney 金额除法。除数为零返回 ErrDivisionByZero。
func DivMoney(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.Div(b), nil
}

// ApplyCap 对金额施加上限：cap 为正时返回 min(v, cap)，否则原样返回。
func ApplyCap(v, cap decimal.Decimal) decimal.Decimal {
	if cap.IsPositive() && v.GreaterThan(cap) {
		return cap
	}
	return v
}

// MinMoney 返回两者中较小的金额。
func MinMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

// MaxMoney 返回两者中较大的金额。
func MaxMoney(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThanOrEqual(b) {
		return a
	}
	return b
}

// ClampNonNegative 将负值截断为零。税基与应纳税额永远不为负。
func ClampNonNegative(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
