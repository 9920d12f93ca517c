package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UseTaxCalculator 时间窗用税方案：起算日（外州缴税日或购车日）到挂牌日的
// 间隔落在窗口内适用窗内税率，否则适用窗外税率（可能为零，即免税）。
type UseTaxCalculator struct{}

// Compute 计算时间窗用税，税基由调度器先行算好传入。
// 边界：间隔恰等于窗口天数（第 90 天整）按窗内处理，除非规则声明 Exclusive。
func (UseTaxCalculator) Compute(tx *VehicleTransaction, rule *StateRule, base decimal.Decimal) (SchemeResult, error) {
	if rule.UseTax == nil {
		return SchemeResult{}, fmt.Errorf("%w: %s: missing use-tax window", ErrRegistryValidation, rule.Jurisdiction)
	}

	ref := tx.UseTaxReferenceDate()
	reg := tx.RegistrationDate
	if reg.IsZero() {
		reg = tx.PurchaseDate
	}
	if ref.IsZero() || reg.IsZero() {
		return SchemeResult{}, fmt.Errorf("%w: use-tax scheme requires a reference date and a registration date", ErrInvalidTransaction)
	}
	if reg.Before(ref) {
		return SchemeResult{}, fmt.Errorf("%w: registration date precedes reference date", ErrInvalidTransaction)
	}

	days := wholeDaysBetween(ref, reg)
	w := rule.UseTax
	inWindow := days < w.WindowDays || (days == w.WindowDays && !w.Exclusive)

	rate := w.PostWindowRate
	label := fmt.Sprintf("post-window rate %s (interval %dd > %dd window)", rate.String(), days, w.WindowDays)
	if inWindow {
		rate = w.InWindowRate
		label = fmt.Sprintf("in-window rate %s (interval %dd within %dd window)", rate.String(), days, w.WindowDays)
	}

	tax := PercentageOf(base, rate)
	lines := []LineItem{
		{Label: label, Amount: RoundMoney(tax), Classification: LineItemTax},
	}
	return SchemeResult{TaxableBase: base, Tax: tax, Lines: lines}, nil
}

// wholeDaysBetween 返回两个日期之间的整日数（按日历日截断，忽略时分秒）。
func wholeDaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f).Hours() / 24)
}
