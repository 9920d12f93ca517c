package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PrivilegeTaxCalculator 特权税方案：按车辆类别查表，取固定金额或税率。
// 未知类别直接报错而不是套用默认税率——默认会带来少收/多收风险。
type PrivilegeTaxCalculator struct{}

// Compute 计算特权税，税基由调度器先行算好传入。
// 类别表项给了固定金额则税额为该金额；否则税额 = 类别税率 × 税基。
func (PrivilegeTaxCalculator) Compute(tx *VehicleTransaction, rule *StateRule, base decimal.Decimal) (SchemeResult, error) {
	if len(rule.ClassTable) == 0 {
		return SchemeResult{}, fmt.Errorf("%w: %s: missing vehicle class table", ErrRegistryValidation, rule.Jurisdiction)
	}
	if tx.VehicleClass == "" {
		return SchemeResult{}, fmt.Errorf("%w: vehicle class is required for %s", ErrUnknownVehicleClass, rule.Jurisdiction)
	}

	entry, ok := rule.ClassTable[tx.VehicleClass]
	if !ok {
		return SchemeResult{}, fmt.Errorf("%w: %s has no entry for class %q", ErrUnknownVehicleClass, rule.Jurisdiction, tx.VehicleClass)
	}

	var tax decimal.Decimal
	var label string
	if entry.FlatAmount.IsPositive() {
		tax = entry.FlatAmount
		label = fmt.Sprintf("privilege tax flat amount, class %s", tx.VehicleClass)
	} else {
		tax = PercentageOf(base, entry.Rate)
		label = fmt.Sprintf("privilege tax rate %s, class %s", entry.Rate.String(), tx.VehicleClass)
	}

	lines := []LineItem{
		{Label: label, Amount: RoundMoney(tax), Classification: LineItemTax},
	}
	return SchemeResult{TaxableBase: base, Tax: tax, Lines: lines}, nil
}
