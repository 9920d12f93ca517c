package domain

import "fmt"

// AdValoremCalculator 从价税方案：税基为按车龄折旧后的公允价值，
// 税额 = 折旧后价值 × 州税率。折旧表按档（bracket）给出而非连续曲线。
type AdValoremCalculator struct{}

// Compute 计算从价税。
// 边界：车龄超过末档沿用末档系数；负车龄（未来车型年）落到零档。
// 车型年缺失直接拒绝：折旧档依赖车龄，缺失输入绝不允许静默选档。
func (AdValoremCalculator) Compute(tx *VehicleTransaction, rule *StateRule) (SchemeResult, error) {
	if len(rule.Depreciation) == 0 {
		return SchemeResult{}, fmt.Errorf("%w: %s: missing depreciation schedule", ErrRegistryValidation, rule.Jurisdiction)
	}
	if tx.ModelYear <= 0 {
		return SchemeResult{}, fmt.Errorf("%w: model year is required for ad-valorem assessment", ErrInvalidTransaction)
	}
	fmv := tx.FairMarketValue
	if fmv.IsZero() {
		// 没有单独评估值时退回成交价，这是各州从价税的常见兜底。
		fmv = tx.SalePrice
	}

	age := tx.VehicleAgeYears()
	bracket := rule.Depreciation[0]
	for _, b := range rule.Depreciation {
		if age >= b.MinAgeYears {
			bracket = b
		}
	}

	base := fmv.Mul(bracket.ValueFactor)
	tax := PercentageOf(base, rule.BaseRate)

	lines := []LineItem{
		{Label: "fair market value", Amount: RoundMoney(fmv), Classification: LineItemBase},
		{
			Label:          fmt.Sprintf("depreciation factor %s (vehicle age %dy, bracket %dy+)", bracket.ValueFactor.String(), age, bracket.MinAgeYears),
			Amount:         RoundMoney(base.Sub(fmv)),
			Classification: LineItemCredit,
		},
	}
	return SchemeResult{TaxableBase: base, Tax: tax, Lines: lines}, nil
}
