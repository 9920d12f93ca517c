package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adValoremRule() *StateRule {
	return &StateRule{
		Jurisdiction:  "GA",
		Scheme:        SchemeAdValorem,
		BaseRate:      decimal.RequireFromString("0.07"),
		TradeInPolicy: TradeInFull,
		Depreciation: []DepreciationBracket{
			{MinAgeYears: 0, ValueFactor: decimal.RequireFromString("1.00")},
			{MinAgeYears: 1, ValueFactor: decimal.RequireFromString("0.90")},
			{MinAgeYears: 3, ValueFactor: decimal.RequireFromString("0.70")},
			{MinAgeYears: 6, ValueFactor: decimal.RequireFromString("0.50")},
		},
	}
}

func TestAdValoremBracketSelection(t *testing.T) {
	calc := AdValoremCalculator{}
	regDate := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		modelYear int
		wantBase  string // 20000 FMV × factor
		wantTax   string
	}{
		{"new vehicle, bracket 0", 2026, "20000", "1400"},
		{"age 1", 2025, "18000", "1260"},
		{"age 2 stays in 1y bracket", 2024, "18000", "1260"},
		{"age 3", 2023, "14000", "980"},
		{"age beyond last bracket uses last", 2010, "10000", "700"},
		{"future model year clamps to bracket 0", 2027, "20000", "1400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &VehicleTransaction{
				FairMarketValue:  decimal.NewFromInt(20000),
				ModelYear:        tt.modelYear,
				RegistrationDate: regDate,
				Jurisdiction:     "GA",
			}
			res, err := calc.Compute(tx, adValoremRule())
			require.NoError(t, err)
			assert.True(t, res.TaxableBase.Equal(decimal.RequireFromString(tt.wantBase)),
				"base = %s, want %s", res.TaxableBase, tt.wantBase)
			assert.True(t, RoundMoney(res.Tax).Equal(decimal.RequireFromString(tt.wantTax)),
				"tax = %s, want %s", res.Tax, tt.wantTax)
		})
	}
}

// 车型年缺失必须报错，绝不允许静默落入最深折旧档少收税。
func TestAdValoremRejectsMissingModelYear(t *testing.T) {
	calc := AdValoremCalculator{}
	tx := &VehicleTransaction{
		FairMarketValue:  decimal.NewFromInt(20000),
		RegistrationDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		Jurisdiction:     "GA",
	}
	_, err := calc.Compute(tx, adValoremRule())
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

// 没有单独评估值时退回成交价。
func TestAdValoremFallsBackToSalePrice(t *testing.T) {
	calc := AdValoremCalculator{}
	tx := &VehicleTransaction{
		SalePrice:        decimal.NewFromInt(30000),
		ModelYear:        2026,
		RegistrationDate: time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC),
		Jurisdiction:     "GA",
	}
	res, err := calc.Compute(tx, adValoremRule())
	require.NoError(t, err)
	assert.True(t, res.TaxableBase.Equal(decimal.NewFromInt(30000)))
}

func useTaxRule(exclusive bool) *StateRule {
	return &StateRule{
		Jurisdiction:  "WA",
		Scheme:        SchemeUseTax,
		BaseRate:      decimal.RequireFromString("0.065"),
		TradeInPolicy: TradeInFull,
		UseTax: &UseTaxWindow{
			WindowDays:     90,
			Exclusive:      exclusive,
			InWindowRate:   decimal.RequireFromString("0.065"),
			PostWindowRate: decimal.Zero,
		},
	}
}

func TestUseTaxWindowBoundary(t *testing.T) {
	calc := UseTaxCalculator{}
	purchase := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	base := decimal.NewFromInt(10000)

	tests := []struct {
		name      string
		regOffset int
		exclusive bool
		wantTax   string
	}{
		{"well within window", 30, false, "650"},
		{"day 90 exactly is inclusive", 90, false, "650"},
		{"day 91 is post-window", 91, false, "0"},
		{"day 90 exactly with exclusive rule", 90, true, "0"},
		{"day 89 with exclusive rule", 89, true, "650"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &VehicleTransaction{
				PurchaseDate:     purchase,
				RegistrationDate: purchase.AddDate(0, 0, tt.regOffset),
				Jurisdiction:     "WA",
			}
			res, err := calc.Compute(tx, useTaxRule(tt.exclusive), base)
			require.NoError(t, err)
			assert.True(t, RoundMoney(res.Tax).Equal(decimal.RequireFromString(tt.wantTax)),
				"tax = %s, want %s", res.Tax, tt.wantTax)
		})
	}
}

// 起算日优先取外州缴税日。
func TestUseTaxReferenceDatePrefersPriorTax(t *testing.T) {
	calc := UseTaxCalculator{}
	purchase := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	tx := &VehicleTransaction{
		PurchaseDate:     purchase,
		RegistrationDate: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		Jurisdiction:     "WA",
		PriorTax: &PriorTax{
			Jurisdiction: "ID",
			AmountPaid:   decimal.NewFromInt(400),
			PaymentDate:  time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	// 从缴税日 12-01 到挂牌日 01-10 是 40 天，窗内。
	res, err := calc.Compute(tx, useTaxRule(false), decimal.NewFromInt(10000))
	require.NoError(t, err)
	assert.True(t, RoundMoney(res.Tax).Equal(decimal.NewFromInt(650)))
}

func TestUseTaxRejectsInvertedDates(t *testing.T) {
	calc := UseTaxCalculator{}
	tx := &VehicleTransaction{
		PurchaseDate:     time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		RegistrationDate: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Jurisdiction:     "WA",
	}
	_, err := calc.Compute(tx, useTaxRule(false), decimal.NewFromInt(10000))
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func privilegeRule() *StateRule {
	return &StateRule{
		Jurisdiction:  "OR",
		Scheme:        SchemePrivilege,
		BaseRate:      decimal.Zero,
		TradeInPolicy: TradeInNone,
		ClassTable: map[VehicleClass]ClassTaxEntry{
			VehicleClassPassenger:  {Rate: decimal.RequireFromString("0.005")},
			VehicleClassTruck:      {Rate: decimal.RequireFromString("0.005")},
			VehicleClassMotorcycle: {FlatAmount: decimal.NewFromInt(25)},
		},
	}
}

func TestPrivilegeTaxByClass(t *testing.T) {
	calc := PrivilegeTaxCalculator{}
	base := decimal.NewFromInt(40000)

	t.Run("rate entry", func(t *testing.T) {
		tx := &VehicleTransaction{VehicleClass: VehicleClassPassenger, Jurisdiction: "OR"}
		res, err := calc.Compute(tx, privilegeRule(), base)
		require.NoError(t, err)
		assert.True(t, RoundMoney(res.Tax).Equal(decimal.NewFromInt(200)))
	})

	t.Run("flat amount entry", func(t *testing.T) {
		tx := &VehicleTransaction{VehicleClass: VehicleClassMotorcycle, Jurisdiction: "OR"}
		res, err := calc.Compute(tx, privilegeRule(), base)
		require.NoError(t, err)
		assert.True(t, res.Tax.Equal(decimal.NewFromInt(25)))
	})

	// 未知类别报错，绝不套用默认税率。
	t.Run("unknown class fails", func(t *testing.T) {
		tx := &VehicleTransaction{VehicleClass: "HOVERCRAFT", Jurisdiction: "OR"}
		_, err := calc.Compute(tx, privilegeRule(), base)
		assert.ErrorIs(t, err, ErrUnknownVehicleClass)
	})

	t.Run("missing class fails", func(t *testing.T) {
		tx := &VehicleTransaction{Jurisdiction: "OR"}
		_, err := calc.Compute(tx, privilegeRule(), base)
		assert.ErrorIs(t, err, ErrUnknownVehicleClass)
	})
}
