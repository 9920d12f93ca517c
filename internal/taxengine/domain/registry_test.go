package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFlatRule(code JurisdictionCode) *StateRule {
	return &StateRule{
		Jurisdiction:  code,
		Scheme:        SchemeFlat,
		BaseRate:      decimal.RequireFromString("0.06"),
		TradeInPolicy: TradeInFull,
		Taxability: map[string]TaxabilityEntry{
			"doc_fee": {Code: TaxabilityTaxable},
		},
	}
}

func TestRegistryLoadAndGet(t *testing.T) {
	reg, err := NewRegistry([]*StateRule{validFlatRule("TX"), validFlatRule("FL")})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	rule, err := reg.Get("TX")
	require.NoError(t, err)
	assert.Equal(t, JurisdictionCode("TX"), rule.Jurisdiction)

	assert.Equal(t, []JurisdictionCode{"FL", "TX"}, reg.Codes())
}

func TestRegistryUnknownJurisdiction(t *testing.T) {
	reg, err := NewRegistry([]*StateRule{validFlatRule("TX")})
	require.NoError(t, err)

	_, err = reg.Get("ZZ")
	assert.ErrorIs(t, err, ErrUnknownJurisdiction)
	assert.False(t, reg.Has("ZZ"))
}

// 任何一条规则非法即整体构建失败：坏规则绝不静默上线。
func TestRegistryRejectsMalformedRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*StateRule)
	}{
		{"rate above 1", func(r *StateRule) { r.BaseRate = decimal.RequireFromString("1.5") }},
		{"negative rate", func(r *StateRule) { r.BaseRate = decimal.RequireFromString("-0.01") }},
		{"unsupported scheme", func(r *StateRule) { r.Scheme = "LOTTERY" }},
		{"unsupported trade-in policy", func(r *StateRule) { r.TradeInPolicy = "HALF" }},
		{"capped trade-in without cap", func(r *StateRule) { r.TradeInPolicy = TradeInCapped }},
		{"negative doc fee cap", func(r *StateRule) { r.DocFeeCap = decimal.NewFromInt(-1) }},
		{"conditional entry without condition", func(r *StateRule) {
			r.Taxability["rebate"] = TaxabilityEntry{Code: TaxabilityConditional}
		}},
		{"condition references unknown field", func(r *StateRule) {
			r.Taxability["rebate"] = TaxabilityEntry{
				Code:      TaxabilityConditional,
				Condition: &TaxabilityCondition{Field: "moon_phase", Equals: "full"},
			}
		}},
		{"ad-valorem without schedule", func(r *StateRule) { r.Scheme = SchemeAdValorem }},
		{"use-tax without window", func(r *StateRule) { r.Scheme = SchemeUseTax }},
		{"privilege without class table", func(r *StateRule) { r.Scheme = SchemePrivilege }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validFlatRule("TX")
			tt.mutate(rule)
			_, err := NewRegistry([]*StateRule{rule})
			assert.ErrorIs(t, err, ErrRegistryValidation)
		})
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry([]*StateRule{validFlatRule("TX"), validFlatRule("TX")})
	assert.ErrorIs(t, err, ErrRegistryValidation)
}

func TestRegistryRejectsEmptyRuleSet(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.ErrorIs(t, err, ErrRegistryValidation)
}

func TestRegistryValidatesSchemeTables(t *testing.T) {
	t.Run("depreciation brackets must start at age 0", func(t *testing.T) {
		rule := validFlatRule("GA")
		rule.Scheme = SchemeAdValorem
		rule.Depreciation = []DepreciationBracket{
			{MinAgeYears: 1, ValueFactor: decimal.RequireFromString("0.9")},
		}
		_, err := NewRegistry([]*StateRule{rule})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("depreciation factor above 1 rejected", func(t *testing.T) {
		rule := validFlatRule("GA")
		rule.Scheme = SchemeAdValorem
		rule.Depreciation = []DepreciationBracket{
			{MinAgeYears: 0, ValueFactor: decimal.RequireFromString("1.2")},
		}
		_, err := NewRegistry([]*StateRule{rule})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("use-tax window must be positive", func(t *testing.T) {
		rule := validFlatRule("WA")
		rule.Scheme = SchemeUseTax
		rule.UseTax = &UseTaxWindow{WindowDays: 0, InWindowRate: decimal.Zero, PostWindowRate: decimal.Zero}
		_, err := NewRegistry([]*StateRule{rule})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})

	t.Run("privilege class rate validated", func(t *testing.T) {
		rule := validFlatRule("OR")
		rule.Scheme = SchemePrivilege
		rule.ClassTable = map[VehicleClass]ClassTaxEntry{
			VehicleClassPassenger: {Rate: decimal.RequireFromString("2.0")},
		}
		_, err := NewRegistry([]*StateRule{rule})
		assert.ErrorIs(t, err, ErrRegistryValidation)
	})
}
