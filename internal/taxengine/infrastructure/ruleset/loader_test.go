package ruleset

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/vehicletax/internal/taxengine/domain"
)

// 内嵌数据集必须能完整加载并通过全部校验——这是启动期契约。
func TestLoadEmbeddedDataset(t *testing.T) {
	reg, rr, err := LoadEmbedded()
	require.NoError(t, err)
	assert.Equal(t, 50, reg.Len())
	assert.Greater(t, rr.Len(), 0)
}

func TestEmbeddedDatasetSpotChecks(t *testing.T) {
	reg, _, err := LoadEmbedded()
	require.NoError(t, err)

	tx, err := reg.Get("TX")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeFlat, tx.Scheme)
	assert.True(t, tx.BaseRate.Equal(decimal.RequireFromString("0.0625")))
	assert.Equal(t, domain.TradeInFull, tx.TradeInPolicy)

	mi, err := reg.Get("MI")
	require.NoError(t, err)
	assert.Equal(t, domain.TradeInCapped, mi.TradeInPolicy)
	assert.True(t, mi.TradeInCap.IsPositive())

	ga, err := reg.Get("GA")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeAdValorem, ga.Scheme)
	assert.NotEmpty(t, ga.Depreciation)

	wa, err := reg.Get("WA")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeUseTax, wa.Scheme)
	require.NotNil(t, wa.UseTax)
	assert.Equal(t, 90, wa.UseTax.WindowDays)

	or, err := reg.Get("OR")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemePrivilege, or.Scheme)
	assert.NotEmpty(t, or.ClassTable)

	mt, err := reg.Get("MT")
	require.NoError(t, err)
	assert.Equal(t, domain.SchemeNone, mt.Scheme)

	// 共用应税性策略表合并进了每个州。
	entry, ok := tx.Taxability["manufacturer_rebate"]
	require.True(t, ok)
	assert.Equal(t, domain.TaxabilityConditional, entry.Code)
}

func TestLoadRegistryRejectsMalformedYAML(t *testing.T) {
	_, err := LoadRegistry([]byte("jurisdictions: {not: a list}"))
	assert.ErrorIs(t, err, domain.ErrRegistryValidation)
}

func TestLoadRegistryRejectsBadRate(t *testing.T) {
	data := []byte(`
jurisdictions:
  - code: XX
    name: Test
    scheme: FLAT
    base_rate: "1.5"
    trade_in: FULL
`)
	_, err := LoadRegistry(data)
	assert.ErrorIs(t, err, domain.ErrRegistryValidation)
}

func TestLoadRegistryRejectsUnparseableAmount(t *testing.T) {
	data := []byte(`
jurisdictions:
  - code: XX
    name: Test
    scheme: FLAT
    base_rate: "0.05"
    trade_in: CAPPED
    trade_in_cap: "lots"
`)
	_, err := LoadRegistry(data)
	assert.ErrorIs(t, err, domain.ErrRegistryValidation)
}

func TestLoadReciprocityRejectsBadFactor(t *testing.T) {
	data := []byte(`
pairs:
  - { origin: CA, destination: NV, mode: PARTIAL, factor: "half" }
`)
	_, err := LoadReciprocity(data)
	assert.ErrorIs(t, err, domain.ErrRegistryValidation)
}

// 州内表项覆盖共用默认表项。
func TestLoadRegistryStateOverridesDefault(t *testing.T) {
	data := []byte(`
default_taxability:
  doc_fee: { code: TAXABLE }
jurisdictions:
  - code: XX
    name: Test
    scheme: FLAT
    base_rate: "0.05"
    trade_in: FULL
    taxability:
      doc_fee: { code: EXEMPT }
`)
	reg, err := LoadRegistry(data)
	require.NoError(t, err)
	rule, err := reg.Get("XX")
	require.NoError(t, err)
	assert.Equal(t, domain.TaxabilityExempt, rule.Taxability["doc_fee"].Code)
}
