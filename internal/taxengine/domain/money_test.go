package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"exact cents untouched", "1650.00", "1650"},
		{"half rounds up", "8.875", "8.88"},
		{"below half rounds down", "8.8749", "8.87"},
		{"repeating decimal", "33.333333", "33.33"},
		{"sub-cent collapses to zero", "0.001", "0"},
		{"large amount", "1234567.895", "1234567.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := decimal.RequireFromString(tt.input)
			got := RoundMoney(d)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"RoundMoney(%s) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

// 取整幂等：round(round(x)) == round(x)。
func TestRoundMoneyIdempotent(t *testing.T) {
	for _, s := range []string{"0.005", "99.994999", "12.125", "0.999999", "1650.004"} {
		d := decimal.RequireFromString(s)
		once := RoundMoney(d)
		twice := RoundMoney(once)
		assert.True(t, once.Equal(twice), "rounding %s is not idempotent: %s != %s", s, once, twice)
	}
}

// 加法与独立取整后的和一致（中间不取整）。
func TestSumMoneyMatchesRoundedSum(t *testing.T) {
	pairs := [][2]string{
		{"0.105", "0.105"},
		{"19.995", "0.005"},
		{"1234.56", "0.444"},
		{"0.01", "0.02"},
	}
	for _, p := range pairs {
		a := decimal.RequireFromString(p[0])
		b := decimal.RequireFromString(p[1])
		got := RoundMoney(SumMoney(a, b))
		want := RoundMoney(a.Add(b))
		assert.True(t, got.Equal(want), "sum(%s, %s) = %s, want %s", p[0], p[1], got, want)
	}
}

func TestNewMoney(t *testing.T) {
	d, err := NewMoney("30000.00")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(30000)))

	_, err = NewMoney("not-a-number")
	assert.ErrorIs(t, err, ErrInvalidMoneyValue)

	_, err = NewMoney("")
	assert.ErrorIs(t, err, ErrInvalidMoneyValue)
}

func TestNewRate(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"0", false},
		{"0.0825", false},
		{"1", false},
		{"1.0001", true},
		{"-0.01", true},
		{"abc", true},
	}
	for _, tt := range tests {
		_, err := NewRate(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRate, "rate %q should be rejected", tt.input)
		} else {
			assert.NoError(t, err, "rate %q should be accepted", tt.input)
		}
	}
}

func TestDivMoney(t *testing.T) {
	a := decimal.NewFromInt(100)
	got, err := DivMoney(a, decimal.NewFromInt(4))
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.NewFromInt(25)))

	_, err = DivMoney(a, decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestApplyCap(t *testing.T) {
	v := decimal.NewFromInt(60000)
	cap := decimal.NewFromInt(30000)
	assert.True(t, ApplyCap(v, cap).Equal(cap))
	assert.True(t, ApplyCap(cap, v).Equal(cap))
	// 零上限表示不封顶。
	assert.True(t, ApplyCap(v, decimal.Zero).Equal(v))
}

func TestClampNonNegative(t *testing.T) {
	assert.True(t, ClampNonNegative(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, ClampNonNegative(decimal.NewFromInt(5)).Equal(decimal.NewFromInt(5)))
	assert.True(t, ClampNonNegative(decimal.Zero).IsZero())
}

func TestPercentageOfKeepsPrecision(t *testing.T) {
	base := decimal.RequireFromString("123.45")
	rate := decimal.RequireFromString("0.0725")
	// 123.45 × 0.0725 = 8.950125，最终取整到 8.95。
	raw := PercentageOf(base, rate)
	assert.True(t, raw.Equal(decimal.RequireFromString("8.950125")))
	assert.True(t, RoundMoney(raw).Equal(decimal.RequireFromString("8.95")))
}

func TestMinMaxMoney(t *testing.T) {
	a := decimal.NewFromInt(800)
	b := decimal.NewFromInt(1200)
	assert.True(t, MinMoney(a, b).Equal(a))
	assert.True(t, MaxMoney(a, b).Equal(b))
	assert.True(t, MinMoney(a, a).Equal(a))
}
