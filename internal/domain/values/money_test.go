package values_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racunko/racunko-backend/internal/domain/values"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		wantErr  bool
	}{
		{
			name:     "valid RSD amount",
			amount:   "4521.36",
			currency: "RSD",
		},
		{
			name:     "valid EUR amount",
			amount:   "15.00",
			currency: "EUR",
		},
		{
			name:     "lowercase currency accepted",
			amount:   "100",
			currency: "rsd",
		},
		{
			name:     "empty currency rejected",
			amount:   "10",
			currency: "",
			wantErr:  true,
		},
		{
			name:     "unsupported currency rejected",
			amount:   "10",
			currency: "XXX",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := values.NewMoneyFromString(tt.amount, tt.currency)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, derr := decimal.NewFromString(tt.amount)
			require.NoError(t, derr)
			assert.True(t, m.Amount().Equal(want))
			assert.Equal(t, strings.ToUpper(tt.currency), m.Currency(), "currency is normalized to upper case")
		})
	}
}

func TestMoney_WithinTolerance(t *testing.T) {
	tolerance := decimal.NewFromFloat(0.1)

	tests := []struct {
		name string
		a    values.Money
		b    values.Money
		want bool
	}{
		{
			name: "identical amounts",
			a:    values.MustNewMoneyFromString("4521.36", "RSD"),
			b:    values.MustNewMoneyFromString("4521.36", "RSD"),
			want: true,
		},
		{
			name: "rounding skew inside tolerance",
			a:    values.MustNewMoneyFromString("4521.36", "RSD"),
			b:    values.MustNewMoneyFromString("4521.40", "RSD"),
			want: true,
		},
		{
			name: "exactly at tolerance",
			a:    values.MustNewMoneyFromString("100.00", "RSD"),
			b:    values.MustNewMoneyFromString("100.10", "RSD"),
			want: true,
		},
		{
			name: "just outside tolerance",
			a:    values.MustNewMoneyFromString("100.00", "RSD"),
			b:    values.MustNewMoneyFromString("100.11", "RSD"),
			want: false,
		},
		{
			name: "tolerance is absolute, not relative",
			a:    values.MustNewMoneyFromString("100000.00", "RSD"),
			b:    values.MustNewMoneyFromString("100001.00", "RSD"),
			want: false,
		},
		{
			name: "different currencies never match",
			a:    values.MustNewMoneyFromString("100.00", "RSD"),
			b:    values.MustNewMoneyFromString("100.00", "EUR"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.WithinTolerance(tt.b, tolerance))
			assert.Equal(t, tt.want, tt.b.WithinTolerance(tt.a, tolerance), "tolerance check must be symmetric")
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := values.MustNewMoneyFromString("100.50", "RSD")
	b := values.MustNewMoneyFromString("50.25", "RSD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.75 RSD", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "50.25 RSD", diff.String())

	eur := values.MustNewMoneyFromString("10", "EUR")
	_, err = a.Add(eur)
	require.Error(t, err)
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := values.MustNewMoneyFromString("4521.36", "RSD")

	data, err := m.MarshalJSON()
	require.NoError(t, err)

	var decoded values.Money
	require.NoError(t, decoded.UnmarshalJSON(data))
	assert.True(t, m.Equal(decoded))
}
