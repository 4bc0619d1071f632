package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/money"
)

func TestSplit(t *testing.T) {
	type args struct {
		total int64
		n     int
	}

	type testCase struct {
		name string
		args args
		want []int64
	}

	tests := []testCase{
		{name: "Single", args: args{total: 10000, n: 1}, want: []int64{10000}},
		{name: "Even", args: args{total: 9000, n: 3}, want: []int64{3000, 3000, 3000}},
		{name: "RemainderOnLast", args: args{total: 10000, n: 3}, want: []int64{3333, 3333, 3334}},
		{name: "RoundsUp", args: args{total: 20000, n: 3}, want: []int64{6667, 6667, 6666}},
		{name: "TruncatesWhenOvershooting", args: args{total: 15, n: 10}, want: []int64{1, 1, 1, 1, 1, 1, 1, 1, 1, 6}},
		{name: "FewerCentsThanParts", args: args{total: 1, n: 3}, want: []int64{0, 0, 1}},
		{name: "ZeroParts", args: args{total: 100, n: 0}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := money.Split(tt.args.total, tt.args.n)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplit_SumInvariant(t *testing.T) {
	totals := []int64{1, 2, 7, 15, 99, 100, 101, 9999, 10000, 33333, 123457, 99999999, 1000000000}

	for _, total := range totals {
		for n := 1; n <= 60; n++ {
			parts := money.Split(total, n)
			require.Len(t, parts, n)
			require.Equal(t, total, money.Sum(parts), "total=%d n=%d", total, n)

			for _, p := range parts {
				require.GreaterOrEqual(t, p, int64(0), "total=%d n=%d", total, n)
			}
		}
	}
}

func TestParse(t *testing.T) {
	type testCase struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}

	tests := []testCase{
		{name: "ProviderNotation", in: "250.00", want: 25000},
		{name: "ProviderNoDecimals", in: "250", want: 25000},
		{name: "BrazilianNotation", in: "1.234,56", want: 123456},
		{name: "CurrencyPrefix", in: "R$ 10,5", want: 1050},
		{name: "RoundsHalfUp", in: "0.005", want: 1},
		{name: "Empty", in: "  ", wantErr: true},
		{name: "Garbage", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.Parse(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, money.ErrInvalidAmount)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", money.Format(123456))
	assert.Equal(t, "R$ 0,05", money.Format(5))
	assert.Equal(t, "-R$ 250,00", money.Format(-25000))
}
