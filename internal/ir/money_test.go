package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"10", 1000},
		{"10.5", 1050},
		{"19.99", 1999},
		{"0.1", 10},
		{"-3.25", -325},
		{"1e1", 1000},
		{"0.005", 1},
		{"-0.005", -1},
		{"0.004", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoneyInvalid(t *testing.T) {
	_, err := ParseMoney("ten")
	assert.Error(t, err)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "20.00", Money(2000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-0.50", Money(-50).String())
}

func TestMoneyJSON(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"A","price":10.1,"category":{"id":1,"name":"c"}}`), &p))
	assert.Equal(t, Money(1010), p.Price)

	// 0.1 + 0.2 style inputs stay exact.
	var sum Money
	for _, s := range []string{`0.1`, `0.2`} {
		var m Money
		require.NoError(t, json.Unmarshal([]byte(s), &m))
		sum += m
	}
	assert.Equal(t, Money(30), sum)

	out, err := json.Marshal(Money(1050))
	require.NoError(t, err)
	assert.Equal(t, "10.50", string(out))
}

func TestMoneyTimes(t *testing.T) {
	assert.Equal(t, Money(2000), Money(1000).Times(2))
}
