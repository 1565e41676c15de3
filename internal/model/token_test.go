package model

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 10.5 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("10.5")))

	d, err = ParseAmount("1e3")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(1000)))

	_, err = ParseAmount("ten")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAmountOutOfRange)

	for _, in := range []string{
		"1e-2000000000",
		"1e2000000000",
		"1e81",
		"1e-81",
		"1" + strings.Repeat("0", MaxAmountLen),
	} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, in)
	}
}

func TestToSmallestRounds(t *testing.T) {
	assert.Equal(t, big.NewInt(1_000_001), ToSmallest(decimal.RequireFromString("1.0000005"), NativeDecimals))
	assert.Equal(t, big.NewInt(1_000_000), ToSmallest(decimal.RequireFromString("1.0000004"), NativeDecimals))
	assert.True(t, FromSmallest(big.NewInt(1_500_000), NativeDecimals).Equal(decimal.RequireFromString("1.5")))
}
