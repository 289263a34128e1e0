package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("MARKET_TEST_INT", "42")
	t.Setenv("MARKET_TEST_BAD_INT", "x")
	t.Setenv("MARKET_TEST_DEC", "5.99")
	t.Setenv("MARKET_TEST_BAD_DEC", "five")

	assert.Equal(t, 42, EnvIntDefault("MARKET_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("MARKET_TEST_BAD_INT", 1))
	assert.Equal(t, 7, EnvIntDefault("MARKET_TEST_MISSING", 7))
	assert.Equal(t, "fallback", EnvDefault("MARKET_TEST_MISSING", "fallback"))

	assert.True(t, decimal.RequireFromString("5.99").Equal(EnvDecimalDefault("MARKET_TEST_DEC", decimal.Zero)))
	assert.True(t, decimal.NewFromInt(100).Equal(EnvDecimalDefault("MARKET_TEST_BAD_DEC", decimal.NewFromInt(100))))
}
