package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name        string
		page, size  int
		offset, lim int
	}{
		{"first page", 1, 10, 0, 10},
		{"third page", 3, 10, 20, 10},
		{"zero page", 0, 10, 0, 10},
		{"default size", 1, 0, 0, DefaultPageSize},
		{"capped size", 2, 1000, MaxPageSize, MaxPageSize},
		{"capped page", MaxPage + 1, 10, (MaxPage - 1) * 10, 10},
		{"huge page", math.MaxInt, MaxPageSize, (MaxPage - 1) * MaxPageSize, MaxPageSize},
		{"negative page", math.MinInt, 10, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, lim := Calculate(tt.page, tt.size)
			assert.Equal(t, tt.offset, off)
			assert.Equal(t, tt.lim, lim)
		})
	}
}

func TestMeta(t *testing.T) {
	m := Meta(2, 10, 10, 25)
	assert.EqualValues(t, 3, m["total_pages"])
	assert.Equal(t, true, m["has_prev"])
	assert.Equal(t, true, m["has_next"])
}

func TestMeta_ClampsPage(t *testing.T) {
	off, lim := Calculate(math.MaxInt, 10)
	m := Meta(math.MaxInt, lim, off, 25)
	assert.Equal(t, MaxPage, m["page"])
	assert.Equal(t, false, m["has_next"])
	assert.GreaterOrEqual(t, off, 0)
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, ParseIntDefault("", 5))
	assert.Equal(t, 5, ParseIntDefault("x", 5))
	assert.Equal(t, 3, ParseIntDefault("3", 5))
}
