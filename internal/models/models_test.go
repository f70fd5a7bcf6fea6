package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		name     string
		original string
		sale     string
		want     int
	}{
		{"half off", "20", "10", 50},
		{"rounds up", "3", "2", 33},
		{"rounds half away", "8", "7", 13},
		{"no discount", "10", "10", 0},
		{"sale above original", "10", "12", 0},
		{"zero original", "0", "0", 0},
		{"zero sale", "10", "0", 0},
		{"tiny sale", "100", "0.01", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DiscountPercent(d(tt.original), d(tt.sale)))
		})
	}
}

func TestDiscountPercent_Bounds(t *testing.T) {
	for o := 1; o <= 60; o++ {
		for s := 1; s <= o; s++ {
			got := DiscountPercent(decimal.NewFromInt(int64(o)), decimal.NewFromInt(int64(s)))
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		}
	}
}

func TestSearchPage_HasMore(t *testing.T) {
	page := &SearchPage{TotalResults: 23, Page: 4, PageSize: 5}
	assert.True(t, page.HasMore())

	page.Page = 5
	assert.False(t, page.HasMore())

	page = &SearchPage{TotalResults: 0, Page: 1, PageSize: 5}
	assert.False(t, page.HasMore())
}

func TestProduct_Link(t *testing.T) {
	p := Product{DetailURL: "https://example.com/item/1.html"}
	assert.Equal(t, "https://example.com/item/1.html", p.Link())

	p.PromotionURL = "https://s.click.example.com/abc"
	assert.Equal(t, "https://s.click.example.com/abc", p.Link())
}
