package catalog

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lukman83/affiliate-gateway/internal/models"
)

// normalize is the single place where prices and discounts are derived.
func normalize(wp wireProduct, currency string, now time.Time) models.Product {
	original := parseDecimal(wp.TargetOriginalPrice)
	if original.IsZero() {
		original = parseDecimal(wp.OriginalPrice)
	}
	sale := parseDecimal(wp.TargetSalePrice)
	if sale.IsZero() {
		sale = parseDecimal(wp.SalePrice)
	}
	if sale.IsZero() {
		sale = original
	}
	// The sale price is what the buyer pays; never report an original below it.
	if sale.GreaterThan(original) {
		original = sale
	}

	if wp.TargetCurrency != "" {
		currency = wp.TargetCurrency
	}

	volume := parseCount(wp.SoldLast30Days)
	if volume == 0 {
		volume = parseCount(wp.LatestVolume)
	}

	return models.Product{
		ID:              string(wp.ProductID),
		Title:           strings.TrimSpace(wp.Title),
		OriginalPrice:   original,
		SalePrice:       sale,
		Currency:        currency,
		DiscountPercent: models.DiscountPercent(original, sale),
		ImageURL:        wp.MainImageURL,
		DetailURL:       wp.DetailURL,
		PromotionURL:    wp.PromotionLink,
		Rating:          parseRating(wp.EvaluateRate),
		SalesVolume:     volume,
		CategoryID:      string(wp.CategoryID),
		FetchedAt:       now,
	}
}

func normalizeAll(in []wireProduct, currency string) []models.Product {
	now := time.Now()
	out := make([]models.Product, 0, len(in))
	for _, wp := range in {
		out = append(out, normalize(wp, currency, now))
	}
	return out
}

// parseDecimal returns zero for empty, malformed or negative input.
func parseDecimal(s flexString) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(string(s), ",", ""))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// parseRating accepts "95.5%" or 95.5.
func parseRating(s flexString) float64 {
	v := strings.TrimSuffix(strings.TrimSpace(string(s)), "%")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

func parseCount(s flexString) int64 {
	v := strings.ReplaceAll(strings.TrimSuffix(string(s), "+"), ",", "")
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
