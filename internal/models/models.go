package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a normalized catalog item. Prices are already reconciled:
// SalePrice never exceeds OriginalPrice and DiscountPercent is derived from both.
type Product struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	OriginalPrice   decimal.Decimal `json:"original_price"`
	SalePrice       decimal.Decimal `json:"sale_price"`
	Currency        string          `json:"currency,omitempty"`
	DiscountPercent int             `json:"discount_percent,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	DetailURL       string          `json:"detail_url,omitempty"`
	PromotionURL    string          `json:"promotion_url,omitempty"`
	Rating          float64         `json:"rating,omitempty"`
	SalesVolume     int64           `json:"sales_volume,omitempty"`
	CategoryID      string          `json:"category_id,omitempty"`
	FetchedAt       time.Time       `json:"fetched_at"`
}

// Link returns the best outbound URL known for the product.
func (p Product) Link() string {
	if p.PromotionURL != "" {
		return p.PromotionURL
	}
	return p.DetailURL
}

// DiscountPercent returns round((original-sale)/original*100) when
// original > sale > 0, and 0 otherwise.
func DiscountPercent(original, sale decimal.Decimal) int {
	if !sale.IsPositive() || !original.GreaterThan(sale) {
		return 0
	}
	pct := original.Sub(sale).Div(original).Mul(decimal.NewFromInt(100)).Round(0)
	return int(pct.IntPart())
}

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// SearchPage is one page of search results. len(Products) <= PageSize.
type SearchPage struct {
	Products     []Product `json:"products"`
	TotalResults int       `json:"total_results"`
	Page         int       `json:"page"`
	PageSize     int       `json:"page_size"`
}

// HasMore reports whether a page after this one can contain results.
func (p *SearchPage) HasMore() bool {
	return p.TotalResults > p.Page*p.PageSize
}

type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username,omitempty"`
	FirstName   string    `json:"first_name,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
	TotalClicks int64     `json:"total_clicks"`
	Language    string    `json:"language"`
}

type ClickEvent struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ProductID    string    `json:"product_id"`
	ProductTitle string    `json:"product_title"`
	ClickedAt    time.Time `json:"clicked_at"`
}

type Favorite struct {
	UserID    int64           `json:"user_id"`
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}

// Stats aggregates a user's activity.
type Stats struct {
	UserID        int64     `json:"user_id"`
	TotalClicks   int64     `json:"total_clicks"`
	JoinedAt      time.Time `json:"joined_at"`
	FavoriteCount int64     `json:"favorite_count"`
}
