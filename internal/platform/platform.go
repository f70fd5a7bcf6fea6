package platform

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/lukman83/affiliate-gateway/internal/models"
)

// Sort orders accepted by Search.
const (
	SortDefault    = "default"
	SortPriceAsc   = "SALE_PRICE_ASC"
	SortPriceDesc  = "SALE_PRICE_DESC"
	SortVolumeAsc  = "LAST_VOLUME_ASC"
	SortVolumeDesc = "LAST_VOLUME_DESC"
)

// SearchQuery describes one page of a keyword search. Zero-valued optional
// filters are not sent.
type SearchQuery struct {
	Keywords   string
	Page       int
	PageSize   int
	CategoryID string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
	Sort       string
}

// Catalog is the read side consumed by adapters. Failures are *gateway.Error.
type Catalog interface {
	Search(ctx context.Context, q SearchQuery) (*models.SearchPage, error)
	Details(ctx context.Context, productIDs []string) ([]models.Product, error)
	HotProducts(ctx context.Context, categoryID string) ([]models.Product, error)
	Categories(ctx context.Context) ([]models.Category, error)
	PopularCategories() []models.Category
	// PromotionLink is best effort: ok is false on any failure.
	PromotionLink(ctx context.Context, sourceURL string) (link string, ok bool)
	// PromotionLinks resolves links per product ID; products whose link
	// could not be generated are absent from the map.
	PromotionLinks(ctx context.Context, products []models.Product) map[string]string
}

// AddResult is the outcome of adding a favorite.
type AddResult int

const (
	Added AddResult = iota + 1
	AlreadyExists
)

func (r AddResult) String() string {
	switch r {
	case Added:
		return "added"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// ErrUserNotFound is returned for operations on a user that was never ensured.
var ErrUserNotFound = errors.New("user not found")

// Interactions is the persistent record of users, clicks and favorites.
type Interactions interface {
	EnsureUser(ctx context.Context, id int64, username, firstName string) error
	RecordClick(ctx context.Context, userID int64, productID, title string) error
	AddFavorite(ctx context.Context, fav models.Favorite) (AddResult, error)
	RemoveFavorite(ctx context.Context, userID int64, productID string) error
	ListFavorites(ctx context.Context, userID int64) ([]models.Favorite, error)
	Stats(ctx context.Context, userID int64) (*models.Stats, error)
	User(ctx context.Context, userID int64) (*models.User, error)
	SetLanguage(ctx context.Context, userID int64, lang string) error
}
