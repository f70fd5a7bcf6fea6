package catalog

import "github.com/lukman83/affiliate-gateway/internal/models"

// popularCategories is the fixed top-level menu offered to chat users.
var popularCategories = []models.Category{
	{ID: "44", Name: "Consumer Electronics"},
	{ID: "100003109", Name: "Women's Clothing"},
	{ID: "100003070", Name: "Men's Clothing"},
	{ID: "15", Name: "Home & Garden"},
	{ID: "1511", Name: "Watches"},
	{ID: "66", Name: "Beauty & Health"},
	{ID: "26", Name: "Toys & Hobbies"},
	{ID: "1501", Name: "Mother & Kids"},
	{ID: "18", Name: "Sports & Entertainment"},
	{ID: "36", Name: "Jewelry & Accessories"},
	{ID: "1524", Name: "Luggage & Bags"},
	{ID: "322", Name: "Shoes"},
}

// PopularCategories returns the curated category menu without a gateway call.
func (s *Service) PopularCategories() []models.Category {
	out := make([]models.Category, len(popularCategories))
	copy(out, popularCategories)
	return out
}
