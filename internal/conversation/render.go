package conversation

import (
	"fmt"
	"strings"

	"github.com/lukman83/affiliate-gateway/internal/models"
)

const maxCardTitle = 100

// Card renders a product as a plain-text message body.
func Card(p models.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", truncateRunes(p.Title, maxCardTitle))
	fmt.Fprintf(&b, "Price: %s %s\n", p.SalePrice.StringFixed(2), p.Currency)
	if p.DiscountPercent > 0 {
		fmt.Fprintf(&b, "Discount: %d%% (was %s)\n", p.DiscountPercent, p.OriginalPrice.StringFixed(2))
	}
	if p.Rating > 0 {
		fmt.Fprintf(&b, "Rating: %.1f%%\n", p.Rating)
	}
	fmt.Fprintf(&b, "Sold: %d+\n", p.SalesVolume)
	if link := p.Link(); link != "" {
		fmt.Fprintf(&b, "%s\n", link)
	}
	fmt.Fprintf(&b, "/buy %s  /fav %s", p.ID, p.ID)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

const welcomeText = `Hi %s!

I can help you shop the catalog:
- /search to find any product
- /hot for best sellers
- /categories to browse by category
- /favorites for the products you saved
- /stats for your activity

Send /help at any time.`

const helpText = `Commands:
/search [keywords] - search products (or just type what you want)
/next - next page of the last search
/hot [category id] - best selling products
/categories [all] - popular categories, or the full tree with "all"
/category <id> - products in a category
/fav <product id> - save a product
/unfav <product id> - remove a saved product
/favorites - list saved products
/buy <product id> - get the purchase link
/stats - your activity
/lang [code] - show or change your language
/cancel - cancel the current prompt`
