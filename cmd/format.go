package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lukman83/affiliate-gateway/internal/models"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeProducts(w io.Writer, format string, products []models.Product) error {
	if format == formatTable {
		printProductsTable(w, products)
		return nil
	}
	return writeJSON(w, products)
}

// printProductsTable prints products in a human-friendly card layout.
func printProductsTable(w io.Writer, products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}
	for i, p := range products {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, " %d. %s  [%s]\n", i+1, truncate(p.Title, 90), p.ID)

		// Price line with optional original price and discount
		priceLine := "    Price: " + formatPrice(p.SalePrice, p.Currency)
		if p.DiscountPercent > 0 {
			priceLine += fmt.Sprintf("  (was %s, -%d%%)", formatPrice(p.OriginalPrice, p.Currency), p.DiscountPercent)
		}
		if p.Rating > 0 {
			priceLine += fmt.Sprintf("  |  Rating: %.1f%%", p.Rating)
		}
		priceLine += fmt.Sprintf("  |  Sold: %d", p.SalesVolume)
		fmt.Fprintln(w, priceLine)

		if p.PromotionURL != "" {
			fmt.Fprintf(w, "    Buy: %s\n", p.PromotionURL)
		}
		if p.DetailURL != "" {
			fmt.Fprintf(w, "    %s\n", cleanURL(p.DetailURL))
		}
	}
}

func printCategoriesTable(w io.Writer, cats []models.Category) {
	for _, c := range cats {
		if c.ParentID != "" {
			fmt.Fprintf(w, "   %-12s %s (in %s)\n", c.ID, c.Name, c.ParentID)
			continue
		}
		fmt.Fprintf(w, " %-14s %s\n", c.ID, c.Name)
	}
}

// formatPrice formats a price as "12.50 USD".
func formatPrice(d decimal.Decimal, currency string) string {
	s := d.StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// cleanURL strips tracking query params and returns just the product page URL.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.RawQuery = ""
	return u.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// attachLinks copies resolved promotion links onto products.
func attachLinks(products []models.Product, links map[string]string) {
	for i := range products {
		if link, ok := links[products[i].ID]; ok {
			products[i].PromotionURL = link
		}
	}
}

func trimAll(ss []string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
