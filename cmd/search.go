package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/lukman83/affiliate-gateway/internal/catalog"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
	"github.com/lukman83/affiliate-gateway/internal/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search [keywords...]",
	Short: "Search products by keyword and filters",
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("page", 1, "Page number")
	searchCmd.Flags().Int("limit", catalog.DefaultPageSize, "Products per page")
	searchCmd.Flags().Int("pages", 1, "Fetch this many pages starting at 1 (ignores --page)")
	searchCmd.Flags().String("category", "", "Category id filter")
	searchCmd.Flags().String("min-price", "", "Minimum sale price")
	searchCmd.Flags().String("max-price", "", "Maximum sale price")
	searchCmd.Flags().String("sort", platform.SortDefault, "Sort: default, SALE_PRICE_ASC, SALE_PRICE_DESC, LAST_VOLUME_ASC, LAST_VOLUME_DESC")
	searchCmd.Flags().Bool("links", false, "Generate promotion links for each result")
	searchCmd.Flags().String("format", formatJSON, "Output format: json, table")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := searchQueryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if q.Keywords == "" && q.CategoryID == "" {
		return errors.New("give keywords or --category")
	}
	pages, _ := cmd.Flags().GetInt("pages")
	withLinks, _ := cmd.Flags().GetBool("links")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	spin := ui.NewSpinner(cmd.ErrOrStderr())
	spin.Start(fmt.Sprintf("Searching '%s'...", q.Keywords))
	ctx = platform.WithProgress(ctx, platform.Messages(spin.Update))

	var (
		page     *models.SearchPage
		products []models.Product
	)
	if pages > 1 {
		products, err = a.catalog.SearchPages(ctx, q, pages)
	} else {
		page, err = a.catalog.Search(ctx, q)
		if page != nil {
			products = page.Products
		}
	}
	if err == nil && withLinks {
		attachLinks(products, a.catalog.PromotionLinks(ctx, products))
	}
	spin.Stop()
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if format == formatTable {
		if page != nil {
			fmt.Fprintf(out, "%d results, page %d (more: %v)\n\n", page.TotalResults, page.Page, page.HasMore())
		}
		printProductsTable(out, products)
		return nil
	}
	if page != nil {
		return writeJSON(out, page)
	}
	return writeJSON(out, products)
}

func searchQueryFromFlags(cmd *cobra.Command, args []string) (platform.SearchQuery, error) {
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")
	category, _ := cmd.Flags().GetString("category")
	sort, _ := cmd.Flags().GetString("sort")

	q := platform.SearchQuery{
		Keywords:   strings.Join(args, " "),
		Page:       page,
		PageSize:   limit,
		CategoryID: category,
		Sort:       sort,
	}
	var err error
	if q.MinPrice, err = priceFlag(cmd, "min-price"); err != nil {
		return q, err
	}
	if q.MaxPrice, err = priceFlag(cmd, "max-price"); err != nil {
		return q, err
	}
	if q.MinPrice.IsPositive() && q.MaxPrice.IsPositive() && q.MinPrice.GreaterThan(q.MaxPrice) {
		return q, errors.New("--min-price is above --max-price")
	}
	return q, nil
}

func priceFlag(cmd *cobra.Command, name string) (decimal.Decimal, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid --%s %q", name, v)
	}
	return d, nil
}
