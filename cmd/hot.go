package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/affiliate-gateway/internal/platform"
	"github.com/lukman83/affiliate-gateway/internal/ui"
)

var hotCmd = &cobra.Command{
	Use:     "hot",
	Aliases: []string{"trending"},
	Short:   "Get best-selling products",
	RunE:    runHot,
}

func init() {
	hotCmd.Flags().String("category", "", "Category id filter")
	hotCmd.Flags().Bool("links", false, "Generate promotion links for each result")
	hotCmd.Flags().String("format", formatJSON, "Output format: json, table")
	rootCmd.AddCommand(hotCmd)
}

func runHot(cmd *cobra.Command, args []string) error {
	category, _ := cmd.Flags().GetString("category")
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
	spin.Start("Fetching best sellers...")
	ctx = platform.WithProgress(ctx, platform.Messages(spin.Update))
	products, err := a.catalog.HotProducts(ctx, category)
	if err == nil && withLinks {
		attachLinks(products, a.catalog.PromotionLinks(ctx, products))
	}
	spin.Stop()
	if err != nil {
		return fmt.Errorf("hot products failed: %w", err)
	}

	return writeProducts(cmd.OutOrStdout(), format, products)
}
