package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/ui"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List popular categories, or the full category tree with --all",
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().Bool("all", false, "Fetch the full category tree from the gateway")
	categoriesCmd.Flags().String("format", formatTable, "Output format: json, table")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	var cats []models.Category
	if all {
		ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
		defer cancel()

		spin := ui.NewSpinner(cmd.ErrOrStderr())
		spin.Start("Fetching categories...")
		cats, err = a.catalog.Categories(ctx)
		spin.Stop()
		if err != nil {
			return fmt.Errorf("categories failed: %w", err)
		}
	} else {
		cats = a.catalog.PopularCategories()
	}

	out := cmd.OutOrStdout()
	if format == formatJSON {
		return writeJSON(out, cats)
	}
	printCategoriesTable(out, cats)
	return nil
}
