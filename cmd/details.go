package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var detailsCmd = &cobra.Command{
	Use:   "details [product-id...]",
	Short: "Show full details for products",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetails,
}

var linkCmd = &cobra.Command{
	Use:   "link [url]",
	Short: "Generate a tracked promotion link for a product URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

func init() {
	detailsCmd.Flags().String("format", formatJSON, "Output format: json, table")
	rootCmd.AddCommand(detailsCmd, linkCmd)
}

func runDetails(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	a, err := newApp(appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	products, err := a.catalog.Details(ctx, trimAll(args))
	if err != nil {
		return fmt.Errorf("details failed: %w", err)
	}
	return writeProducts(cmd.OutOrStdout(), format, products)
}

func runLink(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	link, ok := a.catalog.PromotionLink(ctx, args[0])
	if !ok {
		return errors.New("could not generate a promotion link")
	}
	fmt.Fprintln(cmd.OutOrStdout(), link)
	return nil
}
