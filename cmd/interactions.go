package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lukman83/affiliate-gateway/internal/models"
)

var clickCmd = &cobra.Command{
	Use:   "click [user-id] [product-id]",
	Short: "Record a click and print the purchase link",
	Args:  cobra.ExactArgs(2),
	RunE:  runClick,
}

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage a user's favorite products",
}

var favAddCmd = &cobra.Command{
	Use:   "add [user-id] [product-id]",
	Short: "Save a product to the user's favorites",
	Args:  cobra.ExactArgs(2),
	RunE:  runFavAdd,
}

var favRemoveCmd = &cobra.Command{
	Use:   "remove [user-id] [product-id]",
	Short: "Remove a product from the user's favorites",
	Args:  cobra.ExactArgs(2),
	RunE:  runFavRemove,
}

var favListCmd = &cobra.Command{
	Use:   "list [user-id]",
	Short: "List the user's favorites, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavList,
}

var statsCmd = &cobra.Command{
	Use:   "stats [user-id]",
	Short: "Show a user's clicks and favorites",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().Int("recent", 0, "Also list this many recent clicks")
	favoritesCmd.AddCommand(favAddCmd, favRemoveCmd, favListCmd)
	rootCmd.AddCommand(clickCmd, favoritesCmd, statsCmd)
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", s)
	}
	return id, nil
}

// withStore runs fn with an app that has the interaction store open.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(appOptions{store: true, quiet: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()
	return fn(ctx, a)
}

func runClick(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, a *app) error {
		products, err := a.catalog.Details(ctx, []string{args[1]})
		if err != nil {
			return fmt.Errorf("details failed: %w", err)
		}
		if len(products) == 0 {
			return fmt.Errorf("product %s not found", args[1])
		}
		p := products[0]

		if err := a.store.EnsureUser(ctx, userID, "", ""); err != nil {
			return err
		}
		if err := a.store.RecordClick(ctx, userID, p.ID, p.Title); err != nil {
			return err
		}

		link := p.Link()
		if promo, ok := a.catalog.PromotionLink(ctx, p.DetailURL); ok {
			link = promo
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	})
}

func runFavAdd(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, a *app) error {
		products, err := a.catalog.Details(ctx, []string{args[1]})
		if err != nil {
			return fmt.Errorf("details failed: %w", err)
		}
		if len(products) == 0 {
			return fmt.Errorf("product %s not found", args[1])
		}
		p := products[0]

		if err := a.store.EnsureUser(ctx, userID, "", ""); err != nil {
			return err
		}
		res, err := a.store.AddFavorite(ctx, models.Favorite{
			UserID:    userID,
			ProductID: p.ID,
			Title:     p.Title,
			ImageURL:  p.ImageURL,
			Price:     p.SalePrice,
			AddedAt:   time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res)
		return nil
	})
}

func runFavRemove(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, a *app) error {
		return a.store.RemoveFavorite(ctx, userID, args[1])
	})
}

func runFavList(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withStore(cmd, func(ctx context.Context, a *app) error {
		favs, err := a.store.ListFavorites(ctx, userID)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), favs)
	})
}

func runStats(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	recent, _ := cmd.Flags().GetInt("recent")
	return withStore(cmd, func(ctx context.Context, a *app) error {
		st, err := a.store.Stats(ctx, userID)
		if err != nil {
			return err
		}
		if recent <= 0 {
			return writeJSON(cmd.OutOrStdout(), st)
		}
		clicks, err := a.store.RecentClicks(ctx, userID, recent)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), struct {
			*models.Stats
			RecentClicks []models.ClickEvent `json:"recent_clicks"`
		}{st, clicks})
	})
}
