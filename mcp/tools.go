package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lukman83/affiliate-gateway/internal/gateway"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
)

func (s *Server) registerTools() {
	// search_products
	s.mcp.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search the affiliate catalog by keyword, category and price range"),
		mcp.WithString("keywords", mcp.Description("Search keywords")),
		mcp.WithString("category_id", mcp.Description("Category id filter")),
		mcp.WithString("min_price", mcp.Description("Minimum sale price")),
		mcp.WithString("max_price", mcp.Description("Maximum sale price")),
		mcp.WithString("sort",
			mcp.Description("Sort order"),
			mcp.Enum(platform.SortDefault, platform.SortPriceAsc, platform.SortPriceDesc, platform.SortVolumeAsc, platform.SortVolumeDesc),
		),
		mcp.WithNumber("page", mcp.Description("Page number (default: 1)")),
		mcp.WithNumber("page_size", mcp.Description("Products per page (default: 10, max: 50)")),
		mcp.WithBoolean("with_links", mcp.Description("Resolve promotion links for each product")),
	), s.handleSearchProducts)

	// get_hot_products
	s.mcp.AddTool(mcp.NewTool("get_hot_products",
		mcp.WithDescription("Get best-selling products, optionally within a category"),
		mcp.WithString("category_id", mcp.Description("Category id filter")),
	), s.handleHotProducts)

	// get_categories
	s.mcp.AddTool(mcp.NewTool("get_categories",
		mcp.WithDescription("List popular categories, or every category when all is true"),
		mcp.WithBoolean("all", mcp.Description("Fetch the full category tree from the gateway")),
	), s.handleCategories)

	// product_details
	s.mcp.AddTool(mcp.NewTool("product_details",
		mcp.WithDescription("Get full product details by product id"),
		mcp.WithString("product_ids",
			mcp.Required(),
			mcp.Description("Comma separated product ids"),
		),
	), s.handleProductDetails)

	// promotion_link
	s.mcp.AddTool(mcp.NewTool("promotion_link",
		mcp.WithDescription("Generate a tracked promotion link for a product URL"),
		mcp.WithString("url", mcp.Required(), mcp.Description("Product page URL")),
	), s.handlePromotionLink)

	// record_click
	s.mcp.AddTool(mcp.NewTool("record_click",
		mcp.WithDescription("Record that a user followed a product link and return the link"),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Product id")),
	), s.handleRecordClick)

	// add_favorite
	s.mcp.AddTool(mcp.NewTool("add_favorite",
		mcp.WithDescription("Save a product to a user's favorites"),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Product id")),
	), s.handleAddFavorite)

	// remove_favorite
	s.mcp.AddTool(mcp.NewTool("remove_favorite",
		mcp.WithDescription("Remove a product from a user's favorites"),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User id")),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Product id")),
	), s.handleRemoveFavorite)

	// list_favorites
	s.mcp.AddTool(mcp.NewTool("list_favorites",
		mcp.WithDescription("List a user's favorites, newest first"),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User id")),
	), s.handleListFavorites)

	// user_stats
	s.mcp.AddTool(mcp.NewTool("user_stats",
		mcp.WithDescription("Get a user's click and favorite counters"),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("User id")),
	), s.handleUserStats)
}

func (s *Server) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q := platform.SearchQuery{
		Keywords:   request.GetString("keywords", ""),
		CategoryID: request.GetString("category_id", ""),
		Sort:       request.GetString("sort", platform.SortDefault),
		Page:       request.GetInt("page", 1),
		PageSize:   request.GetInt("page_size", 0),
	}
	if q.Keywords == "" && q.CategoryID == "" {
		return mcp.NewToolResultError("keywords or category_id is required"), nil
	}
	var err error
	if q.MinPrice, err = priceArg(request, "min_price"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if q.MaxPrice, err = priceArg(request, "max_price"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := s.catalog.Search(ctx, q)
	if err != nil {
		return s.toolError("search", err), nil
	}
	if request.GetBool("with_links", false) {
		links := s.catalog.PromotionLinks(ctx, page.Products)
		for i := range page.Products {
			if link, ok := links[page.Products[i].ID]; ok {
				page.Products[i].PromotionURL = link
			}
		}
	}
	return jsonResult(struct {
		*models.SearchPage
		HasMore bool `json:"has_more"`
	}{page, page.HasMore()})
}

func (s *Server) handleHotProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	products, err := s.catalog.HotProducts(ctx, request.GetString("category_id", ""))
	if err != nil {
		return s.toolError("hot products", err), nil
	}
	return jsonResult(products)
}

func (s *Server) handleCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !request.GetBool("all", false) {
		return jsonResult(s.catalog.PopularCategories())
	}
	cats, err := s.catalog.Categories(ctx)
	if err != nil {
		return s.toolError("categories", err), nil
	}
	return jsonResult(cats)
}

func (s *Server) handleProductDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := request.GetString("product_ids", "")
	if strings.TrimSpace(raw) == "" {
		return mcp.NewToolResultError("product_ids is required"), nil
	}
	products, err := s.catalog.Details(ctx, strings.Split(raw, ","))
	if err != nil {
		return s.toolError("details", err), nil
	}
	return jsonResult(products)
}

func (s *Server) handlePromotionLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url is required"), nil
	}
	link, ok := s.catalog.PromotionLink(ctx, url)
	if !ok {
		return mcp.NewToolResultError("could not generate a promotion link"), nil
	}
	return mcp.NewToolResultText(link), nil
}

func (s *Server) handleRecordClick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, productID, errRes := userProductArgs(request)
	if errRes != nil {
		return errRes, nil
	}
	p, errRes := s.product(ctx, productID)
	if errRes != nil {
		return errRes, nil
	}

	if err := s.store.EnsureUser(ctx, userID, "", ""); err != nil {
		return s.toolError("record click", err), nil
	}
	if err := s.store.RecordClick(ctx, userID, p.ID, p.Title); err != nil {
		return s.toolError("record click", err), nil
	}

	link := p.Link()
	if promo, ok := s.catalog.PromotionLink(ctx, p.DetailURL); ok {
		link = promo
	}
	return mcp.NewToolResultText(link), nil
}

func (s *Server) handleAddFavorite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, productID, errRes := userProductArgs(request)
	if errRes != nil {
		return errRes, nil
	}
	p, errRes := s.product(ctx, productID)
	if errRes != nil {
		return errRes, nil
	}

	if err := s.store.EnsureUser(ctx, userID, "", ""); err != nil {
		return s.toolError("add favorite", err), nil
	}
	res, err := s.store.AddFavorite(ctx, models.Favorite{
		UserID:    userID,
		ProductID: p.ID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		Price:     p.SalePrice,
		AddedAt:   time.Now().UTC(),
	})
	if err != nil {
		return s.toolError("add favorite", err), nil
	}
	return mcp.NewToolResultText(res.String()), nil
}

func (s *Server) handleRemoveFavorite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, productID, errRes := userProductArgs(request)
	if errRes != nil {
		return errRes, nil
	}
	if err := s.store.RemoveFavorite(ctx, userID, productID); err != nil {
		return s.toolError("remove favorite", err), nil
	}
	return mcp.NewToolResultText("removed"), nil
}

func (s *Server) handleListFavorites(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(request.GetInt("user_id", 0))
	if userID == 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	favs, err := s.store.ListFavorites(ctx, userID)
	if err != nil {
		return s.toolError("list favorites", err), nil
	}
	return jsonResult(favs)
}

func (s *Server) handleUserStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := int64(request.GetInt("user_id", 0))
	if userID == 0 {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	st, err := s.store.Stats(ctx, userID)
	if err != nil {
		return s.toolError("user stats", err), nil
	}
	return jsonResult(st)
}

// product resolves one product, or returns the tool error to send back.
func (s *Server) product(ctx context.Context, id string) (*models.Product, *mcp.CallToolResult) {
	products, err := s.catalog.Details(ctx, []string{id})
	if err != nil {
		return nil, s.toolError("details", err)
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, mcp.NewToolResultError(fmt.Sprintf("product %s not found", id))
}

// toolError reports err to the client. Gateway details stay in the log.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, platform.ErrUserNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", op, err))
	case gateway.IsUnavailable(err):
		s.logger.Warn("gateway error", zap.String("op", op), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s: the catalog service is unavailable, try again later", op))
	default:
		s.logger.Error("tool failed", zap.String("op", op), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s error: %v", op, err))
	}
}

func userProductArgs(request mcp.CallToolRequest) (int64, string, *mcp.CallToolResult) {
	userID := int64(request.GetInt("user_id", 0))
	productID := strings.TrimSpace(request.GetString("product_id", ""))
	if userID == 0 || productID == "" {
		return 0, "", mcp.NewToolResultError("user_id and product_id are required")
	}
	return userID, productID, nil
}

func priceArg(request mcp.CallToolRequest, name string) (decimal.Decimal, error) {
	v := request.GetString(name, "")
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s %q", name, v)
	}
	return d, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
