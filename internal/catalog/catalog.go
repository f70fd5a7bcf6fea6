// Package catalog implements the product operations of the affiliate platform
// on top of the signed gateway client, and owns result normalization.
package catalog

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
)

// Gateway method names.
const (
	MethodProductQuery  = "aliexpress.affiliate.product.query"
	MethodProductDetail = "aliexpress.affiliate.productdetail.get"
	MethodHotProducts   = "aliexpress.affiliate.hotproduct.query"
	MethodCategories    = "aliexpress.affiliate.category.get"
	MethodLinkGenerate  = "aliexpress.affiliate.link.generate"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	// HotLimit caps how many hot products are returned.
	HotLimit = 10
)

// Caller executes a signed gateway call and decodes its result.
type Caller interface {
	CallInto(ctx context.Context, method string, params map[string]string, v any) error
}

// Options configures a Service.
type Options struct {
	TrackingID    string
	Currency      string
	Language      string
	MaxConcurrent int
	RateLimiter   *rate.Limiter
	Logger        *zap.Logger
}

// Service is stateless between calls; pagination is driven by the caller.
type Service struct {
	client        Caller
	trackingID    string
	currency      string
	language      string
	maxConcurrent int
	rateLimiter   *rate.Limiter
	logger        *zap.Logger
}

// NewService creates a catalog service over client.
func NewService(client Caller, opts Options) *Service {
	s := &Service{
		client:        client,
		trackingID:    opts.TrackingID,
		currency:      opts.Currency,
		language:      opts.Language,
		maxConcurrent: opts.MaxConcurrent,
		rateLimiter:   opts.RateLimiter,
		logger:        opts.Logger,
	}
	if s.currency == "" {
		s.currency = "USD"
	}
	if s.language == "" {
		s.language = "AR"
	}
	if s.maxConcurrent <= 0 {
		s.maxConcurrent = 5
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("catalog")
	return s
}

var _ platform.Catalog = (*Service)(nil)

func (s *Service) productParams() map[string]string {
	return map[string]string{
		"tracking_id":     s.trackingID,
		"target_currency": s.currency,
		"target_language": s.language,
	}
}

// Search fetches one page of keyword results.
func (s *Service) Search(ctx context.Context, q platform.SearchQuery) (*models.SearchPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Sort == "" {
		q.Sort = platform.SortDefault
	}

	params := s.productParams()
	params["page_no"] = strconv.Itoa(q.Page)
	params["page_size"] = strconv.Itoa(q.PageSize)
	params["sort"] = q.Sort
	if kw := strings.TrimSpace(q.Keywords); kw != "" {
		params["keywords"] = kw
	}
	if q.CategoryID != "" {
		params["category_ids"] = q.CategoryID
	}
	if q.MinPrice.IsPositive() {
		params["min_sale_price"] = q.MinPrice.String()
	}
	if q.MaxPrice.IsPositive() {
		params["max_sale_price"] = q.MaxPrice.String()
	}

	var list productList
	if err := s.client.CallInto(ctx, MethodProductQuery, params, &list); err != nil {
		return nil, err
	}

	total := int(parseCount(list.TotalResults))
	products := normalizeAll(list.Products, s.currency)
	if total > 0 && (q.Page-1)*q.PageSize >= total {
		products = products[:0]
	}
	if len(products) > q.PageSize {
		products = products[:q.PageSize]
	}

	return &models.SearchPage{
		Products:     products,
		TotalResults: total,
		Page:         q.Page,
		PageSize:     q.PageSize,
	}, nil
}

// SearchPages fetches pages 1..pages concurrently and returns their products in page order.
func (s *Service) SearchPages(ctx context.Context, q platform.SearchQuery, pages int) ([]models.Product, error) {
	if pages <= 0 {
		return []models.Product{}, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	results := make([][]models.Product, pages)
	var fetched atomic.Int32
	for i := 0; i < pages; i++ {
		g.Go(func() error {
			if s.rateLimiter != nil {
				if err := s.rateLimiter.Wait(ctx); err != nil {
					return err
				}
			}
			pq := q
			pq.Page = i + 1
			page, err := s.Search(ctx, pq)
			if err != nil {
				return err
			}
			platform.ReportProgress(ctx, platform.Progress{Stage: "Fetching pages", Done: int(fetched.Add(1)), Total: pages})
			results[i] = page.Products
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.Product
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// Details looks up products by id. Duplicate ids are collapsed.
func (s *Service) Details(ctx context.Context, productIDs []string) ([]models.Product, error) {
	ids := uniqueSorted(productIDs)
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	params := s.productParams()
	params["product_ids"] = strings.Join(ids, ",")

	var list productList
	if err := s.client.CallInto(ctx, MethodProductDetail, params, &list); err != nil {
		return nil, err
	}
	return normalizeAll(list.Products, s.currency), nil
}

// HotProducts returns trending products, optionally within one category.
func (s *Service) HotProducts(ctx context.Context, categoryID string) ([]models.Product, error) {
	params := s.productParams()
	if categoryID != "" {
		params["category_id"] = categoryID
	}

	var list productList
	if err := s.client.CallInto(ctx, MethodHotProducts, params, &list); err != nil {
		return nil, err
	}

	products := normalizeAll(list.Products, s.currency)
	if len(products) > HotLimit {
		products = products[:HotLimit]
	}
	return products, nil
}

// Categories lists the platform's product categories.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var list categoryList
	if err := s.client.CallInto(ctx, MethodCategories, map[string]string{}, &list); err != nil {
		return nil, err
	}

	out := make([]models.Category, 0, len(list.Categories))
	for _, c := range list.Categories {
		parent := string(c.ParentID)
		if parent == "0" {
			parent = ""
		}
		out = append(out, models.Category{ID: string(c.ID), Name: c.Name, ParentID: parent})
	}
	return out, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
