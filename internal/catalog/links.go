package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukman83/affiliate-gateway/internal/metrics"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
)

// PromotionLink turns sourceURL into a tracked link. It never fails loudly:
// any problem is logged and reported as ok == false.
func (s *Service) PromotionLink(ctx context.Context, sourceURL string) (string, bool) {
	if sourceURL == "" {
		return "", false
	}

	params := map[string]string{
		"promotion_link_type": "0",
		"source_values":       sourceURL,
		"tracking_id":         s.trackingID,
	}

	var list promotionLinkList
	if err := s.client.CallInto(ctx, MethodLinkGenerate, params, &list); err != nil {
		s.logger.Warn("promotion link generation failed", zap.String("source", sourceURL), zap.Error(err))
		metrics.ObservePromotionLink(false)
		return "", false
	}

	for _, l := range list.Links {
		if l.PromotionLink != "" {
			metrics.ObservePromotionLink(true)
			return l.PromotionLink, true
		}
	}

	s.logger.Warn("promotion link response had no links", zap.String("source", sourceURL))
	metrics.ObservePromotionLink(false)
	return "", false
}

// PromotionLinks generates links for a batch concurrently. A failure for one
// product leaves it out of the result without affecting the others.
func (s *Service) PromotionLinks(ctx context.Context, products []models.Product) map[string]string {
	links := make(map[string]string, len(products))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.maxConcurrent)

	total := len(products)
	done := 0
	for _, p := range products {
		source := p.Link()
		if p.ID == "" || source == "" {
			continue
		}
		g.Go(func() error {
			link, ok := s.PromotionLink(ctx, source)

			mu.Lock()
			defer mu.Unlock()
			done++
			if ok {
				links[p.ID] = link
			}
			platform.ReportProgress(ctx, platform.Progress{Stage: "Generating promotion links", Done: done, Total: total})
			return nil
		})
	}
	_ = g.Wait()

	return links
}
