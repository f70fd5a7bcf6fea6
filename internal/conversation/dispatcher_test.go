package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lukman83/affiliate-gateway/internal/gateway"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
	"github.com/lukman83/affiliate-gateway/internal/store"
)

// fakeCatalog serves a fixed product list. Setting err makes every gateway
// backed operation fail with it.
type fakeCatalog struct {
	mu       sync.Mutex
	products []models.Product
	err      error
	queries  []platform.SearchQuery
}

func newFakeCatalog(n int) *fakeCatalog {
	c := &fakeCatalog{}
	for i := 0; i < n; i++ {
		c.products = append(c.products, models.Product{
			ID:              fmt.Sprint(100 + i),
			Title:           fmt.Sprintf("Lamp %d", i),
			OriginalPrice:   decimal.NewFromInt(20),
			SalePrice:       decimal.NewFromInt(15),
			DiscountPercent: 25,
			Currency:        "USD",
			DetailURL:       fmt.Sprintf("https://www.example.com/item/%d.html", 100+i),
		})
	}
	return c
}

func (c *fakeCatalog) Search(_ context.Context, q platform.SearchQuery) (*models.SearchPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, q)
	if c.err != nil {
		return nil, c.err
	}
	page := &models.SearchPage{Products: []models.Product{}, TotalResults: len(c.products), Page: q.Page, PageSize: q.PageSize}
	for i := (q.Page - 1) * q.PageSize; i < q.Page*q.PageSize && i < len(c.products); i++ {
		page.Products = append(page.Products, c.products[i])
	}
	return page, nil
}

func (c *fakeCatalog) Details(_ context.Context, ids []string) ([]models.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	var out []models.Product
	for _, p := range c.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) HotProducts(context.Context, string) ([]models.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.products[:min(3, len(c.products))], nil
}

func (c *fakeCatalog) Categories(context.Context) ([]models.Category, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []models.Category{{ID: "1", Name: "Everything"}}, nil
}

func (c *fakeCatalog) PopularCategories() []models.Category {
	return []models.Category{{ID: "44", Name: "Consumer Electronics"}}
}

func (c *fakeCatalog) PromotionLink(_ context.Context, src string) (string, bool) {
	if c.err != nil || src == "" {
		return "", false
	}
	return "https://s.click.example.com/" + filepath.Base(src), true
}

func (c *fakeCatalog) PromotionLinks(ctx context.Context, products []models.Product) map[string]string {
	links := map[string]string{}
	for _, p := range products {
		if link, ok := c.PromotionLink(ctx, p.DetailURL); ok {
			links[p.ID] = link
		}
	}
	return links
}

func (c *fakeCatalog) lastQuery() platform.SearchQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queries[len(c.queries)-1]
}

func newTestDispatcher(t *testing.T, catalog *fakeCatalog) (*Dispatcher, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "bot.db"), nil, gormlogger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewDispatcher(catalog, st, Options{}), st
}

func send(t *testing.T, d *Dispatcher, userID int64, text string) []Reply {
	t.Helper()
	replies, err := d.Handle(context.Background(), Message{UserID: userID, FirstName: "Alice", Text: text})
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func productReplies(replies []Reply) []Reply {
	var out []Reply
	for _, r := range replies {
		if r.Product != nil {
			out = append(out, r)
		}
	}
	return out
}

func TestDispatcher_SearchPrompt(t *testing.T) {
	cat := newFakeCatalog(7)
	d, _ := newTestDispatcher(t, cat)

	assert.Equal(t, ReplyAskSearchTerm, send(t, d, 1, "/search")[0].Text)
	s, _ := d.sessions.Get(context.Background(), 1)
	assert.Equal(t, AwaitingSearchTerm, s.State)

	replies := send(t, d, 1, "lamp")
	assert.Len(t, productReplies(replies), DefaultPageSize)
	assert.Equal(t, "lamp", cat.lastQuery().Keywords)
	assert.Contains(t, replies[len(replies)-1].Text, "/next")

	s, _ = d.sessions.Get(context.Background(), 1)
	assert.Equal(t, Idle, s.State)

	replies = send(t, d, 1, "/next")
	assert.Len(t, productReplies(replies), 2)
	assert.Equal(t, 2, cat.lastQuery().Page)

	assert.Equal(t, ReplyNoMore, send(t, d, 1, "/next")[0].Text)
}

func TestDispatcher_Cancel(t *testing.T) {
	cat := newFakeCatalog(3)
	d, _ := newTestDispatcher(t, cat)

	assert.Equal(t, ReplyNothingToStop, send(t, d, 1, "/cancel")[0].Text)

	send(t, d, 1, "/search")
	assert.Equal(t, ReplyCancelled, send(t, d, 1, "/cancel")[0].Text)
	assert.Empty(t, cat.queries)
}

func TestDispatcher_FreeTextSearchesDirectly(t *testing.T) {
	cat := newFakeCatalog(2)
	d, _ := newTestDispatcher(t, cat)

	replies := send(t, d, 1, "desk lamp")
	require.Len(t, productReplies(replies), 2)
	card := productReplies(replies)[0]
	assert.Equal(t, "https://s.click.example.com/100.html", card.Product.PromotionURL)
	assert.Contains(t, card.Text, "Discount: 25%")
	assert.Contains(t, card.Text, "/buy 100")
}

func TestDispatcher_NextWithoutSearch(t *testing.T) {
	d, _ := newTestDispatcher(t, newFakeCatalog(2))
	assert.Equal(t, ReplyNoSearch, send(t, d, 1, "/next")[0].Text)
}

func TestDispatcher_FavoritesFlow(t *testing.T) {
	d, st := newTestDispatcher(t, newFakeCatalog(3))
	ctx := context.Background()

	assert.Contains(t, send(t, d, 1, "/fav 101")[0].Text, "Added")
	assert.Contains(t, send(t, d, 1, "/fav 101")[0].Text, "already")
	assert.Equal(t, ReplyNotFound, send(t, d, 1, "/fav 999")[0].Text)

	favs, err := st.ListFavorites(ctx, 1)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Lamp 1", favs[0].Title)
	assert.True(t, decimal.NewFromInt(15).Equal(favs[0].Price))

	assert.Contains(t, send(t, d, 1, "/favorites")[0].Text, "Lamp 1")

	send(t, d, 1, "/unfav 101")
	assert.Contains(t, send(t, d, 1, "/favorites")[0].Text, "no favorites")
}

func TestDispatcher_BuyRecordsClick(t *testing.T) {
	d, st := newTestDispatcher(t, newFakeCatalog(3))

	reply := send(t, d, 1, "/buy 102")[0].Text
	assert.Contains(t, reply, "https://s.click.example.com/102.html")

	stats, err := st.Stats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalClicks)

	assert.Contains(t, send(t, d, 1, "/stats")[0].Text, "Clicks: 1")
}

func TestDispatcher_GatewayFailure(t *testing.T) {
	cat := newFakeCatalog(3)
	cat.err = &gateway.Error{Kind: gateway.KindTransport, Method: "search"}
	d, _ := newTestDispatcher(t, cat)

	for _, msg := range []string{"lamp", "/hot", "/fav 100", "/buy 100", "/categories all"} {
		replies := send(t, d, 1, msg)
		assert.Equal(t, ReplyUnavailable, replies[0].Text, msg)
	}

	// Static categories never touch the gateway.
	assert.Contains(t, send(t, d, 1, "/categories")[0].Text, "/category 44")
}

func TestDispatcher_MiscCommands(t *testing.T) {
	cat := newFakeCatalog(4)
	d, _ := newTestDispatcher(t, cat)

	assert.Contains(t, send(t, d, 1, "/start")[0].Text, "Hi Alice")
	assert.Contains(t, send(t, d, 1, "/help")[0].Text, "/search")
	assert.Equal(t, ReplyUnknown, send(t, d, 1, "/bogus")[0].Text)
	assert.Len(t, productReplies(send(t, d, 1, "/hot")), 3)

	send(t, d, 1, "/category 44")
	assert.Equal(t, "44", cat.lastQuery().CategoryID)
	assert.Empty(t, cat.lastQuery().Keywords)
}

func TestDispatcher_Language(t *testing.T) {
	d, st := newTestDispatcher(t, newFakeCatalog(1))
	ctx := context.Background()

	assert.Contains(t, send(t, d, 3, "/lang")[0].Text, "Your language: ar")

	assert.Equal(t, "Language set to en.", send(t, d, 3, "/lang EN")[0].Text)
	u, err := st.User(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "en", u.Language)

	for _, bad := range []string{"x", "english!", "-en", "toolongtag"} {
		assert.Equal(t, ReplyBadLanguage, send(t, d, 3, "/lang "+bad)[0].Text, bad)
	}
	u, err = st.User(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "en", u.Language)

	assert.Contains(t, send(t, d, 3, "/lang pt-br")[0].Text, "pt-br")
}

func TestDispatcher_ConcurrentUsers(t *testing.T) {
	d, st := newTestDispatcher(t, newFakeCatalog(3))

	var wg sync.WaitGroup
	for u := int64(1); u <= 8; u++ {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(u int64) {
				defer wg.Done()
				_, err := d.Handle(context.Background(), Message{UserID: u, Text: "/buy 100"})
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	for u := int64(1); u <= 8; u++ {
		stats, err := st.Stats(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, int64(5), stats.TotalClicks, "user %d", u)
	}
	assert.Zero(t, d.locks.size())
}

func TestCard_TruncatesLongTitles(t *testing.T) {
	p := models.Product{ID: "1", Title: strings.Repeat("é", 150), SalePrice: decimal.NewFromInt(3)}
	first := strings.SplitN(Card(p), "\n", 2)[0]
	assert.Equal(t, maxCardTitle+3, len([]rune(first)))
}
