package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lukman83/affiliate-gateway/internal/gateway"
	"github.com/lukman83/affiliate-gateway/internal/metrics"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
)

// DefaultPageSize is how many products a chat search shows at once.
const DefaultPageSize = 5

// Reply texts shared with tests.
const (
	ReplyUnavailable   = "The service is unavailable right now. Please try again later."
	ReplyAskSearchTerm = "What are you looking for? Send the product name, or /cancel."
	ReplyNoResults     = "No products found. Try other keywords."
	ReplyCancelled     = "Cancelled."
	ReplyNothingToStop = "Nothing to cancel."
	ReplyNoSearch      = "There is no search to continue. Send /search first."
	ReplyNoMore        = "No more results."
	ReplyUnknown       = "Unknown command. Send /help to see what I can do."
	ReplyNotFound      = "Product not found."
	ReplyBadLanguage   = "Usage: /lang <code>, for example /lang en"
)

// Message is one inbound chat message.
type Message struct {
	UserID    int64
	Username  string
	FirstName string
	Text      string
}

// Reply is one outbound message. Product is set for product cards.
type Reply struct {
	Text    string          `json:"text"`
	Product *models.Product `json:"product,omitempty"`
}

// Dispatcher turns messages into catalog and interaction operations.
type Dispatcher struct {
	catalog  platform.Catalog
	store    platform.Interactions
	sessions SessionStore
	locks    *userLocks
	logger   *zap.Logger
	pageSize int
	now      func() time.Time
}

// Options tunes a Dispatcher. Zero values pick defaults.
type Options struct {
	Sessions SessionStore
	Logger   *zap.Logger
	PageSize int
}

func NewDispatcher(catalog platform.Catalog, store platform.Interactions, opts Options) *Dispatcher {
	d := &Dispatcher{
		catalog:  catalog,
		store:    store,
		sessions: opts.Sessions,
		locks:    newUserLocks(),
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		now:      time.Now,
	}
	if d.sessions == nil {
		d.sessions = NewMemorySessions()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	d.logger = d.logger.Named("conversation")
	if d.pageSize <= 0 {
		d.pageSize = DefaultPageSize
	}
	return d
}

// Handle processes msg for its user. Messages from one user are handled one
// at a time; different users are handled concurrently. Gateway failures are
// turned into a generic reply; only infrastructure failures are returned.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) ([]Reply, error) {
	unlock := d.locks.Lock(msg.UserID)
	defer unlock()

	log := d.logger.With(zap.Int64("user_id", msg.UserID))

	if err := d.store.EnsureUser(ctx, msg.UserID, msg.Username, msg.FirstName); err != nil {
		return nil, err
	}
	sess, err := d.sessions.Get(ctx, msg.UserID)
	if err != nil {
		return nil, err
	}

	cmd, args := parseCommand(msg.Text)
	ev := classify(cmd, args)
	next, err := Next(sess.State, ev)
	if err != nil {
		return nil, err
	}
	log.Debug("message",
		zap.String("command", cmd),
		zap.Stringer("from", sess.State),
		zap.Stringer("event", ev),
		zap.Stringer("to", next),
	)

	replies, err := d.act(ctx, &sess, msg, ev, cmd, args)
	if err != nil {
		if !gateway.IsUnavailable(err) {
			return nil, err
		}
		log.Warn("gateway unavailable", zap.String("command", cmd), zap.Error(err))
		replies = []Reply{{Text: ReplyUnavailable}}
	}

	sess.State = next
	sess.UpdatedAt = d.now().UTC()
	if err := d.sessions.Put(ctx, msg.UserID, sess); err != nil {
		return nil, err
	}
	metrics.ObserveInteraction("message_" + ev.String())
	return replies, nil
}

func (d *Dispatcher) act(ctx context.Context, sess *Session, msg Message, ev Event, cmd, args string) ([]Reply, error) {
	switch ev {
	case EventSearchCommand:
		return text(ReplyAskSearchTerm), nil
	case EventCancel:
		if sess.State == Idle {
			return text(ReplyNothingToStop), nil
		}
		return text(ReplyCancelled), nil
	case EventText:
		return d.search(ctx, sess, strings.TrimSpace(msg.Text), 1)
	}

	switch cmd {
	case "start":
		name := msg.FirstName
		if name == "" {
			name = "there"
		}
		return text(fmt.Sprintf(welcomeText, name)), nil
	case "help":
		return text(helpText), nil
	case "search":
		return d.search(ctx, sess, args, 1)
	case "next":
		if sess.Query == "" {
			return text(ReplyNoSearch), nil
		}
		return d.search(ctx, sess, sess.Query, sess.Page+1)
	case "hot":
		return d.hot(ctx, args)
	case "categories":
		return d.categories(ctx, args)
	case "category":
		return d.category(ctx, args)
	case "fav":
		return d.addFavorite(ctx, msg.UserID, args)
	case "unfav":
		return d.removeFavorite(ctx, msg.UserID, args)
	case "favorites":
		return d.favorites(ctx, msg.UserID)
	case "buy":
		return d.buy(ctx, msg.UserID, args)
	case "stats":
		return d.stats(ctx, msg)
	case "lang":
		return d.language(ctx, msg.UserID, args)
	default:
		return text(ReplyUnknown), nil
	}
}

func (d *Dispatcher) search(ctx context.Context, sess *Session, query string, page int) ([]Reply, error) {
	if query == "" {
		return text(ReplyAskSearchTerm), nil
	}
	res, err := d.catalog.Search(ctx, platform.SearchQuery{Keywords: query, Page: page, PageSize: d.pageSize})
	if err != nil {
		return nil, err
	}
	sess.Query = query
	sess.Page = page

	if len(res.Products) == 0 {
		if page > 1 {
			return text(ReplyNoMore), nil
		}
		return text(ReplyNoResults), nil
	}

	replies := []Reply{{Text: fmt.Sprintf("Found %d products. Page %d:", res.TotalResults, page)}}
	replies = append(replies, d.cards(ctx, res.Products)...)
	if res.HasMore() {
		replies = append(replies, Reply{Text: "Send /next for more results."})
	}
	return replies, nil
}

func (d *Dispatcher) hot(ctx context.Context, categoryID string) ([]Reply, error) {
	products, err := d.catalog.HotProducts(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return text("No trending products right now."), nil
	}
	return append(text("Best sellers:"), d.cards(ctx, products)...), nil
}

func (d *Dispatcher) categories(ctx context.Context, args string) ([]Reply, error) {
	cats := d.catalog.PopularCategories()
	if strings.EqualFold(args, "all") {
		var err error
		if cats, err = d.catalog.Categories(ctx); err != nil {
			return nil, err
		}
	}

	var b strings.Builder
	b.WriteString("Pick a category:")
	for _, c := range cats {
		fmt.Fprintf(&b, "\n/category %s - %s", c.ID, c.Name)
	}
	return text(b.String()), nil
}

func (d *Dispatcher) category(ctx context.Context, id string) ([]Reply, error) {
	if id == "" {
		return text("Usage: /category <id>. Send /categories to see them."), nil
	}
	res, err := d.catalog.Search(ctx, platform.SearchQuery{CategoryID: id, Page: 1, PageSize: 2 * d.pageSize})
	if err != nil {
		return nil, err
	}
	if len(res.Products) == 0 {
		return text(ReplyNoResults), nil
	}
	return append(text("Products in this category:"), d.cards(ctx, res.Products)...), nil
}

func (d *Dispatcher) addFavorite(ctx context.Context, userID int64, productID string) ([]Reply, error) {
	if productID == "" {
		return text("Usage: /fav <product id>"), nil
	}
	p, err := d.product(ctx, productID)
	if err != nil || p == nil {
		return text(ReplyNotFound), err
	}

	res, err := d.store.AddFavorite(ctx, models.Favorite{
		UserID:    userID,
		ProductID: p.ID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		Price:     p.SalePrice,
		AddedAt:   d.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if res == platform.AlreadyExists {
		return text("This product is already in your favorites."), nil
	}
	return text("Added to your favorites."), nil
}

func (d *Dispatcher) removeFavorite(ctx context.Context, userID int64, productID string) ([]Reply, error) {
	if productID == "" {
		return text("Usage: /unfav <product id>"), nil
	}
	if err := d.store.RemoveFavorite(ctx, userID, productID); err != nil {
		return nil, err
	}
	return text("Removed from your favorites."), nil
}

func (d *Dispatcher) favorites(ctx context.Context, userID int64) ([]Reply, error) {
	favs, err := d.store.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(favs) == 0 {
		return text("You have no favorites yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d favorites:", len(favs))
	for _, f := range favs {
		fmt.Fprintf(&b, "\n- %s (%s) /buy %s", truncateRunes(f.Title, maxCardTitle), f.Price.StringFixed(2), f.ProductID)
	}
	return text(b.String()), nil
}

func (d *Dispatcher) buy(ctx context.Context, userID int64, productID string) ([]Reply, error) {
	if productID == "" {
		return text("Usage: /buy <product id>"), nil
	}
	p, err := d.product(ctx, productID)
	if err != nil || p == nil {
		return text(ReplyNotFound), err
	}

	link := p.Link()
	if promo, ok := d.catalog.PromotionLink(ctx, p.DetailURL); ok {
		link = promo
	}
	if err := d.store.RecordClick(ctx, userID, p.ID, p.Title); err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("%s\n%s", p.Title, link)), nil
}

func (d *Dispatcher) stats(ctx context.Context, msg Message) ([]Reply, error) {
	st, err := d.store.Stats(ctx, msg.UserID)
	if errors.Is(err, platform.ErrUserNotFound) {
		return text("No activity yet. Send /start."), nil
	}
	if err != nil {
		return nil, err
	}
	return text(fmt.Sprintf("Your stats\nUser: %s\nJoined: %s\nClicks: %d\nFavorites: %d",
		msg.FirstName, st.JoinedAt.Format("2006-01-02"), st.TotalClicks, st.FavoriteCount)), nil
}

// language shows the user's language, or changes it when a tag is given.
func (d *Dispatcher) language(ctx context.Context, userID int64, tag string) ([]Reply, error) {
	if tag == "" {
		u, err := d.store.User(ctx, userID)
		if err != nil {
			return nil, err
		}
		return text(fmt.Sprintf("Your language: %s\nSend /lang <code> to change it.", u.Language)), nil
	}

	tag = strings.ToLower(tag)
	if !validLanguageTag(tag) {
		return text(ReplyBadLanguage), nil
	}
	if err := d.store.SetLanguage(ctx, userID, tag); err != nil {
		return nil, err
	}
	return text("Language set to " + tag + "."), nil
}

// validLanguageTag accepts short tags such as "en", "ar" or "pt-br".
func validLanguageTag(tag string) bool {
	if len(tag) < 2 || len(tag) > 8 || tag[0] == '-' || tag[len(tag)-1] == '-' {
		return false
	}
	for _, r := range tag {
		if (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}
	return true
}

// product fetches one product by id; nil means it does not exist.
func (d *Dispatcher) product(ctx context.Context, id string) (*models.Product, error) {
	products, err := d.catalog.Details(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, nil
}

// cards renders products with promotion links resolved where possible.
func (d *Dispatcher) cards(ctx context.Context, products []models.Product) []Reply {
	links := d.catalog.PromotionLinks(ctx, products)
	replies := make([]Reply, 0, len(products))
	for _, p := range products {
		if link, ok := links[p.ID]; ok {
			p.PromotionURL = link
		}
		replies = append(replies, Reply{Text: Card(p), Product: &p})
	}
	return replies
}

func text(s string) []Reply {
	return []Reply{{Text: s}}
}

// parseCommand splits "/cmd@bot args" into ("cmd", "args"). Non-commands
// return an empty command.
func parseCommand(s string) (cmd, args string) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") {
		return "", s
	}
	head, rest, _ := strings.Cut(s[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}

func classify(cmd, args string) Event {
	switch {
	case cmd == "":
		return EventText
	case cmd == "cancel":
		return EventCancel
	case cmd == "search" && args == "":
		return EventSearchCommand
	default:
		return EventCommand
	}
}
