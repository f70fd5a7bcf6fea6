// Package store persists users, click events and favorites in SQLite via gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lukman83/affiliate-gateway/internal/logger"
	"github.com/lukman83/affiliate-gateway/internal/metrics"
	"github.com/lukman83/affiliate-gateway/internal/models"
	"github.com/lukman83/affiliate-gateway/internal/platform"
)

const (
	defaultLanguage    = "ar"
	busyTimeoutMillis  = 5000
	defaultRecentLimit = 20
)

type userRow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement:false"`
	Username    string
	FirstName   string
	JoinedAt    time.Time `gorm:"not null"`
	TotalClicks int64     `gorm:"not null;default:0"`
	Language    string    `gorm:"not null;default:ar"`
}

func (userRow) TableName() string { return "users" }

type clickRow struct {
	ID           int64  `gorm:"primaryKey"`
	UserID       int64  `gorm:"not null;index"`
	ProductID    string `gorm:"not null"`
	ProductTitle string
	ClickedAt    time.Time `gorm:"not null;index"`

	User userRow `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT"`
}

func (clickRow) TableName() string { return "clicks" }

type favoriteRow struct {
	ID        int64           `gorm:"primaryKey"`
	UserID    int64           `gorm:"not null;uniqueIndex:idx_fav_user_product"`
	ProductID string          `gorm:"not null;uniqueIndex:idx_fav_user_product"`
	Title     string
	ImageURL  string
	Price     decimal.Decimal `gorm:"type:text"`
	AddedAt   time.Time       `gorm:"not null"`
}

func (favoriteRow) TableName() string { return "favorites" }

// Store implements platform.Interactions. A single pooled connection serialises
// writers, so each operation is atomic with respect to the others.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ platform.Interactions = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates the schema.
// Use ":memory:" only for single-connection throwaway databases.
func Open(path string, log *zap.Logger, level gormlogger.LogLevel) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", path, busyTimeoutMillis)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.NewGormLogger(log, level),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRow{}, &clickRow{}, &favoriteRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{
		db:     db,
		logger: log.Named("store"),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// EnsureUser registers the user if absent. Existing rows are left untouched.
func (s *Store) EnsureUser(ctx context.Context, id int64, username, firstName string) error {
	row := userRow{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		JoinedAt:  s.now(),
		Language:  defaultLanguage,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("ensure user %d: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.ObserveInteraction("user_registered")
		s.logger.Info("user registered", zap.Int64("user_id", id))
	}
	return nil
}

// RecordClick appends a click event and bumps the user's counter in one transaction.
func (s *Store) RecordClick(ctx context.Context, userID int64, productID, title string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRow{}).
			Where("id = ?", userID).
			UpdateColumn("total_clicks", gorm.Expr("total_clicks + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return platform.ErrUserNotFound
		}
		return tx.Omit(clause.Associations).Create(&clickRow{
			UserID:       userID,
			ProductID:    productID,
			ProductTitle: title,
			ClickedAt:    s.now(),
		}).Error
	})
	if err != nil {
		if errors.Is(err, platform.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("record click for user %d: %w", userID, err)
	}
	metrics.ObserveInteraction("click")
	return nil
}

// AddFavorite stores fav unless the user already has that product.
func (s *Store) AddFavorite(ctx context.Context, fav models.Favorite) (platform.AddResult, error) {
	if fav.AddedAt.IsZero() {
		fav.AddedAt = s.now()
	}
	row := favoriteRow{
		UserID:    fav.UserID,
		ProductID: fav.ProductID,
		Title:     fav.Title,
		ImageURL:  fav.ImageURL,
		Price:     fav.Price,
		AddedAt:   fav.AddedAt.UTC(),
	}

	err := s.db.WithContext(ctx).Create(&row).Error
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return platform.AlreadyExists, nil
	case err != nil:
		return 0, fmt.Errorf("add favorite %s for user %d: %w", fav.ProductID, fav.UserID, err)
	}
	metrics.ObserveInteraction("favorite_added")
	return platform.Added, nil
}

// RemoveFavorite deletes the favorite. Removing an absent favorite is not an error.
func (s *Store) RemoveFavorite(ctx context.Context, userID int64, productID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&favoriteRow{})
	if res.Error != nil {
		return fmt.Errorf("remove favorite %s for user %d: %w", productID, userID, res.Error)
	}
	if res.RowsAffected > 0 {
		metrics.ObserveInteraction("favorite_removed")
	}
	return nil
}

// ListFavorites returns the user's favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID int64) ([]models.Favorite, error) {
	var rows []favoriteRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites for user %d: %w", userID, err)
	}

	favs := make([]models.Favorite, 0, len(rows))
	for _, r := range rows {
		favs = append(favs, models.Favorite{
			UserID:    r.UserID,
			ProductID: r.ProductID,
			Title:     r.Title,
			ImageURL:  r.ImageURL,
			Price:     r.Price,
			AddedAt:   r.AddedAt,
		})
	}
	return favs, nil
}

// Stats aggregates the user's counters.
func (s *Store) Stats(ctx context.Context, userID int64) (*models.Stats, error) {
	var st *models.Stats
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&favoriteRow{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		st = &models.Stats{
			UserID:        user.ID,
			TotalClicks:   user.TotalClicks,
			JoinedAt:      user.JoinedAt,
			FavoriteCount: count,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, platform.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("stats for user %d: %w", userID, err)
	}
	return st, nil
}

// User returns the stored profile.
func (s *Store) User(ctx context.Context, userID int64) (*models.User, error) {
	row, err := findUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:          row.ID,
		Username:    row.Username,
		FirstName:   row.FirstName,
		JoinedAt:    row.JoinedAt,
		TotalClicks: row.TotalClicks,
		Language:    row.Language,
	}, nil
}

// RecentClicks returns up to limit click events, newest first.
func (s *Store) RecentClicks(ctx context.Context, userID int64, limit int) ([]models.ClickEvent, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	var rows []clickRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("clicked_at DESC").Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("recent clicks for user %d: %w", userID, err)
	}

	events := make([]models.ClickEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, models.ClickEvent{
			ID:           r.ID,
			UserID:       r.UserID,
			ProductID:    r.ProductID,
			ProductTitle: r.ProductTitle,
			ClickedAt:    r.ClickedAt,
		})
	}
	return events, nil
}

// SetLanguage updates the user's preferred language.
func (s *Store) SetLanguage(ctx context.Context, userID int64, lang string) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", userID).Update("language", lang)
	if res.Error != nil {
		return fmt.Errorf("set language for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return platform.ErrUserNotFound
	}
	return nil
}

func findUser(db *gorm.DB, userID int64) (*userRow, error) {
	var row userRow
	err := db.Where("id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platform.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
