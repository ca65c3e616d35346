package service

import (
	"context"
	"fmt"
	"time"

	"squad-stash/internal/domain"
	"squad-stash/internal/feed"
	"squad-stash/internal/repository"

	"go.uber.org/zap"
)

// CatalogService defines the business logic around the shared price list.
type CatalogService interface {
	ListItems(ctx context.Context) ([]*domain.CatalogItem, error)
	Search(ctx context.Context, query string) ([]*domain.CatalogItem, error)
	Refresh(ctx context.Context) error
	RunPeriodicRefresh(ctx context.Context, interval time.Duration)
}

type catalogService struct {
	feed   feed.PriceFeed
	repo   repository.CatalogRepository
	logger *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(priceFeed feed.PriceFeed, repo repository.CatalogRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		feed:   priceFeed,
		repo:   repo,
		logger: logger,
	}
}

// ListItems returns the whole cached price list.
func (s *catalogService) ListItems(ctx context.Context) ([]*domain.CatalogItem, error) {
	return s.repo.ListAll(ctx)
}

// Search matches item names case-insensitively against the query.
func (s *catalogService) Search(ctx context.Context, query string) ([]*domain.CatalogItem, error) {
	items, err := s.repo.SearchByName(ctx, query)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Catalog search completed",
		zap.String("query", query),
		zap.Int("matches", len(items)),
	)
	return items, nil
}

// Refresh fetches the full feed and atomically replaces the cached price
// list. A fetch failure leaves the previous cache untouched: the clear
// only happens once a complete new set is in hand.
func (s *catalogService) Refresh(ctx context.Context) error {
	s.logger.Info("Starting catalog refresh")

	items, err := s.feed.FetchItems(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch price feed: %w", err)
	}

	if err := s.repo.ReplaceAll(ctx, items); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}

	s.logger.Info("Catalog refresh completed", zap.Int("items", len(items)))
	return nil
}

// RunPeriodicRefresh refreshes the catalog on a fixed interval until ctx
// is cancelled. Individual failures are logged and the next tick tries
// again; there is no immediate retry.
func (s *catalogService) RunPeriodicRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Catalog refresh scheduler started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Catalog refresh scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("Scheduled catalog refresh failed", zap.Error(err))
			}
		}
	}
}
