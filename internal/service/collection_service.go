package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"squad-stash/internal/domain"
	"squad-stash/internal/registry"
	"squad-stash/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidItem marks an inventory payload that fails shape validation.
// No store access has happened when it is returned.
var ErrInvalidItem = errors.New("invalid item data")

// CollectionService is the lifecycle manager and upsert engine for the
// ad-hoc per-room collections. Every operation runs as a small state
// machine: validate, resolve the collection, locate the row, act.
type CollectionService interface {
	Create(ctx context.Context) (string, error)
	Exists(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)

	AddItem(ctx context.Context, collection string, item *domain.InventoryItem) (*domain.InventoryItem, error)
	IncreaseCount(ctx context.Context, collection, key, nickName string, amount int64) (int64, error)
	DecreaseCount(ctx context.Context, collection, key, nickName string, amount int64) (int64, error)
	DeleteItem(ctx context.Context, collection, key, nickName string) error
	ListItems(ctx context.Context, collection string) ([]*domain.InventoryItem, error)
}

type collectionService struct {
	registry *registry.Registry
	repo     repository.CollectionRepository
	logger   *zap.Logger
}

// NewCollectionService creates a new instance of CollectionService. The
// registry is injected so its handle cache has a single owner per
// process and can be replaced in tests.
func NewCollectionService(reg *registry.Registry, repo repository.CollectionRepository, logger *zap.Logger) CollectionService {
	return &collectionService{
		registry: reg,
		repo:     repo,
		logger:   logger,
	}
}

// generateName returns a fresh random collection name: 8 random bytes,
// hex encoded. Uniqueness is probabilistic; collisions are not checked,
// matching the scale this service runs at.
func generateName() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("failed to generate collection name: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// Create provisions a new empty collection and returns its name. The
// caller owns all subsequent writes.
func (s *collectionService) Create(ctx context.Context) (string, error) {
	name, err := generateName()
	if err != nil {
		return "", err
	}

	h, err := s.registry.Resolve(name)
	if err != nil {
		return "", err
	}

	if err := s.repo.Provision(ctx, h); err != nil {
		return "", err
	}

	s.logger.Info("Collection created", zap.String("collection", name))
	return name, nil
}

// Exists reports whether the named collection is known to the store.
func (s *collectionService) Exists(ctx context.Context, name string) (bool, error) {
	return s.repo.Exists(ctx, name)
}

// ListCollections enumerates all collections known to the store.
func (s *collectionService) ListCollections(ctx context.Context) ([]string, error) {
	return s.repo.List(ctx)
}

// AddItem adds the item to the collection, provisioning the collection
// on first write. If the (key, nickname) row already exists its count is
// incremented by one instead; no duplicate row is ever created.
func (s *collectionService) AddItem(ctx context.Context, collection string, item *domain.InventoryItem) (*domain.InventoryItem, error) {
	h, err := s.registry.Resolve(collection)
	if err != nil {
		return nil, err
	}
	if err := h.Shape().ValidateItem(item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	if err := s.repo.Ensure(ctx, h); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItem(ctx, h, item.ID, item.NickName)
	switch {
	case err == nil:
		count, err := s.repo.IncrementCount(ctx, h, item.ID, item.NickName, 1)
		if err != nil {
			return nil, err
		}
		existing.Count = count

		s.logger.Info("Inventory item incremented",
			zap.String("action", "add"),
			zap.String("collection", collection),
			zap.String("item", item.ID),
			zap.String("owner", item.NickName),
			zap.Int64("count", count),
		)
		return existing, nil

	case errors.Is(err, repository.ErrItemNotFound):
		item.RowID = uuid.New()
		if item.Count <= 0 {
			item.Count = 1
		}
		if err := s.repo.InsertItem(ctx, h, item); err != nil {
			return nil, err
		}

		s.logger.Info("Inventory item added",
			zap.String("action", "add"),
			zap.String("collection", collection),
			zap.String("item", item.ID),
			zap.String("owner", item.NickName),
			zap.Int64("count", item.Count),
		)
		return item, nil

	default:
		return nil, err
	}
}

// IncreaseCount atomically adds amount to an existing row's count and
// returns the new value.
func (s *collectionService) IncreaseCount(ctx context.Context, collection, key, nickName string, amount int64) (int64, error) {
	h, err := s.resolveExisting(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := h.Shape().ValidateRef(key, nickName); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	count, err := s.repo.IncrementCount(ctx, h, key, nickName, amount)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Inventory count increased",
		zap.String("action", "increase"),
		zap.String("collection", collection),
		zap.String("item", key),
		zap.String("owner", nickName),
		zap.Int64("amount", amount),
		zap.Int64("count", count),
	)
	return count, nil
}

// DecreaseCount subtracts amount from an existing row's count. The floor
// check happens strictly before any mutation: a decrement below zero is
// rejected and the row is left unchanged.
func (s *collectionService) DecreaseCount(ctx context.Context, collection, key, nickName string, amount int64) (int64, error) {
	h, err := s.resolveExisting(ctx, collection)
	if err != nil {
		return 0, err
	}
	if err := h.Shape().ValidateRef(key, nickName); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	count, err := s.repo.DecrementCount(ctx, h, key, nickName, amount)
	if err != nil {
		return 0, err
	}

	s.logger.Info("Inventory count decreased",
		zap.String("action", "decrease"),
		zap.String("collection", collection),
		zap.String("item", key),
		zap.String("owner", nickName),
		zap.Int64("amount", amount),
		zap.Int64("count", count),
	)
	return count, nil
}

// DeleteItem removes the unique (key, nickname) row from the collection.
func (s *collectionService) DeleteItem(ctx context.Context, collection, key, nickName string) error {
	h, err := s.resolveExisting(ctx, collection)
	if err != nil {
		return err
	}
	if err := h.Shape().ValidateRef(key, nickName); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	if err := s.repo.DeleteItem(ctx, h, key, nickName); err != nil {
		return err
	}

	s.logger.Info("Inventory item deleted",
		zap.String("action", "delete"),
		zap.String("collection", collection),
		zap.String("item", key),
		zap.String("owner", nickName),
	)
	return nil
}

// ListItems returns all rows in the collection. An unknown collection is
// a not-found error; a known empty collection is an empty list.
func (s *collectionService) ListItems(ctx context.Context, collection string) ([]*domain.InventoryItem, error) {
	h, err := s.resolveExisting(ctx, collection)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, h)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Inventory listed",
		zap.String("action", "list"),
		zap.String("collection", collection),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// resolveExisting resolves a handle for operations that require the
// collection to already exist.
func (s *collectionService) resolveExisting(ctx context.Context, collection string) (*registry.Handle, error) {
	h, err := s.registry.Resolve(collection)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.Exists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrCollectionNotFound
	}

	return h, nil
}
