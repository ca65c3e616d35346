package service

import (
	"context"
	"errors"
	"testing"

	"squad-stash/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Mock price feed for testing
type mockPriceFeed struct {
	items []domain.CatalogItem
	err   error
}

func (m *mockPriceFeed) FetchItems(ctx context.Context) ([]domain.CatalogItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

// Mock catalog repository for testing
type mockCatalogRepository struct {
	items      []domain.CatalogItem
	replaceErr error
}

func (m *mockCatalogRepository) ListAll(ctx context.Context) ([]*domain.CatalogItem, error) {
	out := []*domain.CatalogItem{}
	for i := range m.items {
		out = append(out, &m.items[i])
	}
	return out, nil
}

func (m *mockCatalogRepository) SearchByName(ctx context.Context, query string) ([]*domain.CatalogItem, error) {
	return m.ListAll(ctx)
}

func (m *mockCatalogRepository) ReplaceAll(ctx context.Context, items []domain.CatalogItem) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.items = append([]domain.CatalogItem(nil), items...)
	return nil
}

func TestRefreshReplacesWholeCatalog(t *testing.T) {
	repo := &mockCatalogRepository{items: []domain.CatalogItem{{ID: "old", Name: "Old", Price: 1}}}
	priceFeed := &mockPriceFeed{items: []domain.CatalogItem{
		{ID: "a1", Name: "Widget", Price: 1500},
		{ID: "b2", Name: "Gadget", Price: 0},
	}}

	svc := NewCatalogService(priceFeed, repo, zap.NewNop())
	require.NoError(t, svc.Refresh(context.Background()))

	items, err := svc.ListItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a1", items[0].ID)
}

func TestRefreshFailurePreservesPreviousCache(t *testing.T) {
	previous := []domain.CatalogItem{{ID: "keep", Name: "Keeper", Price: 7}}
	repo := &mockCatalogRepository{items: previous}
	priceFeed := &mockPriceFeed{err: errors.New("feed unreachable")}

	svc := NewCatalogService(priceFeed, repo, zap.NewNop())
	err := svc.Refresh(context.Background())
	require.Error(t, err)

	items, lerr := svc.ListItems(context.Background())
	require.NoError(t, lerr)
	require.Len(t, items, 1)
	assert.Equal(t, "keep", items[0].ID)
}

func TestRefreshSurfacesStoreFailure(t *testing.T) {
	repo := &mockCatalogRepository{replaceErr: errors.New("db down")}
	priceFeed := &mockPriceFeed{items: []domain.CatalogItem{{ID: "a1", Name: "Widget", Price: 1}}}

	svc := NewCatalogService(priceFeed, repo, zap.NewNop())
	assert.Error(t, svc.Refresh(context.Background()))
}
