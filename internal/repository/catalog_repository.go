package repository

import (
	"context"
	"database/sql"
	"fmt"

	"squad-stash/internal/domain"
)

// CatalogRepository defines data access for the shared price list.
type CatalogRepository interface {
	ListAll(ctx context.Context) ([]*domain.CatalogItem, error)
	SearchByName(ctx context.Context, query string) ([]*domain.CatalogItem, error)
	ReplaceAll(ctx context.Context, items []domain.CatalogItem) error
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// ListAll returns the entire cached price list.
func (r *catalogRepository) ListAll(ctx context.Context) ([]*domain.CatalogItem, error) {
	query := `
		SELECT id, name, price, link
		FROM catalog_items
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog items: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

// SearchByName performs a case-insensitive substring match over item names.
func (r *catalogRepository) SearchByName(ctx context.Context, query string) ([]*domain.CatalogItem, error) {
	searchPattern := "%" + query + "%"

	searchQuery := `
		SELECT id, name, price, link
		FROM catalog_items
		WHERE name ILIKE $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, searchQuery, searchPattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog items: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

// ReplaceAll swaps the whole price list in a single transaction: the old
// rows are only gone once the new set is fully written.
func (r *catalogRepository) ReplaceAll(ctx context.Context, items []domain.CatalogItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog refresh: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM catalog_items`); err != nil {
		return fmt.Errorf("failed to clear catalog: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO catalog_items (id, name, price, link)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare catalog insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		it := &items[i]
		if _, err := stmt.ExecContext(ctx, it.ID, it.Name, it.Price, it.Link); err != nil {
			return fmt.Errorf("failed to insert catalog item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog refresh: %w", err)
	}

	return nil
}

func scanCatalogItems(rows *sql.Rows) ([]*domain.CatalogItem, error) {
	items := []*domain.CatalogItem{}
	for rows.Next() {
		item := &domain.CatalogItem{}
		if err := rows.Scan(&item.ID, &item.Name, &item.Price, &item.Link); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog items: %w", err)
	}

	return items, nil
}
