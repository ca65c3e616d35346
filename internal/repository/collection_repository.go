package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"squad-stash/internal/domain"
	"squad-stash/internal/registry"
)

var (
	ErrCollectionNotFound = errors.New("collection not found")
	ErrItemNotFound       = errors.New("inventory item not found")
	// ErrInsufficientCount is returned when a decrement would drive the
	// count below zero; nothing is mutated in that case.
	ErrInsufficientCount = errors.New("insufficient item count")
)

// tablePrefix must match registry.Handle.Table.
const tablePrefix = "inv_"

// CollectionRepository defines data access for the ad-hoc per-room
// collections and the inventory rows inside them. Every row operation
// takes a registry handle, so only vetted names ever reach SQL
// identifiers.
type CollectionRepository interface {
	Provision(ctx context.Context, h *registry.Handle) error
	Ensure(ctx context.Context, h *registry.Handle) error
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]string, error)

	FindItem(ctx context.Context, h *registry.Handle, key, nickName string) (*domain.InventoryItem, error)
	InsertItem(ctx context.Context, h *registry.Handle, item *domain.InventoryItem) error
	IncrementCount(ctx context.Context, h *registry.Handle, key, nickName string, amount int64) (int64, error)
	DecrementCount(ctx context.Context, h *registry.Handle, key, nickName string, amount int64) (int64, error)
	DeleteItem(ctx context.Context, h *registry.Handle, key, nickName string) error
	ListItems(ctx context.Context, h *registry.Handle) ([]*domain.InventoryItem, error)
}

type collectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new instance of CollectionRepository
func NewCollectionRepository(db *sql.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

// The (item_id, nick_name) pair is the logical key but deliberately not
// a database constraint; the service layer enforces it through
// find-else-create semantics.
func createTableSQL(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			row_id    UUID PRIMARY KEY,
			item_id   TEXT NOT NULL,
			name      TEXT NOT NULL,
			price     DOUBLE PRECISION NOT NULL DEFAULT 0,
			link      TEXT,
			count     BIGINT NOT NULL DEFAULT 0,
			nick_name TEXT NOT NULL
		)
	`, table)
}

// Provision creates the backing table for a freshly generated collection.
func (r *collectionRepository) Provision(ctx context.Context, h *registry.Handle) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL(h.Table())); err != nil {
		return fmt.Errorf("failed to provision collection %s: %w", h.Name(), err)
	}
	return nil
}

// Ensure creates the backing table if it does not exist yet. Used by the
// add path, which auto-provisions on first write.
func (r *collectionRepository) Ensure(ctx context.Context, h *registry.Handle) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL(h.Table())); err != nil {
		return fmt.Errorf("failed to ensure collection %s: %w", h.Name(), err)
	}
	return nil
}

// Exists reports whether the named collection has a backing table.
func (r *collectionRepository) Exists(ctx context.Context, name string) (bool, error) {
	if !registry.ValidName(name) {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, tablePrefix+name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	return exists, nil
}

// List enumerates all collections currently known to the store.
func (r *collectionRepository) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name LIKE $1
		ORDER BY table_name
	`

	rows, err := r.db.QueryContext(ctx, query, tablePrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return nil, fmt.Errorf("failed to scan collection name: %w", err)
		}
		name := strings.TrimPrefix(table, tablePrefix)
		if registry.ValidName(name) {
			names = append(names, name)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	return names, nil
}

// FindItem looks up the unique row for (key, nickName) in the collection.
func (r *collectionRepository) FindItem(ctx context.Context, h *registry.Handle, key, nickName string) (*domain.InventoryItem, error) {
	query := fmt.Sprintf(`
		SELECT row_id, item_id, name, price, link, count, nick_name
		FROM %s
		WHERE item_id = $1 AND nick_name = $2
	`, h.Table())

	item := &domain.InventoryItem{}
	err := r.db.QueryRowContext(ctx, query, key, nickName).Scan(
		&item.RowID,
		&item.ID,
		&item.Name,
		&item.Price,
		&item.Link,
		&item.Count,
		&item.NickName,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to find item %s/%s: %w", key, nickName, err)
	}

	return item, nil
}

// InsertItem inserts a new inventory row.
func (r *collectionRepository) InsertItem(ctx context.Context, h *registry.Handle, item *domain.InventoryItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (row_id, item_id, name, price, link, count, nick_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.Table())

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.RowID,
		item.ID,
		item.Name,
		item.Price,
		item.Link,
		item.Count,
		item.NickName,
	)

	if err != nil {
		return fmt.Errorf("failed to insert item %s/%s: %w", item.ID, item.NickName, err)
	}

	return nil
}

// IncrementCount atomically adds amount to the row's count and returns
// the new value. The read-modify-write happens inside a single UPDATE,
// so concurrent increments cannot lose updates.
func (r *collectionRepository) IncrementCount(ctx context.Context, h *registry.Handle, key, nickName string, amount int64) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET count = count + $1
		WHERE item_id = $2 AND nick_name = $3
		RETURNING count
	`, h.Table())

	var count int64
	err := r.db.QueryRowContext(ctx, query, amount, key, nickName).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrItemNotFound
		}
		return 0, fmt.Errorf("failed to increment count for %s/%s: %w", key, nickName, err)
	}

	return count, nil
}

// DecrementCount atomically subtracts amount from the row's count. The
// floor check is part of the UPDATE predicate, so a decrement that would
// go negative changes nothing.
func (r *collectionRepository) DecrementCount(ctx context.Context, h *registry.Handle, key, nickName string, amount int64) (int64, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET count = count - $1
		WHERE item_id = $2 AND nick_name = $3 AND count >= $1
		RETURNING count
	`, h.Table())

	var count int64
	err := r.db.QueryRowContext(ctx, query, amount, key, nickName).Scan(&count)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to decrement count for %s/%s: %w", key, nickName, err)
	}

	// Zero rows updated: either the row is gone or its count is too low.
	if _, ferr := r.FindItem(ctx, h, key, nickName); ferr != nil {
		if errors.Is(ferr, ErrItemNotFound) {
			return 0, ErrItemNotFound
		}
		return 0, ferr
	}
	return 0, ErrInsufficientCount
}

// DeleteItem removes the unique row for (key, nickName).
func (r *collectionRepository) DeleteItem(ctx context.Context, h *registry.Handle, key, nickName string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE item_id = $1 AND nick_name = $2`, h.Table())

	result, err := r.db.ExecContext(ctx, query, key, nickName)
	if err != nil {
		return fmt.Errorf("failed to delete item %s/%s: %w", key, nickName, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}

// ListItems returns all rows in the collection.
func (r *collectionRepository) ListItems(ctx context.Context, h *registry.Handle) ([]*domain.InventoryItem, error) {
	query := fmt.Sprintf(`
		SELECT row_id, item_id, name, price, link, count, nick_name
		FROM %s
		ORDER BY nick_name, item_id
	`, h.Table())

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list items in %s: %w", h.Name(), err)
	}
	defer rows.Close()

	items := []*domain.InventoryItem{}
	for rows.Next() {
		item := &domain.InventoryItem{}
		err := rows.Scan(
			&item.RowID,
			&item.ID,
			&item.Name,
			&item.Price,
			&item.Link,
			&item.Count,
			&item.NickName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory items: %w", err)
	}

	return items, nil
}
