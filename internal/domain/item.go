package domain

import "github.com/google/uuid"

// CatalogItem is one entry of the shared price list. The whole set is
// replaced on every refresh; individual items are never mutated. The
// external ID is informational only and carries no uniqueness guarantee.
type CatalogItem struct {
	ID    string  `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Price float64 `json:"price" db:"price"`
	Link  *string `json:"link,omitempty" db:"link"`
}

// InventoryItem is a per-room inventory row. Within one collection the
// (ID, NickName) pair is the logical key; RowID is only a surrogate for
// storage. Count tracks how many of the item the owner holds.
type InventoryItem struct {
	RowID    uuid.UUID `json:"-" db:"row_id"`
	ID       string    `json:"id" db:"item_id"`
	Name     string    `json:"name" db:"name"`
	Price    float64   `json:"price" db:"price"`
	Link     *string   `json:"link,omitempty" db:"link"`
	Count    int64     `json:"count" db:"count"`
	NickName string    `json:"nickName" db:"nick_name"`
}
