package registry

import (
	"fmt"

	"squad-stash/internal/domain"
)

// RowShape describes the record shape a collection is bound to. The
// shape is a code-level convention, not a database constraint: it is
// checked at the boundary before any store call.
type RowShape struct {
	fields []Field
}

// Field is one column of the shape.
type Field struct {
	Name     string
	Required bool
}

// InventoryShape returns the canonical inventory row shape shared by
// every collection.
func InventoryShape() RowShape {
	return RowShape{fields: []Field{
		{Name: "id", Required: true},
		{Name: "name", Required: true},
		{Name: "price", Required: true},
		{Name: "link"},
		{Name: "count"},
		{Name: "nickName", Required: true},
	}}
}

// Fields returns the shape's fields in declaration order.
func (s RowShape) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// ValidateItem checks a full inventory item against the shape before it
// is written. Price is required in the same loose sense the API always
// had: a zero price is treated as missing.
func (s RowShape) ValidateItem(it *domain.InventoryItem) error {
	if it == nil {
		return fmt.Errorf("registry: missing item")
	}
	if it.ID == "" {
		return fmt.Errorf("registry: item field %q is required", "id")
	}
	if it.Name == "" {
		return fmt.Errorf("registry: item field %q is required", "name")
	}
	if it.Price == 0 {
		return fmt.Errorf("registry: item field %q is required", "price")
	}
	if it.NickName == "" {
		return fmt.Errorf("registry: item field %q is required", "nickName")
	}
	return nil
}

// ValidateRef checks the (key, nickname) pair that identifies an
// existing row for lookup, count changes and deletion.
func (s RowShape) ValidateRef(key, nickName string) error {
	if key == "" {
		return fmt.Errorf("registry: item field %q is required", "id")
	}
	if nickName == "" {
		return fmt.Errorf("registry: item field %q is required", "nickName")
	}
	return nil
}
