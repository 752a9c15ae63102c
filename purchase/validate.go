package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"compras/ent"
)

const (
	maxItems    = 5
	spendingCap = 3500
)

// Item is one requested purchase line. Pointer fields distinguish an
// absent value from a legitimate zero: a price of 0 is allowed, a
// missing price is not.
type Item struct {
	ProductID *int64   `json:"product_id"`
	Quantity  *int32   `json:"quantity"`
	Price     *float64 `json:"price"`
}

// checkItems runs the structural checks that need no database state.
func checkItems(items []Item) error {
	if len(items) == 0 {
		return ErrEmptyItemSet
	}
	if len(items) > maxItems {
		return ErrTooManyItems
	}
	for i, it := range items {
		switch {
		case it.ProductID == nil || *it.ProductID <= 0:
			return fmt.Errorf("item %d: product_id: %w", i+1, ErrMissingField)
		case it.Quantity == nil || *it.Quantity <= 0:
			return fmt.Errorf("item %d: quantity: %w", i+1, ErrMissingField)
		case it.Price == nil || *it.Price < 0:
			return fmt.Errorf("item %d: price: %w", i+1, ErrMissingField)
		}
	}
	return nil
}

// validateItems checks every item against current product state and
// returns the purchase total. Product rows are read with "for update"
// so the stock check holds until the caller's transaction ends.
//
// The spending cap applies to the running total in strict list order:
// the purchase is rejected at the first item whose prefix sum goes
// over the cap, and later items are not examined at all.
func validateItems(ctx context.Context, tx *sqlx.Tx, items []Item) (float64, error) {
	var total float64

	for _, it := range items {
		var p ent.Product
		err := tx.QueryRowxContext(ctx, `
			select id, name, price, stock from products
			where id = $1
			for update
		`, *it.ProductID).StructScan(&p)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("product %d: %w", *it.ProductID, ErrProductNotFound)
		}
		if err != nil {
			return 0, err
		}

		if p.Stock < *it.Quantity {
			return 0, fmt.Errorf("product %d: %w", p.ID, ErrInsufficientStock)
		}

		total += *it.Price * float64(*it.Quantity)
		if total > spendingCap {
			return 0, ErrSpendingCapExceeded
		}
	}

	return total, nil
}
