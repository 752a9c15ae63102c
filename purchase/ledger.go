package purchase

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Stock movements run inside the caller's transaction, after
// validateItems has locked the product rows and checked sufficiency.
// Neither operation re-checks the balance itself.

func reserveStock(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int32) error {
	_, err := tx.ExecContext(ctx, `
		update products set stock = stock - $1 where id = $2
	`, quantity, productID)
	return err
}

func releaseStock(ctx context.Context, tx *sqlx.Tx, productID int64, quantity int32) error {
	_, err := tx.ExecContext(ctx, `
		update products set stock = stock + $1 where id = $2
	`, quantity, productID)
	return err
}
