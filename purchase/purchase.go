package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"compras/ent"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is one of the known statuses. COMPLETED is
// terminal: a purchase that reached it rejects every later mutation.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// UpdateRequest carries the optional fields of a purchase update. Nil
// means "leave as is"; Items == nil keeps the existing line items.
type UpdateRequest struct {
	UserID *int64
	Status *Status
	Items  []Item
}

// Service owns the purchase tables and the products stock column.
// Every mutation runs in a single transaction: validation reads lock
// the product rows, so stock stays sufficient from check to write.
type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Create stores a purchase with its line items, reserving stock for
// each of them, and returns the new id and computed total. On any
// failure the whole transaction is rolled back.
func (s *Service) Create(ctx context.Context, userID int64, status Status, items []Item) (id int64, total float64, err error) {
	if !status.Valid() {
		return 0, 0, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	if err = checkItems(items); err != nil {
		return 0, 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	total, err = validateItems(ctx, tx, items)
	if err != nil {
		return 0, 0, err
	}

	err = tx.QueryRowxContext(ctx, `
		insert into purchases(user_id, total, status)
		values ($1, 0, $2)
		returning id
	`, userID, string(status)).Scan(&id)
	if err != nil {
		return 0, 0, err
	}

	if err = insertDetails(ctx, tx, id, items); err != nil {
		return 0, 0, err
	}

	_, err = tx.ExecContext(ctx, `
		update purchases set total = $1, purchase_date = $2 where id = $3
	`, total, time.Now(), id)
	if err != nil {
		return 0, 0, err
	}

	err = tx.Commit()
	return id, total, err
}

// Update applies the supplied fields to an existing purchase. When new
// items come with the request, the old details are removed and their
// stock released before the new set is stored, so a repeated update
// with identical items leaves stock unchanged. The returned total is 0
// when items were not part of the request.
func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (total float64, err error) {
	if req.Status != nil && !req.Status.Valid() {
		return 0, fmt.Errorf("%q: %w", *req.Status, ErrInvalidStatus)
	}
	if req.Items != nil {
		if err = checkItems(req.Items); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	p, err := loadPurchase(ctx, tx, id)
	if err != nil {
		return 0, err
	}
	if Status(p.Status) == StatusCompleted {
		return 0, fmt.Errorf("purchase %d: %w", id, ErrPurchaseLocked)
	}

	if req.Items != nil {
		total, err = validateItems(ctx, tx, req.Items)
		if err != nil {
			return 0, err
		}
	}

	userID := p.UserID
	if req.UserID != nil {
		userID = *req.UserID
	}
	status := p.Status
	if req.Status != nil {
		status = string(*req.Status)
	}
	newTotal := p.Total
	if req.Items != nil {
		newTotal = total
	}

	_, err = tx.ExecContext(ctx, `
		update purchases
		set user_id = $1, status = $2, total = $3, purchase_date = $4
		where id = $5
	`, userID, status, newTotal, time.Now(), id)
	if err != nil {
		return 0, err
	}

	if req.Items != nil {
		if err = dropDetails(ctx, tx, id); err != nil {
			return 0, err
		}
		if err = insertDetails(ctx, tx, id, req.Items); err != nil {
			return 0, err
		}
	}

	err = tx.Commit()
	return total, err
}

// Delete removes a purchase and its details, releasing the stock every
// detail had reserved. COMPLETED purchases are immutable and cannot be
// deleted either.
func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	p, err := loadPurchase(ctx, tx, id)
	if err != nil {
		return err
	}
	if Status(p.Status) == StatusCompleted {
		return fmt.Errorf("purchase %d: %w", id, ErrPurchaseLocked)
	}

	if err = dropDetails(ctx, tx, id); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		delete from purchases where id = $1
	`, id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// List returns every purchase with its details nested, plus the user
// and product names. The join is inner, so a purchase without details
// would not show up; the mutation path never commits one.
func (s *Service) List(ctx context.Context) ([]ent.Purchase, error) {
	rows, err := s.db.QueryxContext(ctx, `
		select p.id, p.user_id, p.total, p.status, p.purchase_date,
		       u.name as user_name,
		       d.id as detail_id, d.product_id, d.quantity,
		       d.price as detail_price, d.subtotal,
		       pr.name as product_name
		from purchases p
		    join users u on u.id = p.user_id
		    join purchase_details d on d.purchase_id = p.id
		    join products pr on pr.id = d.product_id
		order by p.id, d.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []ent.Purchase
	for rows.Next() {
		var r struct {
			ID           int64     `db:"id"`
			UserID       int64     `db:"user_id"`
			Total        float64   `db:"total"`
			Status       string    `db:"status"`
			PurchaseDate time.Time `db:"purchase_date"`
			UserName     string    `db:"user_name"`
			DetailID     int64     `db:"detail_id"`
			ProductID    int64     `db:"product_id"`
			Quantity     int32     `db:"quantity"`
			DetailPrice  float64   `db:"detail_price"`
			Subtotal     float64   `db:"subtotal"`
			ProductName  string    `db:"product_name"`
		}
		if err := rows.StructScan(&r); err != nil {
			return nil, err
		}

		if len(ps) == 0 || ps[len(ps)-1].ID != r.ID {
			ps = append(ps, ent.Purchase{
				ID:           r.ID,
				UserID:       r.UserID,
				Total:        r.Total,
				Status:       r.Status,
				PurchaseDate: r.PurchaseDate,
				UserName:     r.UserName,
			})
		}

		p := &ps[len(ps)-1]
		p.Details = append(p.Details, ent.PurchaseDetail{
			ID:          r.DetailID,
			PurchaseID:  r.ID,
			ProductID:   r.ProductID,
			Quantity:    r.Quantity,
			Price:       r.DetailPrice,
			Subtotal:    r.Subtotal,
			ProductName: r.ProductName,
		})
	}

	return ps, rows.Err()
}

func loadPurchase(ctx context.Context, tx *sqlx.Tx, id int64) (ent.Purchase, error) {
	var p ent.Purchase
	err := tx.QueryRowxContext(ctx, `
		select id, user_id, total, status, purchase_date from purchases
		where id = $1
		for update
	`, id).StructScan(&p)
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("purchase %d: %w", id, ErrPurchaseNotFound)
	}
	return p, err
}

// insertDetails stores one detail row per item and reserves its stock.
func insertDetails(ctx context.Context, tx *sqlx.Tx, purchaseID int64, items []Item) error {
	for _, it := range items {
		_, err := tx.ExecContext(ctx, `
			insert into purchase_details(purchase_id, product_id, quantity, price, subtotal)
			values ($1, $2, $3, $4, $5)
		`, purchaseID, *it.ProductID, *it.Quantity, *it.Price, *it.Price*float64(*it.Quantity))
		if err != nil {
			return err
		}

		if err := reserveStock(ctx, tx, *it.ProductID, *it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// dropDetails releases the stock held by the purchase's details and
// deletes them.
func dropDetails(ctx context.Context, tx *sqlx.Tx, purchaseID int64) error {
	var ds []ent.PurchaseDetail
	err := tx.SelectContext(ctx, &ds, `
		select id, purchase_id, product_id, quantity, price, subtotal
		from purchase_details
		where purchase_id = $1
	`, purchaseID)
	if err != nil {
		return err
	}

	for _, d := range ds {
		if err := releaseStock(ctx, tx, d.ProductID, d.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		delete from purchase_details where purchase_id = $1
	`, purchaseID)
	return err
}
