package ent

import "time"

type Purchase struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	Total        float64   `json:"total" db:"total"`
	Status       string    `json:"status" db:"status"`
	PurchaseDate time.Time `json:"purchase_date" db:"purchase_date"`

	UserName string           `json:"user,omitempty" db:"user_name"`
	Details  []PurchaseDetail `json:"details,omitempty" db:"-"`
}

type PurchaseDetail struct {
	ID         int64   `json:"id" db:"id"`
	PurchaseID int64   `json:"purchase_id" db:"purchase_id"`
	ProductID  int64   `json:"product_id" db:"product_id"`
	Quantity   int32   `json:"quantity" db:"quantity"`
	Price      float64 `json:"price" db:"price"`
	Subtotal   float64 `json:"subtotal" db:"subtotal"`

	ProductName string `json:"product,omitempty" db:"product_name"`
}

type Product struct {
	ID    int64   `json:"id" db:"id"`
	Name  string  `json:"name" db:"name"`
	Price float64 `json:"price" db:"price"`
	Stock int32   `json:"stock" db:"stock"`
}

type User struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}
