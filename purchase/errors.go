package purchase

import "errors"

var (
	ErrEmptyItemSet        = errors.New("purchase must contain at least one item")
	ErrTooManyItems        = errors.New("purchase cannot contain more than 5 items")
	ErrMissingField        = errors.New("missing or invalid value")
	ErrInvalidStatus       = errors.New("unknown purchase status")
	ErrProductNotFound     = errors.New("product not found")
	ErrPurchaseNotFound    = errors.New("purchase not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrSpendingCapExceeded = errors.New("purchase total exceeds the spending cap")
	ErrPurchaseLocked      = errors.New("completed purchase cannot be modified")
)
