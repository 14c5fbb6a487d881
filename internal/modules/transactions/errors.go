package transactions

import "errors"

var (
	ErrOwnProduct     = errors.New("cannot buy own product")
	ErrProductSold    = errors.New("product already sold")
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrSellerMismatch = errors.New("seller does not match product")
)
