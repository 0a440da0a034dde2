package issuer

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderExists       = errors.New("order already exists")
	ErrTransactionClosed = errors.New("transaction is cancelled or failed")
	ErrAlreadySettled    = errors.New("transaction already completed")
)
