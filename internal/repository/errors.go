package repository

import "errors"

// Common repository errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrDuplicateKey         = errors.New("duplicate key violation")
	ErrBatchInactive        = errors.New("batch is inactive")
	ErrBatchExpired         = errors.New("batch has expired")
	ErrInsufficientQuantity = errors.New("insufficient remaining quantity in batch")
	ErrStaleRecord          = errors.New("record changed since it was read")
)
