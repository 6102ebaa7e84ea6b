package common

import (
	"errors"

	"basketswap/core/fixedpoint"
)

// Error kinds shared by the native engines. Engines wrap these with
// operation-specific context; callers match them with errors.Is.
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTransferMismatch    = errors.New("transfer mismatch")
	ErrNotActive           = errors.New("not active")
	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrReentrantCall       = errors.New("reentrant call")

	ErrArithmeticUnderflow = fixedpoint.ErrUnderflow
	ErrArithmeticOverflow  = fixedpoint.ErrOverflow
)
