package matrix

import "errors"

// Sentinel kinds for matrix errors.
var (
	ErrInvalidMatrixShape = errors.New("invalid matrix shape")
	ErrUnknownObserver    = errors.New("unknown observer")
)
