package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("observer not found")
	ErrAlreadyExists = errors.New("observer already exists")
	ErrInvalidRecord = errors.New("invalid observation record")
)
