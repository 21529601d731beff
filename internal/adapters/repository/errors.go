package repository

import (
	"errors"

	"github.com/Clinico01/ranking-de-clientes3/internal/domain/model"
)

// Sentinel kinds for store errors. ErrNotFound is shared with the domain so
// callers above the store can match it without importing this package.
var (
	ErrNotFound      = model.ErrNotFound
	ErrAlreadyExists = errors.New("record already exists")
	ErrEmptyID       = errors.New("empty record id")
	ErrClosed        = errors.New("store closed")
)
