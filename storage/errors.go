package storage

import (
	"errors"
)

var (
	// Note: there is another not found error: badger.ErrKeyNotFound. The
	// difference is that badger.ErrKeyNotFound is returned by the badger
	// API, whereas modules in storage/badger and storage/badger/operation
	// both return storage.ErrNotFound for missing entries.
	ErrNotFound = errors.New("key not found")

	ErrAlreadyExists = errors.New("key already exists")
)
