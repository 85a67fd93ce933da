package store

import "errors"

var (
	ErrDuplicateCreator = errors.New("creator already exists")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyProcessed = errors.New("video already processed")
)
