package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrEmailTaken indicates a user with the same normalized email exists.
var ErrEmailTaken = errors.New("repository: email taken")

// ErrCorrupt indicates the backing document could not be parsed. It is
// fatal: a store must fail loudly rather than return partial data.
var ErrCorrupt = errors.New("repository: backing document corrupt")
