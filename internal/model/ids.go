package model

import "github.com/google/uuid"

// IDGenerator produces unique record identifiers.
type IDGenerator func() string

// NewID returns a random UUID string.
func NewID() string { return uuid.NewString() }
