package core

import "github.com/google/uuid"

// NewID returns a random UUID string used for run correlation.
func NewID() string { return uuid.NewString() }
