package models

import "github.com/google/uuid"

// NewID returns a time-ordered id (UUIDv7: millisecond clock plus random bits),
// so two entries created in the same millisecond still get distinct ids.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
