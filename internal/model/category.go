package model

import "time"

// Category represents a member of the spending taxonomy. Categories are
// retired, never deleted, so historical references stay intact.
type Category struct {
	CreatedAt   time.Time
	Name        string
	Description string
	ID          int
	IsActive    bool
}
