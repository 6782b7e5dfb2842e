package domain

import "time"

// User is a persisted user record. Version is the optimistic-concurrency
// counter maintained by the store; it is never exposed over the API.
type User struct {
	ID        int64
	Username  string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
}
