package models

import "time"

// User is an account. Email and Username are unique; Confirmed only ever
// goes from false to true.
type User struct {
	ID             string
	UserName       string
	Email          string
	HashedPassword string
	Confirmed      bool
	CreatedAt      time.Time
}
