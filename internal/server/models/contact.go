package models

import "time"

// Contact is an address book entry owned by a user.
type Contact struct {
	ID        int64
	UserID    string
	Name      string
	Surname   string
	Email     string
	Phone     string
	Birthday  time.Time
	Info      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
