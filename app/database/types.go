package database

import (
	"time"
)

// Record is the durable trace of a sent notification, unique on ID.
type Record struct {
	ID        string    `json:"id"`
	PostedAt  string    `json:"posted_at"`
	Price     string    `json:"price"`
	URL       string    `json:"url"`
	Brief     string    `json:"brief"`
	CreatedAt time.Time `json:"created_at"`
}
