package models

import "time"

// Client is a policyholder, keyed by its normalized RUT.
type Client struct {
	ID        int64     `json:"id"`
	RUT       string    `json:"rut"`
	Name      string    `json:"nombre"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnnamedClient is the placeholder name used when a spreadsheet row carries
// a valid RUT but no client name.
const UnnamedClient = "SIN_NOMBRE"
