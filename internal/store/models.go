package store

import "time"

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"firstname"`
	LastName     string    `json:"lastname"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// StoredDocument is the raw uploaded file, keyed by name ("<userId>.<ext>").
// Each user holds at most one document; a re-upload overwrites it.
type StoredDocument struct {
	Name      string    `json:"name"`
	Data      []byte    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}
