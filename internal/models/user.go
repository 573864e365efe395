package models

import "time"

type User struct {
	UID          string    `json:"uid" db:"uid"`
	PasswordHash string    `json:"-" db:"password_hash"`
	DisplayName  *string   `json:"display_name,omitempty" db:"display_name"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Group struct {
	GID         string  `json:"gid" db:"gid"`
	DisplayName *string `json:"display_name,omitempty" db:"display_name"`
}
