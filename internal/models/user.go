package models

import "time"

// User owns jobs and holds the provider session credential used for
// extraction on their behalf
type User struct {
	ID                 int64     `db:"id" json:"id"`
	Email              string    `db:"email" json:"email"`
	Name               string    `db:"name" json:"name"`
	ProviderCredential string    `db:"provider_credential" json:"-"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
