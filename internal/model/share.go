package model

import "time"

// Share is a nanny-sharing arrangement. PublicID is the opaque
// identifier exchanged with clients and used to key realtime rooms.
type Share struct {
	ID        int64     `json:"id"`
	PublicID  string    `json:"public_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ShareMember struct {
	ID        int64     `json:"id"`
	ShareID   int64     `json:"share_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
