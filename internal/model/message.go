package model

import "time"

type Message struct {
	ID        int64     `json:"id"`
	ShareID   int64     `json:"share_id"`
	UserID    int64     `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
