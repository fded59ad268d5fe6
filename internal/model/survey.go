package model

import "time"

// Survey holds a family's intake answers, used to match them with
// compatible shares.
type Survey struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	CareNeeds    string    `json:"care_needs"`
	Children     int       `json:"children"`
	ZipCode      string    `json:"zip_code"`
	Availability string    `json:"availability"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
