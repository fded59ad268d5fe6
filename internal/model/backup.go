package model

import "time"

type Backup struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	S3Key     string    `json:"s3_key"`
	SizeBytes int64     `json:"size_bytes"`
	State     string    `json:"state"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}
