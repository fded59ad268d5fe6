package model

import "time"

// Schedule is one user's weekly care schedule, keyed by the Monday of
// the week it applies to (WeekDate, YYYY-MM-DD).
type Schedule struct {
	ID           int64              `json:"id"`
	UserID       int64              `json:"user_id"`
	Title        string             `json:"title"`
	Days         []string           `json:"days"`
	StartTime    string             `json:"start_time"`
	EndTime      string             `json:"end_time"`
	Location     string             `json:"location"`
	Notes        string             `json:"notes"`
	DeletedDates []string           `json:"deleted_dates"`
	EditedDates  []string           `json:"edited_dates"`
	DayTimes     map[string]DayTime `json:"day_times"`
	WeekDate     string             `json:"week_date"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// DayTime overrides the schedule's start/end times for a single day.
type DayTime struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}
