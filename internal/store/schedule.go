package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tandemapp/tandem/internal/model"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleCols = `id, user_id, title, days, start_time, end_time, location, notes,
	deleted_dates, edited_dates, day_times, week_date, created_at, updated_at`

func scanSchedule(scanner interface{ Scan(...any) error }) (*model.Schedule, error) {
	var sc model.Schedule
	var days, deletedDates, editedDates, dayTimes string

	err := scanner.Scan(
		&sc.ID, &sc.UserID, &sc.Title, &days, &sc.StartTime, &sc.EndTime,
		&sc.Location, &sc.Notes, &deletedDates, &editedDates, &dayTimes,
		&sc.WeekDate, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(days), &sc.Days); err != nil {
		return nil, fmt.Errorf("decode days: %w", err)
	}
	if err := json.Unmarshal([]byte(deletedDates), &sc.DeletedDates); err != nil {
		return nil, fmt.Errorf("decode deleted dates: %w", err)
	}
	if err := json.Unmarshal([]byte(editedDates), &sc.EditedDates); err != nil {
		return nil, fmt.Errorf("decode edited dates: %w", err)
	}
	if err := json.Unmarshal([]byte(dayTimes), &sc.DayTimes); err != nil {
		return nil, fmt.Errorf("decode day times: %w", err)
	}
	return &sc, nil
}

func encodeScheduleJSON(sc *model.Schedule) (days, deletedDates, editedDates, dayTimes string, err error) {
	if sc.Days == nil {
		sc.Days = []string{}
	}
	if sc.DeletedDates == nil {
		sc.DeletedDates = []string{}
	}
	if sc.EditedDates == nil {
		sc.EditedDates = []string{}
	}
	if sc.DayTimes == nil {
		sc.DayTimes = map[string]model.DayTime{}
	}

	d, err := json.Marshal(sc.Days)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encode days: %w", err)
	}
	dd, err := json.Marshal(sc.DeletedDates)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encode deleted dates: %w", err)
	}
	ed, err := json.Marshal(sc.EditedDates)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encode edited dates: %w", err)
	}
	dt, err := json.Marshal(sc.DayTimes)
	if err != nil {
		return "", "", "", "", fmt.Errorf("encode day times: %w", err)
	}
	return string(d), string(dd), string(ed), string(dt), nil
}

// Upsert saves a schedule keyed on (user_id, week_date): a second save
// for the same user and week replaces the first and bumps updated_at.
func (s *ScheduleStore) Upsert(sc *model.Schedule) (*model.Schedule, error) {
	days, deletedDates, editedDates, dayTimes, err := encodeScheduleJSON(sc)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`INSERT INTO schedules (user_id, title, days, start_time, end_time, location, notes,
			deleted_dates, edited_dates, day_times, week_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, week_date) DO UPDATE SET
			title = excluded.title,
			days = excluded.days,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			location = excluded.location,
			notes = excluded.notes,
			deleted_dates = excluded.deleted_dates,
			edited_dates = excluded.edited_dates,
			day_times = excluded.day_times,
			updated_at = datetime('now')`,
		sc.UserID, sc.Title, days, sc.StartTime, sc.EndTime, sc.Location, sc.Notes,
		deletedDates, editedDates, dayTimes, sc.WeekDate,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert schedule: %w", err)
	}

	return s.FindByUserAndWeek(sc.UserID, sc.WeekDate)
}

// FindByUserAndWeek returns the schedule stored for the user's week
// (Monday date, YYYY-MM-DD), or nil.
func (s *ScheduleStore) FindByUserAndWeek(userID int64, weekDate string) (*model.Schedule, error) {
	row := s.db.QueryRow(
		`SELECT `+scheduleCols+` FROM schedules WHERE user_id = ? AND week_date = ?`,
		userID, weekDate,
	)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find schedule by user and week: %w", err)
	}
	return sc, nil
}

func (s *ScheduleStore) GetByID(id int64) (*model.Schedule, error) {
	row := s.db.QueryRow(`SELECT `+scheduleCols+` FROM schedules WHERE id = ?`, id)
	sc, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	return sc, nil
}

// ListByUser returns all of a user's schedules, newest update first.
func (s *ScheduleStore) ListByUser(userID int64) ([]model.Schedule, error) {
	rows, err := s.db.Query(
		`SELECT `+scheduleCols+` FROM schedules WHERE user_id = ? ORDER BY updated_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []model.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedules = append(schedules, *sc)
	}
	return schedules, rows.Err()
}

func (s *ScheduleStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}
