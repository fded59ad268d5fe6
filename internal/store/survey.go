package store

import (
	"database/sql"
	"fmt"

	"github.com/tandemapp/tandem/internal/model"
)

type SurveyStore struct {
	db *sql.DB
}

func NewSurveyStore(db *sql.DB) *SurveyStore {
	return &SurveyStore{db: db}
}

func scanSurvey(scanner interface{ Scan(...any) error }) (*model.Survey, error) {
	var sv model.Survey
	err := scanner.Scan(
		&sv.ID, &sv.UserID, &sv.CareNeeds, &sv.Children, &sv.ZipCode,
		&sv.Availability, &sv.Notes, &sv.CreatedAt, &sv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sv, nil
}

const surveyCols = `id, user_id, care_needs, children, zip_code, availability, notes, created_at, updated_at`

func (s *SurveyStore) Create(userID int64, careNeeds string, children int, zipCode, availability, notes string) (*model.Survey, error) {
	result, err := s.db.Exec(
		`INSERT INTO surveys (user_id, care_needs, children, zip_code, availability, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, careNeeds, children, zipCode, availability, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert survey: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SurveyStore) GetByID(id int64) (*model.Survey, error) {
	row := s.db.QueryRow(`SELECT `+surveyCols+` FROM surveys WHERE id = ?`, id)
	sv, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return sv, nil
}

// GetLatestByUser returns the user's most recent survey, or nil.
func (s *SurveyStore) GetLatestByUser(userID int64) (*model.Survey, error) {
	row := s.db.QueryRow(
		`SELECT `+surveyCols+` FROM surveys WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT 1`,
		userID,
	)
	sv, err := scanSurvey(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest survey: %w", err)
	}
	return sv, nil
}

func (s *SurveyStore) Update(id int64, careNeeds string, children int, zipCode, availability, notes string) (*model.Survey, error) {
	_, err := s.db.Exec(
		`UPDATE surveys SET care_needs = ?, children = ?, zip_code = ?, availability = ?, notes = ?,
			updated_at = datetime('now')
		 WHERE id = ?`,
		careNeeds, children, zipCode, availability, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update survey: %w", err)
	}
	return s.GetByID(id)
}

func (s *SurveyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	return nil
}
