package store

import (
	"database/sql"
	"fmt"

	"github.com/tandemapp/tandem/internal/model"
)

type BackupStore struct {
	db *sql.DB
}

func NewBackupStore(db *sql.DB) *BackupStore {
	return &BackupStore{db: db}
}

func scanBackup(scanner interface{ Scan(...any) error }) (*model.Backup, error) {
	var b model.Backup
	err := scanner.Scan(&b.ID, &b.Filename, &b.S3Key, &b.SizeBytes, &b.State, &b.Error, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const backupCols = `id, filename, s3_key, size_bytes, state, error, created_at`

func (s *BackupStore) Create(filename, s3Key string) (*model.Backup, error) {
	result, err := s.db.Exec(
		`INSERT INTO backups (filename, s3_key) VALUES (?, ?)`,
		filename, s3Key,
	)
	if err != nil {
		return nil, fmt.Errorf("insert backup: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BackupStore) GetByID(id int64) (*model.Backup, error) {
	row := s.db.QueryRow(`SELECT `+backupCols+` FROM backups WHERE id = ?`, id)
	b, err := scanBackup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get backup: %w", err)
	}
	return b, nil
}

// MarkUploaded records a successful upload and the archive size.
func (s *BackupStore) MarkUploaded(id, sizeBytes int64) error {
	_, err := s.db.Exec(
		`UPDATE backups SET state = 'uploaded', size_bytes = ?, error = '' WHERE id = ?`,
		sizeBytes, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup uploaded: %w", err)
	}
	return nil
}

// MarkFailed records a failed backup attempt with its error text.
func (s *BackupStore) MarkFailed(id int64, errText string) error {
	_, err := s.db.Exec(
		`UPDATE backups SET state = 'failed', error = ? WHERE id = ?`,
		errText, id,
	)
	if err != nil {
		return fmt.Errorf("mark backup failed: %w", err)
	}
	return nil
}

// List returns backups, newest first.
func (s *BackupStore) List(limit int) ([]model.Backup, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT `+backupCols+` FROM backups ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	var backups []model.Backup
	for rows.Next() {
		b, err := scanBackup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		backups = append(backups, *b)
	}
	return backups, rows.Err()
}
