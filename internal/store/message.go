package store

import (
	"database/sql"
	"fmt"

	"github.com/tandemapp/tandem/internal/model"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func scanMessage(scanner interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	err := scanner.Scan(&m.ID, &m.ShareID, &m.UserID, &m.Body, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const messageCols = `id, share_id, user_id, body, created_at`

func (s *MessageStore) Create(shareID, userID int64, body string) (*model.Message, error) {
	result, err := s.db.Exec(
		`INSERT INTO messages (share_id, user_id, body) VALUES (?, ?, ?)`,
		shareID, userID, body,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+messageCols+` FROM messages WHERE id = ?`, id)
	return scanMessage(row)
}

// ListByShare returns up to limit messages for a share, oldest first.
func (s *MessageStore) ListByShare(shareID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT `+messageCols+` FROM messages WHERE share_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		shareID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (s *MessageStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
