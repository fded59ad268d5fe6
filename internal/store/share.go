package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tandemapp/tandem/internal/model"
)

type ShareStore struct {
	db *sql.DB
}

func NewShareStore(db *sql.DB) *ShareStore {
	return &ShareStore{db: db}
}

func scanShare(scanner interface{ Scan(...any) error }) (*model.Share, error) {
	var sh model.Share
	var joinCodeHash string
	err := scanner.Scan(&sh.ID, &sh.PublicID, &sh.Name, &joinCodeHash, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func scanShareMember(scanner interface{ Scan(...any) error }) (*model.ShareMember, error) {
	var m model.ShareMember
	err := scanner.Scan(&m.ID, &m.ShareID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

const shareCols = `id, public_id, name, join_code_hash, created_at, updated_at`
const shareMemberCols = `id, share_id, user_id, role, created_at`

// Create inserts a share with a fresh public ID and a bcrypt hash of
// the join code other families use to join it.
func (s *ShareStore) Create(name, joinCode string) (*model.Share, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(joinCode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash join code: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO shares (public_id, name, join_code_hash) VALUES (?, ?, ?)`,
		uuid.NewString(), name, string(hash),
	)
	if err != nil {
		return nil, fmt.Errorf("insert share: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ShareStore) GetByID(id int64) (*model.Share, error) {
	row := s.db.QueryRow(`SELECT `+shareCols+` FROM shares WHERE id = ?`, id)
	sh, err := scanShare(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share: %w", err)
	}
	return sh, nil
}

func (s *ShareStore) GetByPublicID(publicID string) (*model.Share, error) {
	row := s.db.QueryRow(`SELECT `+shareCols+` FROM shares WHERE public_id = ?`, publicID)
	sh, err := scanShare(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share by public id: %w", err)
	}
	return sh, nil
}

// VerifyJoinCode checks a candidate join code against the stored hash.
func (s *ShareStore) VerifyJoinCode(id int64, joinCode string) (bool, error) {
	var hash string
	err := s.db.QueryRow(`SELECT join_code_hash FROM shares WHERE id = ?`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get join code hash: %w", err)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(joinCode)) == nil, nil
}

// AddMember adds a user to a share. Duplicate adds return the existing
// membership unchanged.
func (s *ShareStore) AddMember(shareID, userID int64, role string) (*model.ShareMember, error) {
	existing, err := s.GetMember(shareID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	_, err = s.db.Exec(
		`INSERT INTO share_members (share_id, user_id, role) VALUES (?, ?, ?)`,
		shareID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert share member: %w", err)
	}
	return s.GetMember(shareID, userID)
}

func (s *ShareStore) GetMember(shareID, userID int64) (*model.ShareMember, error) {
	row := s.db.QueryRow(
		`SELECT `+shareMemberCols+` FROM share_members WHERE share_id = ? AND user_id = ?`,
		shareID, userID,
	)
	m, err := scanShareMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share member: %w", err)
	}
	return m, nil
}

func (s *ShareStore) RemoveMember(shareID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM share_members WHERE share_id = ? AND user_id = ?`,
		shareID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove share member: %w", err)
	}
	return nil
}

func (s *ShareStore) ListMembers(shareID int64) ([]model.ShareMember, error) {
	rows, err := s.db.Query(
		`SELECT `+shareMemberCols+` FROM share_members WHERE share_id = ? ORDER BY created_at ASC`,
		shareID,
	)
	if err != nil {
		return nil, fmt.Errorf("query share members: %w", err)
	}
	defer rows.Close()

	var members []model.ShareMember
	for rows.Next() {
		m, err := scanShareMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// ListForUser returns the shares the user belongs to.
func (s *ShareStore) ListForUser(userID int64) ([]model.Share, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.public_id, s.name, s.join_code_hash, s.created_at, s.updated_at
		 FROM shares s
		 JOIN share_members m ON m.share_id = s.id
		 WHERE m.user_id = ?
		 ORDER BY s.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query shares for user: %w", err)
	}
	defer rows.Close()

	var shares []model.Share
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, *sh)
	}
	return shares, rows.Err()
}
