package store

import (
	"context"

	"piggybank/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, username, email, password_hash, role, parent_id, active, created_at`

func (s *UserStore) Create(ctx context.Context, tx Execer, user models.User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, role, parent_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query, user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.ParentID, user.Active)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) ListAll(ctx context.Context) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users ORDER BY created_at, username`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *UserStore) ListChildren(ctx context.Context, parentID string) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `SELECT `+userColumns+` FROM users WHERE parent_id = $1 ORDER BY username`, parentID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
