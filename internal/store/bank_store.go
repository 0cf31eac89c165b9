package store

import (
	"context"

	"github.com/shopspring/decimal"

	"piggybank/internal/models"
)

type BankStore struct {
	db DB
}

func NewBankStore(db DB) *BankStore {
	return &BankStore{db: db}
}

func (s *BankStore) Create(ctx context.Context, tx Execer, bank models.PiggyBank) error {
	query := `
		INSERT INTO piggy_banks (id, user_id, name, current_balance)
		VALUES ($1, $2, $3, $4)
	`
	_, err := tx.ExecContext(ctx, query, bank.ID, bank.UserID, bank.Name, bank.CurrentBalance)
	return err
}

func (s *BankStore) GetByID(ctx context.Context, bankID string) (models.PiggyBank, error) {
	var row models.PiggyBank
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, name, current_balance, created_at
		FROM piggy_banks
		WHERE id = $1
	`, bankID)
	if err != nil {
		return models.PiggyBank{}, err
	}
	return row, nil
}

// GetForUpdate locks the bank row until the surrounding transaction ends.
func (s *BankStore) GetForUpdate(ctx context.Context, tx Getter, bankID string) (models.PiggyBank, error) {
	var row models.PiggyBank
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, name, current_balance, created_at
		FROM piggy_banks
		WHERE id = $1
		FOR UPDATE
	`, bankID)
	if err != nil {
		return models.PiggyBank{}, err
	}
	return row, nil
}

func (s *BankStore) UpdateBalance(ctx context.Context, tx Execer, bankID string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE piggy_banks
		SET current_balance = $1
		WHERE id = $2
	`, balance, bankID)
	return err
}

func (s *BankStore) Rename(ctx context.Context, tx Execer, bankID, name string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE piggy_banks
		SET name = $1
		WHERE id = $2
	`, name, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BankStore) Delete(ctx context.Context, tx Execer, bankID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM piggy_banks WHERE id = $1`, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *BankStore) ListByUser(ctx context.Context, userID string) ([]models.PiggyBank, error) {
	var rows []models.PiggyBank
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, name, current_balance, created_at
		FROM piggy_banks
		WHERE user_id = $1
		ORDER BY created_at, name
	`, userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
