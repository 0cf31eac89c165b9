package store

import (
	"context"

	"piggybank/internal/models"
)

type DepositStore struct {
	db DB
}

func NewDepositStore(db DB) *DepositStore {
	return &DepositStore{db: db}
}

const depositColumns = `id, bank_id, amount_deposited, date_deposited, balance, source, source_id, description`

func (s *DepositStore) Create(ctx context.Context, tx Execer, deposit models.Deposit) error {
	query := `
		INSERT INTO deposits (id, bank_id, amount_deposited, date_deposited, balance, source, source_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		deposit.ID,
		deposit.BankID,
		deposit.AmountDeposited,
		deposit.DateDeposited,
		deposit.Balance,
		deposit.Source,
		deposit.SourceID,
		deposit.Description,
	)
	return err
}

func (s *DepositStore) GetByID(ctx context.Context, tx Getter, depositID string) (models.Deposit, error) {
	var row models.Deposit
	err := tx.GetContext(ctx, &row, `SELECT `+depositColumns+` FROM deposits WHERE id = $1`, depositID)
	if err != nil {
		return models.Deposit{}, err
	}
	return row, nil
}

func (s *DepositStore) Delete(ctx context.Context, tx Execer, depositID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM deposits WHERE id = $1`, depositID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DepositStore) DeleteByBank(ctx context.Context, tx Execer, bankID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM deposits WHERE bank_id = $1`, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *DepositStore) ListByBank(ctx context.Context, bankID string) ([]models.Deposit, error) {
	var rows []models.Deposit
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE bank_id = $1
		ORDER BY date_deposited DESC, id
	`, bankID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Recent returns the newest deposits of a bank, at most limit rows.
func (s *DepositStore) Recent(ctx context.Context, bankID string, limit int) ([]models.Deposit, error) {
	var rows []models.Deposit
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+depositColumns+`
		FROM deposits
		WHERE bank_id = $1
		ORDER BY date_deposited DESC, id
		LIMIT $2
	`, bankID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
