package store

import (
	"context"

	"piggybank/internal/models"
)

type AllowanceStore struct {
	db DB
}

func NewAllowanceStore(db DB) *AllowanceStore {
	return &AllowanceStore{db: db}
}

// AllowancePayout is an active allowance joined with the owner of its bank.
type AllowancePayout struct {
	models.Allowance
	OwnerID string `db:"owner_id"`
}

const allowanceColumns = `id, bank_id, amount, description, frequency, payday, active`

func (s *AllowanceStore) Create(ctx context.Context, tx Execer, allowance models.Allowance) error {
	query := `
		INSERT INTO allowances (id, bank_id, amount, description, frequency, payday, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		allowance.ID,
		allowance.BankID,
		allowance.Amount,
		allowance.Description,
		allowance.Frequency,
		allowance.Payday,
		allowance.Active,
	)
	return err
}

func (s *AllowanceStore) GetByID(ctx context.Context, tx Getter, allowanceID string) (models.Allowance, error) {
	var row models.Allowance
	err := tx.GetContext(ctx, &row, `SELECT `+allowanceColumns+` FROM allowances WHERE id = $1`, allowanceID)
	if err != nil {
		return models.Allowance{}, err
	}
	return row, nil
}

func (s *AllowanceStore) Update(ctx context.Context, tx Execer, allowance models.Allowance) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE allowances
		SET amount = $1, frequency = $2, payday = $3, description = $4
		WHERE id = $5
	`, allowance.Amount, allowance.Frequency, allowance.Payday, allowance.Description, allowance.ID)
	return err
}

func (s *AllowanceStore) SetActive(ctx context.Context, tx Execer, allowanceID string, active bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE allowances
		SET active = $1
		WHERE id = $2
	`, active, allowanceID)
	return err
}

func (s *AllowanceStore) Delete(ctx context.Context, tx Execer, allowanceID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM allowances WHERE id = $1`, allowanceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AllowanceStore) DeleteByBank(ctx context.Context, tx Execer, bankID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM allowances WHERE bank_id = $1`, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *AllowanceStore) ListByBank(ctx context.Context, bankID string) ([]models.Allowance, error) {
	var rows []models.Allowance
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+allowanceColumns+`
		FROM allowances
		WHERE bank_id = $1
		ORDER BY frequency, id
	`, bankID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveForPayout returns every active allowance with the id of the user
// that owns its bank.
func (s *AllowanceStore) ListActiveForPayout(ctx context.Context) ([]AllowancePayout, error) {
	var rows []AllowancePayout
	err := s.db.SelectContext(ctx, &rows, `
		SELECT a.id, a.bank_id, a.amount, a.description, a.frequency, a.payday, a.active,
		       b.user_id AS owner_id
		FROM allowances a
		INNER JOIN piggy_banks b ON b.id = a.bank_id
		WHERE a.active = TRUE
		ORDER BY a.bank_id, a.id
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
