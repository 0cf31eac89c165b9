package store

import (
	"context"
	"time"

	"piggybank/internal/models"
)

type ExpenseStore struct {
	db DB
}

func NewExpenseStore(db DB) *ExpenseStore {
	return &ExpenseStore{db: db}
}

const expenseColumns = `id, bank_id, name, description, price, purchased, date_added, date_purchased, purchased_by`

func (s *ExpenseStore) Create(ctx context.Context, tx Execer, expense models.Expense) error {
	query := `
		INSERT INTO expenses (id, bank_id, name, description, price, purchased, date_added, date_purchased, purchased_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.ExecContext(ctx, query,
		expense.ID,
		expense.BankID,
		expense.Name,
		expense.Description,
		expense.Price,
		expense.Purchased,
		expense.DateAdded,
		expense.DatePurchased,
		expense.PurchasedBy,
	)
	return err
}

func (s *ExpenseStore) GetByID(ctx context.Context, tx Getter, expenseID string) (models.Expense, error) {
	var row models.Expense
	err := tx.GetContext(ctx, &row, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return models.Expense{}, err
	}
	return row, nil
}

func (s *ExpenseStore) MarkPurchased(ctx context.Context, tx Execer, expenseID, purchasedBy string, purchasedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET purchased = TRUE, date_purchased = $1, purchased_by = $2
		WHERE id = $3
	`, purchasedAt, purchasedBy, expenseID)
	return err
}

// MarkRefunded flips the purchase flag back and clears the purchase date.
// purchased_by is kept as the last purchaser.
func (s *ExpenseStore) MarkRefunded(ctx context.Context, tx Execer, expenseID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE expenses
		SET purchased = FALSE, date_purchased = NULL
		WHERE id = $1
	`, expenseID)
	return err
}

func (s *ExpenseStore) Delete(ctx context.Context, tx Execer, expenseID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, expenseID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExpenseStore) DeleteByBank(ctx context.Context, tx Execer, bankID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE bank_id = $1`, bankID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *ExpenseStore) ListByBank(ctx context.Context, bankID string) ([]models.Expense, error) {
	var rows []models.Expense
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE bank_id = $1
		ORDER BY date_added DESC, id
	`, bankID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RecentPurchased returns the newest purchased expenses of a bank.
func (s *ExpenseStore) RecentPurchased(ctx context.Context, bankID string, limit int) ([]models.Expense, error) {
	var rows []models.Expense
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+expenseColumns+`
		FROM expenses
		WHERE bank_id = $1 AND purchased = TRUE
		ORDER BY date_purchased DESC, id
		LIMIT $2
	`, bankID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
