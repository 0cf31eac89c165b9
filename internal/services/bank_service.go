package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"piggybank/internal/auth"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/validator"
)

// BankOverview is a bank with its latest activity.
type BankOverview struct {
	Bank           models.PiggyBank `json:"bank"`
	RecentExpenses []models.Expense `json:"recent_expenses"`
	RecentDeposits []models.Deposit `json:"recent_deposits"`
}

func (s *LedgerService) CreateBank(ctx context.Context, actorID, name string) (models.PiggyBank, error) {
	name = strings.TrimSpace(name)
	if err := validator.ValidateName(name); err != nil {
		return models.PiggyBank{}, err
	}
	bank := models.PiggyBank{
		ID:             uuid.NewString(),
		UserID:         actorID,
		Name:           name,
		CurrentBalance: decimal.Zero,
		CreatedAt:      s.now(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.bankStore.Create(ctx, tx, bank)
	})
	if err != nil {
		return models.PiggyBank{}, err
	}
	s.logger.InfoContext(ctx, "bank created", log.FieldBankID, bank.ID, log.FieldActorID, actorID)
	return bank, nil
}

// GetBank returns the bank when actorID owns it.
func (s *LedgerService) GetBank(ctx context.Context, actorID, bankID string) (models.PiggyBank, error) {
	bank, err := s.bankStore.GetByID(ctx, bankID)
	if err != nil {
		return models.PiggyBank{}, translateNotFound(err, ErrBankNotFound)
	}
	if bank.UserID != actorID {
		return models.PiggyBank{}, s.reject(ctx, ErrUnauthorizedBank, actorID, "read", "bank", bankID)
	}
	return bank, nil
}

func (s *LedgerService) ListBanks(ctx context.Context, actorID string) ([]models.PiggyBank, error) {
	return s.bankStore.ListByUser(ctx, actorID)
}

func (s *LedgerService) BankOverview(ctx context.Context, actorID, bankID string) (BankOverview, error) {
	bank, err := s.GetBank(ctx, actorID, bankID)
	if err != nil {
		return BankOverview{}, err
	}
	expenses, err := s.expenseStore.RecentPurchased(ctx, bankID, overviewSize)
	if err != nil {
		return BankOverview{}, err
	}
	deposits, err := s.depositStore.Recent(ctx, bankID, overviewSize)
	if err != nil {
		return BankOverview{}, err
	}
	return BankOverview{Bank: bank, RecentExpenses: expenses, RecentDeposits: deposits}, nil
}

func (s *LedgerService) RenameBank(ctx context.Context, actorID, bankID, name string) (models.PiggyBank, error) {
	name = strings.TrimSpace(name)
	if err := validator.ValidateName(name); err != nil {
		return models.PiggyBank{}, err
	}
	var bank models.PiggyBank
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		bank, err = s.lockOwnedBank(ctx, tx, actorID, bankID)
		if err != nil {
			return err
		}
		rows, err := s.bankStore.Rename(ctx, tx, bankID, name)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrBankNotFound
		}
		bank.Name = name
		return nil
	})
	if err != nil {
		return models.PiggyBank{}, s.reject(ctx, err, actorID, log.OpUpdate, "bank", bankID)
	}
	return bank, nil
}

// DeleteBank removes a bank after the owner confirms with their password.
// Allowances, expenses and deposits are deleted first, all in the same
// transaction.
func (s *LedgerService) DeleteBank(ctx context.Context, actorID, bankID, password string) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return translateNotFound(err, ErrUserNotFound)
	}
	if !auth.CheckPassword(actor.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.lockOwnedBank(ctx, tx, actorID, bankID); err != nil {
			return err
		}
		if _, err := s.allowanceStore.DeleteByBank(ctx, tx, bankID); err != nil {
			return err
		}
		if _, err := s.expenseStore.DeleteByBank(ctx, tx, bankID); err != nil {
			return err
		}
		if _, err := s.depositStore.DeleteByBank(ctx, tx, bankID); err != nil {
			return err
		}
		rows, err := s.bankStore.Delete(ctx, tx, bankID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrBankNotFound
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, err, actorID, log.OpDelete, "bank", bankID)
	}
	s.logger.InfoContext(ctx, "bank deleted", log.FieldBankID, bankID, log.FieldActorID, actorID)
	return nil
}
