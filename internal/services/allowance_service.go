package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/validator"
)

type AllowanceRequest struct {
	ActorID     string
	BankID      string
	Amount      decimal.Decimal
	Description string
	Frequency   string
	Payday      int
}

type ChangeAllowanceRequest struct {
	ActorID     string
	AllowanceID string
	Amount      decimal.Decimal
	Frequency   string
	Payday      int
	// Nil keeps the current description.
	Description *string
}

func validateCadence(frequency string, payday int) error {
	if err := validator.ValidateFrequency(frequency); err != nil {
		return err
	}
	return validator.ValidatePayday(payday)
}

// CreateAllowance adds an active allowance to a bank.
func (s *LedgerService) CreateAllowance(ctx context.Context, req AllowanceRequest) (models.Allowance, error) {
	if err := validAmount(req.Amount); err != nil {
		return models.Allowance{}, err
	}
	if err := validateCadence(req.Frequency, req.Payday); err != nil {
		return models.Allowance{}, err
	}
	allowance := models.Allowance{
		ID:          uuid.NewString(),
		BankID:      req.BankID,
		Amount:      req.Amount,
		Description: req.Description,
		Frequency:   req.Frequency,
		Payday:      req.Payday,
		Active:      true,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.lockOwnedBank(ctx, tx, req.ActorID, req.BankID); err != nil {
			return err
		}
		return s.allowanceStore.Create(ctx, tx, allowance)
	})
	if err != nil {
		return models.Allowance{}, s.reject(ctx, err, req.ActorID, log.OpCreate, "allowance", req.BankID)
	}
	return allowance, nil
}

// ToggleAllowance flips the active flag.
func (s *LedgerService) ToggleAllowance(ctx context.Context, actorID, allowanceID string) (models.Allowance, error) {
	var allowance models.Allowance
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		allowance, err = s.ownedAllowance(ctx, tx, actorID, allowanceID)
		if err != nil {
			return err
		}
		allowance.Active = !allowance.Active
		return s.allowanceStore.SetActive(ctx, tx, allowance.ID, allowance.Active)
	})
	if err != nil {
		return models.Allowance{}, s.reject(ctx, err, actorID, log.OpUpdate, "allowance", allowanceID)
	}
	return allowance, nil
}

func (s *LedgerService) ChangeAllowance(ctx context.Context, req ChangeAllowanceRequest) (models.Allowance, error) {
	if err := validAmount(req.Amount); err != nil {
		return models.Allowance{}, err
	}
	if err := validateCadence(req.Frequency, req.Payday); err != nil {
		return models.Allowance{}, err
	}
	var allowance models.Allowance
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		allowance, err = s.ownedAllowance(ctx, tx, req.ActorID, req.AllowanceID)
		if err != nil {
			return err
		}
		allowance.Amount = req.Amount
		allowance.Frequency = req.Frequency
		allowance.Payday = req.Payday
		if req.Description != nil {
			allowance.Description = *req.Description
		}
		return s.allowanceStore.Update(ctx, tx, allowance)
	})
	if err != nil {
		return models.Allowance{}, s.reject(ctx, err, req.ActorID, log.OpUpdate, "allowance", req.AllowanceID)
	}
	return allowance, nil
}

func (s *LedgerService) DeleteAllowance(ctx context.Context, actorID, allowanceID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ownedAllowance(ctx, tx, actorID, allowanceID); err != nil {
			return err
		}
		rows, err := s.allowanceStore.Delete(ctx, tx, allowanceID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAllowanceNotFound
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, err, actorID, log.OpDelete, "allowance", allowanceID)
	}
	return nil
}

func (s *LedgerService) ListAllowances(ctx context.Context, actorID, bankID string) ([]models.Allowance, error) {
	if _, err := s.GetBank(ctx, actorID, bankID); err != nil {
		return nil, err
	}
	return s.allowanceStore.ListByBank(ctx, bankID)
}

func (s *LedgerService) ownedAllowance(ctx context.Context, tx *sqlx.Tx, actorID, allowanceID string) (models.Allowance, error) {
	allowance, err := s.allowanceStore.GetByID(ctx, tx, allowanceID)
	if err != nil {
		return models.Allowance{}, translateNotFound(err, ErrAllowanceNotFound)
	}
	if _, err := s.lockOwnedBank(ctx, tx, actorID, allowance.BankID); err != nil {
		return models.Allowance{}, err
	}
	return allowance, nil
}
