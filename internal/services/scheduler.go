package services

import (
	"context"
	"fmt"
	"time"

	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/money"
	"piggybank/internal/store"
	"piggybank/internal/websocket"
)

// CadenceChecker decides whether an allowance pays out on a given UTC day.
type CadenceChecker interface {
	IsDue(allowance models.Allowance, now time.Time) bool
}

type DailyCadence struct{}

func (DailyCadence) IsDue(models.Allowance, time.Time) bool { return true }

// WeeklyCadence pays when the weekday index (Monday=0) equals the payday.
type WeeklyCadence struct{}

func (WeeklyCadence) IsDue(allowance models.Allowance, now time.Time) bool {
	return WeekdayIndex(now) == allowance.Payday
}

// BiweeklyCadence pays on the 1st and the 15th.
type BiweeklyCadence struct{}

func (BiweeklyCadence) IsDue(_ models.Allowance, now time.Time) bool {
	day := now.Day()
	return day == 1 || day == 15
}

type MonthlyCadence struct{}

func (MonthlyCadence) IsDue(_ models.Allowance, now time.Time) bool {
	return now.Day() == 1
}

var cadences = map[string]CadenceChecker{
	models.FrequencyDaily:    DailyCadence{},
	models.FrequencyWeekly:   WeeklyCadence{},
	models.FrequencyBiweekly: BiweeklyCadence{},
	models.FrequencyMonthly:  MonthlyCadence{},
}

func GetCadenceChecker(frequency string) (CadenceChecker, error) {
	checker, ok := cadences[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown allowance frequency: %s", frequency)
	}
	return checker, nil
}

// WeekdayIndex numbers weekdays from Monday=0 to Sunday=6.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// IsDue evaluates the allowance cadence against now in UTC. Inactive
// allowances and unknown frequencies are never due.
func IsDue(allowance models.Allowance, now time.Time) bool {
	if !allowance.Active {
		return false
	}
	checker, err := GetCadenceChecker(allowance.Frequency)
	if err != nil {
		return false
	}
	return checker.IsDue(allowance, now.UTC())
}

// NextRun returns the next midnight UTC strictly after now.
func NextRun(now time.Time) time.Time {
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, 1)
}

type PayoutStore interface {
	ListActiveForPayout(ctx context.Context) ([]store.AllowancePayout, error)
}

type DepositCreator interface {
	CreateDeposit(ctx context.Context, req DepositRequest) (models.Deposit, error)
}

type PayoutResult struct {
	Checked int
	Paid    int
	Failed  int
}

// AllowanceScheduler turns due allowances into deposits. Each allowance is
// paid in its own transaction; one failure is logged and does not stop the
// run.
type AllowanceScheduler struct {
	allowances PayoutStore
	ledger     DepositCreator
	logger     *log.Logger
}

func NewAllowanceScheduler(allowances PayoutStore, ledger DepositCreator, logger *log.Logger) *AllowanceScheduler {
	return &AllowanceScheduler{
		allowances: allowances,
		ledger:     ledger,
		logger:     logger.WithComponent(log.ComponentScheduler),
	}
}

func (s *AllowanceScheduler) PayAllowances(ctx context.Context, now time.Time) (PayoutResult, error) {
	now = now.UTC()
	var result PayoutResult
	payouts, err := s.allowances.ListActiveForPayout(ctx)
	if err != nil {
		return result, fmt.Errorf("list active allowances: %w", err)
	}

	for _, payout := range payouts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		if !IsDue(payout.Allowance, now) {
			continue
		}
		_, err := s.ledger.CreateDeposit(ctx, DepositRequest{
			ActorID:     payout.OwnerID,
			BankID:      payout.BankID,
			Amount:      payout.Amount,
			Description: payout.Description,
			Date:        now,
			Reason:      websocket.ReasonAllowance,
		})
		if err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "allowance payout failed",
				log.FieldAllowance, payout.ID,
				log.FieldBankID, payout.BankID,
				log.FieldError, err,
			)
			continue
		}
		result.Paid++
		s.logger.InfoContext(ctx, "allowance paid",
			log.FieldAllowance, payout.ID,
			log.FieldBankID, payout.BankID,
			log.FieldAmount, money.Format(payout.Amount),
			"frequency", payout.Frequency,
		)
	}

	s.logger.InfoContext(ctx, "allowance run complete",
		"date", now.Format("2006-01-02"),
		"checked", result.Checked,
		"paid", result.Paid,
		"failed", result.Failed,
	)
	return result, nil
}
