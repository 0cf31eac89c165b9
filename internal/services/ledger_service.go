package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"piggybank/internal/auth"
	"piggybank/internal/db"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/money"
	"piggybank/internal/store"
	"piggybank/internal/validator"
	"piggybank/internal/websocket"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrBankNotFound       = errors.New("bank not found")
	ErrDepositNotFound    = errors.New("deposit not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrAllowanceNotFound  = errors.New("allowance not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorizedBank   = errors.New("bank does not belong to user")
	ErrAlreadyPurchased   = errors.New("expense already purchased")
	ErrInvalidCredentials = auth.ErrInvalidCredentials
	ErrDuplicateUser      = errors.New("username or email already taken")
	ErrInvalidFrequency   = validator.ErrInvalidFrequency
	ErrInvalidPayday      = validator.ErrInvalidPayday
)

// overviewSize is how many recent deposits and purchases a bank overview shows.
const overviewSize = 5

type BankStore interface {
	Create(ctx context.Context, tx store.Execer, bank models.PiggyBank) error
	GetByID(ctx context.Context, bankID string) (models.PiggyBank, error)
	GetForUpdate(ctx context.Context, tx store.Getter, bankID string) (models.PiggyBank, error)
	UpdateBalance(ctx context.Context, tx store.Execer, bankID string, balance decimal.Decimal) error
	Rename(ctx context.Context, tx store.Execer, bankID, name string) (int64, error)
	Delete(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]models.PiggyBank, error)
}

type DepositStore interface {
	Create(ctx context.Context, tx store.Execer, deposit models.Deposit) error
	GetByID(ctx context.Context, tx store.Getter, depositID string) (models.Deposit, error)
	Delete(ctx context.Context, tx store.Execer, depositID string) (int64, error)
	DeleteByBank(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	ListByBank(ctx context.Context, bankID string) ([]models.Deposit, error)
	Recent(ctx context.Context, bankID string, limit int) ([]models.Deposit, error)
}

type ExpenseStore interface {
	Create(ctx context.Context, tx store.Execer, expense models.Expense) error
	GetByID(ctx context.Context, tx store.Getter, expenseID string) (models.Expense, error)
	MarkPurchased(ctx context.Context, tx store.Execer, expenseID, purchasedBy string, purchasedAt time.Time) error
	MarkRefunded(ctx context.Context, tx store.Execer, expenseID string) error
	Delete(ctx context.Context, tx store.Execer, expenseID string) (int64, error)
	DeleteByBank(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	ListByBank(ctx context.Context, bankID string) ([]models.Expense, error)
	RecentPurchased(ctx context.Context, bankID string, limit int) ([]models.Expense, error)
}

type AllowanceStore interface {
	Create(ctx context.Context, tx store.Execer, allowance models.Allowance) error
	GetByID(ctx context.Context, tx store.Getter, allowanceID string) (models.Allowance, error)
	Update(ctx context.Context, tx store.Execer, allowance models.Allowance) error
	SetActive(ctx context.Context, tx store.Execer, allowanceID string, active bool) error
	Delete(ctx context.Context, tx store.Execer, allowanceID string) (int64, error)
	DeleteByBank(ctx context.Context, tx store.Execer, bankID string) (int64, error)
	ListByBank(ctx context.Context, bankID string) ([]models.Allowance, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// LedgerService owns every operation that touches a bank or its deposits,
// expenses and allowances. Balance changes lock the bank row first so
// concurrent mutations on one bank are serialized by the database.
type LedgerService struct {
	txRunner       db.TxRunner
	bankStore      BankStore
	depositStore   DepositStore
	expenseStore   ExpenseStore
	allowanceStore AllowanceStore
	users          UserLookup
	hub            BalanceHub
	logger         *log.Logger
	now            func() time.Time
}

func NewLedgerService(txRunner db.TxRunner, bankStore BankStore, depositStore DepositStore, expenseStore ExpenseStore, allowanceStore AllowanceStore, users UserLookup, hub BalanceHub, logger *log.Logger) *LedgerService {
	return &LedgerService{
		txRunner:       txRunner,
		bankStore:      bankStore,
		depositStore:   depositStore,
		expenseStore:   expenseStore,
		allowanceStore: allowanceStore,
		users:          users,
		hub:            hub,
		logger:         logger.WithComponent(log.ComponentLedger),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

type DepositRequest struct {
	ActorID     string
	BankID      string
	Amount      decimal.Decimal
	Description string
	// Optional; zero means now.
	Date time.Time
	// Optional; empty means the bank owner.
	Source   string
	SourceID string
	// Reason tags the live balance update.
	Reason string
}

// CreateDeposit records a deposit, snapshots the resulting balance on it and
// credits the bank.
func (s *LedgerService) CreateDeposit(ctx context.Context, req DepositRequest) (models.Deposit, error) {
	if err := validAmount(req.Amount); err != nil {
		return models.Deposit{}, err
	}
	var deposit models.Deposit
	var bank models.PiggyBank
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		bank, err = s.lockOwnedBank(ctx, tx, req.ActorID, req.BankID)
		if err != nil {
			return err
		}
		source, sourceID := req.Source, req.SourceID
		if source == "" || sourceID == "" {
			owner, err := s.users.GetByID(ctx, bank.UserID)
			if err != nil {
				return translateNotFound(err, ErrUserNotFound)
			}
			if source == "" {
				source = owner.Username
			}
			if sourceID == "" {
				sourceID = owner.ID
			}
		}
		date := req.Date
		if date.IsZero() {
			date = s.now()
		}
		newBalance := bank.CurrentBalance.Add(req.Amount)
		deposit = models.Deposit{
			ID:              uuid.NewString(),
			BankID:          bank.ID,
			AmountDeposited: req.Amount,
			DateDeposited:   date,
			Balance:         newBalance,
			Source:          source,
			SourceID:        sourceID,
			Description:     req.Description,
		}
		if err := s.depositStore.Create(ctx, tx, deposit); err != nil {
			return err
		}
		bank.CurrentBalance = newBalance
		return s.bankStore.UpdateBalance(ctx, tx, bank.ID, newBalance)
	})
	if err != nil {
		return models.Deposit{}, s.reject(ctx, err, req.ActorID, log.OpCreate, "deposit", req.BankID)
	}
	reason := req.Reason
	if reason == "" {
		reason = websocket.ReasonDeposit
	}
	s.broadcast(bank, reason)
	s.logger.InfoContext(ctx, "deposit created",
		log.FieldBankID, bank.ID,
		log.FieldAmount, money.Format(req.Amount),
		log.FieldActorID, req.ActorID,
	)
	return deposit, nil
}

// DeleteDeposit removes the deposit row only. The bank balance and later
// deposit snapshots are left as they are.
func (s *LedgerService) DeleteDeposit(ctx context.Context, actorID, depositID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		deposit, err := s.depositStore.GetByID(ctx, tx, depositID)
		if err != nil {
			return translateNotFound(err, ErrDepositNotFound)
		}
		if _, err := s.lockOwnedBank(ctx, tx, actorID, deposit.BankID); err != nil {
			return err
		}
		rows, err := s.depositStore.Delete(ctx, tx, depositID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrDepositNotFound
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, err, actorID, log.OpDelete, "deposit", depositID)
	}
	return nil
}

type ExpenseRequest struct {
	ActorID     string
	BankID      string
	Name        string
	Description string
	Price       decimal.Decimal
	Purchased   bool
}

// CreateExpense records an expense. A purchased expense debits the bank
// immediately and is attributed to the actor.
func (s *LedgerService) CreateExpense(ctx context.Context, req ExpenseRequest) (models.Expense, error) {
	if err := validAmount(req.Price); err != nil {
		return models.Expense{}, err
	}
	if err := validator.ValidateName(req.Name); err != nil {
		return models.Expense{}, err
	}
	var expense models.Expense
	var bank models.PiggyBank
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		bank, err = s.lockOwnedBank(ctx, tx, req.ActorID, req.BankID)
		if err != nil {
			return err
		}
		now := s.now()
		expense = models.Expense{
			ID:          uuid.NewString(),
			BankID:      bank.ID,
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Purchased:   req.Purchased,
			DateAdded:   now,
		}
		if req.Purchased {
			purchasedBy := req.ActorID
			expense.DatePurchased = &now
			expense.PurchasedBy = &purchasedBy
		}
		if err := s.expenseStore.Create(ctx, tx, expense); err != nil {
			return err
		}
		if !req.Purchased {
			return nil
		}
		bank.CurrentBalance = bank.CurrentBalance.Sub(req.Price)
		return s.bankStore.UpdateBalance(ctx, tx, bank.ID, bank.CurrentBalance)
	})
	if err != nil {
		return models.Expense{}, s.reject(ctx, err, req.ActorID, log.OpCreate, "expense", req.BankID)
	}
	if req.Purchased {
		s.broadcast(bank, websocket.ReasonPurchase)
	}
	return expense, nil
}

// PurchaseExpense debits the bank by the expense price. Purchasing an
// expense twice returns ErrAlreadyPurchased and changes nothing.
func (s *LedgerService) PurchaseExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error) {
	var expense models.Expense
	var bank models.PiggyBank
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		expense, err = s.expenseStore.GetByID(ctx, tx, expenseID)
		if err != nil {
			return translateNotFound(err, ErrExpenseNotFound)
		}
		bank, err = s.lockOwnedBank(ctx, tx, actorID, expense.BankID)
		if err != nil {
			return err
		}
		if expense.Purchased {
			return ErrAlreadyPurchased
		}
		now := s.now()
		if err := s.expenseStore.MarkPurchased(ctx, tx, expense.ID, actorID, now); err != nil {
			return err
		}
		purchasedBy := actorID
		expense.Purchased = true
		expense.DatePurchased = &now
		expense.PurchasedBy = &purchasedBy
		bank.CurrentBalance = bank.CurrentBalance.Sub(expense.Price)
		return s.bankStore.UpdateBalance(ctx, tx, bank.ID, bank.CurrentBalance)
	})
	if err != nil {
		return models.Expense{}, s.reject(ctx, err, actorID, log.OpPurchase, "expense", expenseID)
	}
	s.broadcast(bank, websocket.ReasonPurchase)
	return expense, nil
}

// RefundExpense credits the price back to the bank. Refunding an expense
// that is not purchased is a silent no-op.
func (s *LedgerService) RefundExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error) {
	var expense models.Expense
	var bank models.PiggyBank
	refunded := false
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		refunded = false
		var err error
		expense, err = s.expenseStore.GetByID(ctx, tx, expenseID)
		if err != nil {
			return translateNotFound(err, ErrExpenseNotFound)
		}
		bank, err = s.lockOwnedBank(ctx, tx, actorID, expense.BankID)
		if err != nil {
			return err
		}
		if !expense.Purchased {
			return nil
		}
		if err := s.expenseStore.MarkRefunded(ctx, tx, expense.ID); err != nil {
			return err
		}
		expense.Purchased = false
		expense.DatePurchased = nil
		bank.CurrentBalance = bank.CurrentBalance.Add(expense.Price)
		refunded = true
		return s.bankStore.UpdateBalance(ctx, tx, bank.ID, bank.CurrentBalance)
	})
	if err != nil {
		return models.Expense{}, s.reject(ctx, err, actorID, log.OpRefund, "expense", expenseID)
	}
	if refunded {
		s.broadcast(bank, websocket.ReasonRefund)
	}
	return expense, nil
}

// DeleteExpense removes the expense row only; the bank balance is not
// adjusted even for a purchased expense.
func (s *LedgerService) DeleteExpense(ctx context.Context, actorID, expenseID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		expense, err := s.expenseStore.GetByID(ctx, tx, expenseID)
		if err != nil {
			return translateNotFound(err, ErrExpenseNotFound)
		}
		if _, err := s.lockOwnedBank(ctx, tx, actorID, expense.BankID); err != nil {
			return err
		}
		rows, err := s.expenseStore.Delete(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrExpenseNotFound
		}
		return nil
	})
	if err != nil {
		return s.reject(ctx, err, actorID, log.OpDelete, "expense", expenseID)
	}
	return nil
}

func (s *LedgerService) ListDeposits(ctx context.Context, actorID, bankID string) ([]models.Deposit, error) {
	if _, err := s.GetBank(ctx, actorID, bankID); err != nil {
		return nil, err
	}
	return s.depositStore.ListByBank(ctx, bankID)
}

func (s *LedgerService) ListExpenses(ctx context.Context, actorID, bankID string) ([]models.Expense, error) {
	if _, err := s.GetBank(ctx, actorID, bankID); err != nil {
		return nil, err
	}
	return s.expenseStore.ListByBank(ctx, bankID)
}

// lockOwnedBank takes the row lock on the bank and checks that actorID owns
// it. An empty actorID is never an owner.
func (s *LedgerService) lockOwnedBank(ctx context.Context, tx *sqlx.Tx, actorID, bankID string) (models.PiggyBank, error) {
	bank, err := s.bankStore.GetForUpdate(ctx, tx, bankID)
	if err != nil {
		return models.PiggyBank{}, translateNotFound(err, ErrBankNotFound)
	}
	if bank.UserID != actorID {
		return models.PiggyBank{}, ErrUnauthorizedBank
	}
	return bank, nil
}

// reject logs authorization failures and passes every error through.
func (s *LedgerService) reject(ctx context.Context, err error, actorID, op, entity, entityID string) error {
	if errors.Is(err, ErrUnauthorizedBank) {
		s.logger.WarnContext(ctx, "rejected access to bank",
			log.FieldActorID, actorID,
			log.FieldOperation, op,
			"entity", entity,
			"entity_id", entityID,
		)
	}
	return err
}

func (s *LedgerService) broadcast(bank models.PiggyBank, reason string) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(bank.UserID, websocket.BalanceUpdate{
		BankID:  bank.ID,
		Balance: money.Format(bank.CurrentBalance),
		Reason:  reason,
		At:      s.now(),
	})
}

func validAmount(amount decimal.Decimal) error {
	if amount.IsNegative() || !amount.Equal(amount.Round(money.Scale)) {
		return ErrInvalidAmount
	}
	return nil
}

func translateNotFound(err, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return err
}
