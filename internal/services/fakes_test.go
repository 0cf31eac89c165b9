package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"piggybank/internal/models"
	"piggybank/internal/store"
	"piggybank/internal/websocket"
)

type fakeTxRunner struct {
	err   error
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

// memory is an in-process stand-in for the relational store.
type memory struct {
	mu         sync.Mutex
	users      map[string]models.User
	banks      map[string]models.PiggyBank
	deposits   map[string]models.Deposit
	expenses   map[string]models.Expense
	allowances map[string]models.Allowance
	failBank   map[string]error
}

func newMemory() *memory {
	return &memory{
		users:      map[string]models.User{},
		banks:      map[string]models.PiggyBank{},
		deposits:   map[string]models.Deposit{},
		expenses:   map[string]models.Expense{},
		allowances: map[string]models.Allowance{},
		failBank:   map[string]error{},
	}
}

type memBankStore struct{ m *memory }

func (s memBankStore) Create(_ context.Context, _ store.Execer, bank models.PiggyBank) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.banks[bank.ID] = bank
	return nil
}

func (s memBankStore) GetByID(_ context.Context, bankID string) (models.PiggyBank, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bank, ok := s.m.banks[bankID]
	if !ok {
		return models.PiggyBank{}, sql.ErrNoRows
	}
	return bank, nil
}

func (s memBankStore) GetForUpdate(ctx context.Context, _ store.Getter, bankID string) (models.PiggyBank, error) {
	s.m.mu.Lock()
	err := s.m.failBank[bankID]
	s.m.mu.Unlock()
	if err != nil {
		return models.PiggyBank{}, err
	}
	return s.GetByID(ctx, bankID)
}

func (s memBankStore) UpdateBalance(_ context.Context, _ store.Execer, bankID string, balance decimal.Decimal) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bank := s.m.banks[bankID]
	bank.CurrentBalance = balance
	s.m.banks[bankID] = bank
	return nil
}

func (s memBankStore) Rename(_ context.Context, _ store.Execer, bankID, name string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bank, ok := s.m.banks[bankID]
	if !ok {
		return 0, nil
	}
	bank.Name = name
	s.m.banks[bankID] = bank
	return 1, nil
}

func (s memBankStore) Delete(_ context.Context, _ store.Execer, bankID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.banks[bankID]; !ok {
		return 0, nil
	}
	delete(s.m.banks, bankID)
	return 1, nil
}

func (s memBankStore) ListByUser(_ context.Context, userID string) ([]models.PiggyBank, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.PiggyBank
	for _, bank := range s.m.banks {
		if bank.UserID == userID {
			rows = append(rows, bank)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

type memDepositStore struct{ m *memory }

func (s memDepositStore) Create(_ context.Context, _ store.Execer, deposit models.Deposit) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.deposits[deposit.ID] = deposit
	return nil
}

func (s memDepositStore) GetByID(_ context.Context, _ store.Getter, depositID string) (models.Deposit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	deposit, ok := s.m.deposits[depositID]
	if !ok {
		return models.Deposit{}, sql.ErrNoRows
	}
	return deposit, nil
}

func (s memDepositStore) Delete(_ context.Context, _ store.Execer, depositID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.deposits[depositID]; !ok {
		return 0, nil
	}
	delete(s.m.deposits, depositID)
	return 1, nil
}

func (s memDepositStore) DeleteByBank(_ context.Context, _ store.Execer, bankID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, deposit := range s.m.deposits {
		if deposit.BankID == bankID {
			delete(s.m.deposits, id)
			n++
		}
	}
	return n, nil
}

func (s memDepositStore) ListByBank(_ context.Context, bankID string) ([]models.Deposit, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.Deposit
	for _, deposit := range s.m.deposits {
		if deposit.BankID == bankID {
			rows = append(rows, deposit)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateDeposited.After(rows[j].DateDeposited) })
	return rows, nil
}

func (s memDepositStore) Recent(ctx context.Context, bankID string, limit int) ([]models.Deposit, error) {
	rows, _ := s.ListByBank(ctx, bankID)
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

type memExpenseStore struct{ m *memory }

func (s memExpenseStore) Create(_ context.Context, _ store.Execer, expense models.Expense) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.expenses[expense.ID] = expense
	return nil
}

func (s memExpenseStore) GetByID(_ context.Context, _ store.Getter, expenseID string) (models.Expense, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	expense, ok := s.m.expenses[expenseID]
	if !ok {
		return models.Expense{}, sql.ErrNoRows
	}
	return expense, nil
}

func (s memExpenseStore) MarkPurchased(_ context.Context, _ store.Execer, expenseID, purchasedBy string, purchasedAt time.Time) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	expense := s.m.expenses[expenseID]
	expense.Purchased = true
	expense.DatePurchased = &purchasedAt
	expense.PurchasedBy = &purchasedBy
	s.m.expenses[expenseID] = expense
	return nil
}

func (s memExpenseStore) MarkRefunded(_ context.Context, _ store.Execer, expenseID string) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	expense := s.m.expenses[expenseID]
	expense.Purchased = false
	expense.DatePurchased = nil
	s.m.expenses[expenseID] = expense
	return nil
}

func (s memExpenseStore) Delete(_ context.Context, _ store.Execer, expenseID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.expenses[expenseID]; !ok {
		return 0, nil
	}
	delete(s.m.expenses, expenseID)
	return 1, nil
}

func (s memExpenseStore) DeleteByBank(_ context.Context, _ store.Execer, bankID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, expense := range s.m.expenses {
		if expense.BankID == bankID {
			delete(s.m.expenses, id)
			n++
		}
	}
	return n, nil
}

func (s memExpenseStore) ListByBank(_ context.Context, bankID string) ([]models.Expense, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.Expense
	for _, expense := range s.m.expenses {
		if expense.BankID == bankID {
			rows = append(rows, expense)
		}
	}
	return rows, nil
}

func (s memExpenseStore) RecentPurchased(ctx context.Context, bankID string, limit int) ([]models.Expense, error) {
	rows, _ := s.ListByBank(ctx, bankID)
	var purchased []models.Expense
	for _, expense := range rows {
		if expense.Purchased {
			purchased = append(purchased, expense)
		}
	}
	if len(purchased) > limit {
		purchased = purchased[:limit]
	}
	return purchased, nil
}

type memAllowanceStore struct{ m *memory }

func (s memAllowanceStore) Create(_ context.Context, _ store.Execer, allowance models.Allowance) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.allowances[allowance.ID] = allowance
	return nil
}

func (s memAllowanceStore) GetByID(_ context.Context, _ store.Getter, allowanceID string) (models.Allowance, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	allowance, ok := s.m.allowances[allowanceID]
	if !ok {
		return models.Allowance{}, sql.ErrNoRows
	}
	return allowance, nil
}

func (s memAllowanceStore) Update(_ context.Context, _ store.Execer, allowance models.Allowance) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.allowances[allowance.ID] = allowance
	return nil
}

func (s memAllowanceStore) SetActive(_ context.Context, _ store.Execer, allowanceID string, active bool) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	allowance := s.m.allowances[allowanceID]
	allowance.Active = active
	s.m.allowances[allowanceID] = allowance
	return nil
}

func (s memAllowanceStore) Delete(_ context.Context, _ store.Execer, allowanceID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.allowances[allowanceID]; !ok {
		return 0, nil
	}
	delete(s.m.allowances, allowanceID)
	return 1, nil
}

func (s memAllowanceStore) DeleteByBank(_ context.Context, _ store.Execer, bankID string) (int64, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var n int64
	for id, allowance := range s.m.allowances {
		if allowance.BankID == bankID {
			delete(s.m.allowances, id)
			n++
		}
	}
	return n, nil
}

func (s memAllowanceStore) ListByBank(_ context.Context, bankID string) ([]models.Allowance, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.Allowance
	for _, allowance := range s.m.allowances {
		if allowance.BankID == bankID {
			rows = append(rows, allowance)
		}
	}
	return rows, nil
}

func (s memAllowanceStore) ListActiveForPayout(_ context.Context) ([]store.AllowancePayout, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []store.AllowancePayout
	for _, allowance := range s.m.allowances {
		bank, ok := s.m.banks[allowance.BankID]
		if !allowance.Active || !ok {
			continue
		}
		rows = append(rows, store.AllowancePayout{Allowance: allowance, OwnerID: bank.UserID})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

type memUserStore struct{ m *memory }

func (s memUserStore) Create(_ context.Context, _ store.Execer, user models.User) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.users[user.ID] = user
	return nil
}

func (s memUserStore) GetByID(_ context.Context, userID string) (models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	user, ok := s.m.users[userID]
	if !ok {
		return models.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (s memUserStore) find(match func(models.User) bool) (models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, user := range s.m.users {
		if match(user) {
			return user, nil
		}
	}
	return models.User{}, sql.ErrNoRows
}

func (s memUserStore) GetByUsername(_ context.Context, username string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Username == username })
}

func (s memUserStore) GetByEmail(_ context.Context, email string) (models.User, error) {
	return s.find(func(u models.User) bool { return u.Email == email })
}

func (s memUserStore) ListAll(_ context.Context) ([]models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.User
	for _, user := range s.m.users {
		rows = append(rows, user)
	}
	return rows, nil
}

func (s memUserStore) ListChildren(_ context.Context, parentID string) ([]models.User, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var rows []models.User
	for _, user := range s.m.users {
		if user.ParentID != nil && *user.ParentID == parentID {
			rows = append(rows, user)
		}
	}
	return rows, nil
}

type recordingHub struct {
	mu      sync.Mutex
	updates []websocket.BalanceUpdate
	users   []string
}

func (h *recordingHub) BroadcastBalance(userID string, update websocket.BalanceUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
	h.updates = append(h.updates, update)
}

func (h *recordingHub) last() websocket.BalanceUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.updates[len(h.updates)-1]
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}
