package handlers

import (
	"context"
	"net/http"

	"piggybank/internal/auth"
	"piggybank/internal/models"
	"piggybank/internal/services"
)

type Ledger interface {
	CreateBank(ctx context.Context, actorID, name string) (models.PiggyBank, error)
	GetBank(ctx context.Context, actorID, bankID string) (models.PiggyBank, error)
	ListBanks(ctx context.Context, actorID string) ([]models.PiggyBank, error)
	BankOverview(ctx context.Context, actorID, bankID string) (services.BankOverview, error)
	RenameBank(ctx context.Context, actorID, bankID, name string) (models.PiggyBank, error)
	DeleteBank(ctx context.Context, actorID, bankID, password string) error

	CreateDeposit(ctx context.Context, req services.DepositRequest) (models.Deposit, error)
	DeleteDeposit(ctx context.Context, actorID, depositID string) error
	ListDeposits(ctx context.Context, actorID, bankID string) ([]models.Deposit, error)

	CreateExpense(ctx context.Context, req services.ExpenseRequest) (models.Expense, error)
	PurchaseExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error)
	RefundExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error)
	DeleteExpense(ctx context.Context, actorID, expenseID string) error
	ListExpenses(ctx context.Context, actorID, bankID string) ([]models.Expense, error)

	CreateAllowance(ctx context.Context, req services.AllowanceRequest) (models.Allowance, error)
	ChangeAllowance(ctx context.Context, req services.ChangeAllowanceRequest) (models.Allowance, error)
	ToggleAllowance(ctx context.Context, actorID, allowanceID string) (models.Allowance, error)
	DeleteAllowance(ctx context.Context, actorID, allowanceID string) error
	ListAllowances(ctx context.Context, actorID, bankID string) ([]models.Allowance, error)
}

type Users interface {
	Register(ctx context.Context, req services.RegisterRequest) (models.User, error)
	CreateChild(ctx context.Context, parentID string, req services.RegisterRequest) (models.User, error)
	ListChildren(ctx context.Context, parentID string) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	FindForLogin(ctx context.Context, username string) (models.User, error)
	GenerateTestUsers(ctx context.Context) ([]models.User, error)
}

// Sessions is the client-side session store, normally *auth.CookieStore.
type Sessions interface {
	Load(r *http.Request) auth.Session
	Save(w http.ResponseWriter, sess auth.Session) error
	Clear(w http.ResponseWriter)
	Encode(sess auth.Session) (string, error)
	SessionFromToken(token string) (auth.Session, error)
}

type Authenticator interface {
	Login(sess *auth.Session, user models.User, password string) error
	Logout(sess *auth.Session)
	Verify(ctx context.Context, sess auth.Session) (models.User, bool)
}

type Resetter interface {
	Reset(ctx context.Context) (models.User, error)
}
