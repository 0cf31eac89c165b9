package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"piggybank/internal/auth"
	"piggybank/internal/config"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/services"
	"piggybank/internal/websocket"
)

type stubLedger struct {
	createBankFn      func(ctx context.Context, actorID, name string) (models.PiggyBank, error)
	getBankFn         func(ctx context.Context, actorID, bankID string) (models.PiggyBank, error)
	listBanksFn       func(ctx context.Context, actorID string) ([]models.PiggyBank, error)
	bankOverviewFn    func(ctx context.Context, actorID, bankID string) (services.BankOverview, error)
	renameBankFn      func(ctx context.Context, actorID, bankID, name string) (models.PiggyBank, error)
	deleteBankFn      func(ctx context.Context, actorID, bankID, password string) error
	createDepositFn   func(ctx context.Context, req services.DepositRequest) (models.Deposit, error)
	deleteDepositFn   func(ctx context.Context, actorID, depositID string) error
	listDepositsFn    func(ctx context.Context, actorID, bankID string) ([]models.Deposit, error)
	createExpenseFn   func(ctx context.Context, req services.ExpenseRequest) (models.Expense, error)
	purchaseExpenseFn func(ctx context.Context, actorID, expenseID string) (models.Expense, error)
	refundExpenseFn   func(ctx context.Context, actorID, expenseID string) (models.Expense, error)
	deleteExpenseFn   func(ctx context.Context, actorID, expenseID string) error
	listExpensesFn    func(ctx context.Context, actorID, bankID string) ([]models.Expense, error)
	createAllowanceFn func(ctx context.Context, req services.AllowanceRequest) (models.Allowance, error)
	changeAllowanceFn func(ctx context.Context, req services.ChangeAllowanceRequest) (models.Allowance, error)
	toggleAllowanceFn func(ctx context.Context, actorID, allowanceID string) (models.Allowance, error)
	deleteAllowanceFn func(ctx context.Context, actorID, allowanceID string) error
	listAllowancesFn  func(ctx context.Context, actorID, bankID string) ([]models.Allowance, error)
}

func (s stubLedger) CreateBank(ctx context.Context, actorID, name string) (models.PiggyBank, error) {
	if s.createBankFn == nil {
		return models.PiggyBank{}, nil
	}
	return s.createBankFn(ctx, actorID, name)
}

func (s stubLedger) GetBank(ctx context.Context, actorID, bankID string) (models.PiggyBank, error) {
	if s.getBankFn == nil {
		return models.PiggyBank{ID: bankID, UserID: actorID}, nil
	}
	return s.getBankFn(ctx, actorID, bankID)
}

func (s stubLedger) ListBanks(ctx context.Context, actorID string) ([]models.PiggyBank, error) {
	if s.listBanksFn == nil {
		return nil, nil
	}
	return s.listBanksFn(ctx, actorID)
}

func (s stubLedger) BankOverview(ctx context.Context, actorID, bankID string) (services.BankOverview, error) {
	if s.bankOverviewFn == nil {
		return services.BankOverview{}, nil
	}
	return s.bankOverviewFn(ctx, actorID, bankID)
}

func (s stubLedger) RenameBank(ctx context.Context, actorID, bankID, name string) (models.PiggyBank, error) {
	if s.renameBankFn == nil {
		return models.PiggyBank{}, nil
	}
	return s.renameBankFn(ctx, actorID, bankID, name)
}

func (s stubLedger) DeleteBank(ctx context.Context, actorID, bankID, password string) error {
	if s.deleteBankFn == nil {
		return nil
	}
	return s.deleteBankFn(ctx, actorID, bankID, password)
}

func (s stubLedger) CreateDeposit(ctx context.Context, req services.DepositRequest) (models.Deposit, error) {
	if s.createDepositFn == nil {
		return models.Deposit{}, nil
	}
	return s.createDepositFn(ctx, req)
}

func (s stubLedger) DeleteDeposit(ctx context.Context, actorID, depositID string) error {
	if s.deleteDepositFn == nil {
		return nil
	}
	return s.deleteDepositFn(ctx, actorID, depositID)
}

func (s stubLedger) ListDeposits(ctx context.Context, actorID, bankID string) ([]models.Deposit, error) {
	if s.listDepositsFn == nil {
		return nil, nil
	}
	return s.listDepositsFn(ctx, actorID, bankID)
}

func (s stubLedger) CreateExpense(ctx context.Context, req services.ExpenseRequest) (models.Expense, error) {
	if s.createExpenseFn == nil {
		return models.Expense{}, nil
	}
	return s.createExpenseFn(ctx, req)
}

func (s stubLedger) PurchaseExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error) {
	if s.purchaseExpenseFn == nil {
		return models.Expense{}, nil
	}
	return s.purchaseExpenseFn(ctx, actorID, expenseID)
}

func (s stubLedger) RefundExpense(ctx context.Context, actorID, expenseID string) (models.Expense, error) {
	if s.refundExpenseFn == nil {
		return models.Expense{}, nil
	}
	return s.refundExpenseFn(ctx, actorID, expenseID)
}

func (s stubLedger) DeleteExpense(ctx context.Context, actorID, expenseID string) error {
	if s.deleteExpenseFn == nil {
		return nil
	}
	return s.deleteExpenseFn(ctx, actorID, expenseID)
}

func (s stubLedger) ListExpenses(ctx context.Context, actorID, bankID string) ([]models.Expense, error) {
	if s.listExpensesFn == nil {
		return nil, nil
	}
	return s.listExpensesFn(ctx, actorID, bankID)
}

func (s stubLedger) CreateAllowance(ctx context.Context, req services.AllowanceRequest) (models.Allowance, error) {
	if s.createAllowanceFn == nil {
		return models.Allowance{}, nil
	}
	return s.createAllowanceFn(ctx, req)
}

func (s stubLedger) ChangeAllowance(ctx context.Context, req services.ChangeAllowanceRequest) (models.Allowance, error) {
	if s.changeAllowanceFn == nil {
		return models.Allowance{}, nil
	}
	return s.changeAllowanceFn(ctx, req)
}

func (s stubLedger) ToggleAllowance(ctx context.Context, actorID, allowanceID string) (models.Allowance, error) {
	if s.toggleAllowanceFn == nil {
		return models.Allowance{}, nil
	}
	return s.toggleAllowanceFn(ctx, actorID, allowanceID)
}

func (s stubLedger) DeleteAllowance(ctx context.Context, actorID, allowanceID string) error {
	if s.deleteAllowanceFn == nil {
		return nil
	}
	return s.deleteAllowanceFn(ctx, actorID, allowanceID)
}

func (s stubLedger) ListAllowances(ctx context.Context, actorID, bankID string) ([]models.Allowance, error) {
	if s.listAllowancesFn == nil {
		return nil, nil
	}
	return s.listAllowancesFn(ctx, actorID, bankID)
}

type stubUsers struct {
	registerFn     func(ctx context.Context, req services.RegisterRequest) (models.User, error)
	createChildFn  func(ctx context.Context, parentID string, req services.RegisterRequest) (models.User, error)
	listChildrenFn func(ctx context.Context, parentID string) ([]models.User, error)
	listUsersFn    func(ctx context.Context) ([]models.User, error)
	getUserFn      func(ctx context.Context, userID string) (models.User, error)
	findFn         func(ctx context.Context, username string) (models.User, error)
	generateFn     func(ctx context.Context) ([]models.User, error)
}

func (s stubUsers) Register(ctx context.Context, req services.RegisterRequest) (models.User, error) {
	if s.registerFn == nil {
		return models.User{}, nil
	}
	return s.registerFn(ctx, req)
}

func (s stubUsers) CreateChild(ctx context.Context, parentID string, req services.RegisterRequest) (models.User, error) {
	if s.createChildFn == nil {
		return models.User{}, nil
	}
	return s.createChildFn(ctx, parentID, req)
}

func (s stubUsers) ListChildren(ctx context.Context, parentID string) ([]models.User, error) {
	if s.listChildrenFn == nil {
		return nil, nil
	}
	return s.listChildrenFn(ctx, parentID)
}

func (s stubUsers) ListUsers(ctx context.Context) ([]models.User, error) {
	if s.listUsersFn == nil {
		return nil, nil
	}
	return s.listUsersFn(ctx)
}

func (s stubUsers) GetUser(ctx context.Context, userID string) (models.User, error) {
	if s.getUserFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getUserFn(ctx, userID)
}

func (s stubUsers) FindForLogin(ctx context.Context, username string) (models.User, error) {
	if s.findFn == nil {
		return models.User{}, services.ErrInvalidCredentials
	}
	return s.findFn(ctx, username)
}

func (s stubUsers) GenerateTestUsers(ctx context.Context) ([]models.User, error) {
	if s.generateFn == nil {
		return nil, nil
	}
	return s.generateFn(ctx)
}

type stubResetter struct {
	resetFn func(ctx context.Context) (models.User, error)
}

func (s stubResetter) Reset(ctx context.Context) (models.User, error) {
	if s.resetFn == nil {
		return models.User{}, nil
	}
	return s.resetFn(ctx)
}

// stubAuthn admits any session whose user id is in users.
type stubAuthn struct {
	users map[string]models.User
}

func (s stubAuthn) Login(sess *auth.Session, user models.User, password string) error {
	if password != "secret1" {
		return auth.ErrInvalidCredentials
	}
	sess.UserID = user.ID
	sess.Hash = "hash-" + user.ID
	return nil
}

func (s stubAuthn) Logout(sess *auth.Session) {
	*sess = auth.Session{}
}

func (s stubAuthn) Verify(_ context.Context, sess auth.Session) (models.User, bool) {
	user, ok := s.users[sess.UserID]
	return user, ok && sess.Hash == "hash-"+user.ID
}

const testSecret = "test-secret"

func newTestHandler(ledger Ledger, users Users, bootstrap Resetter, known ...models.User) *Handler {
	cfg := config.Config{
		AppEnv:            "test",
		Port:              "0",
		AllowedOrigins:    "*",
		SessionSecret:     testSecret,
		SessionCookieName: "piggybank_session",
	}
	authn := stubAuthn{users: map[string]models.User{}}
	for _, user := range known {
		authn.users[user.ID] = user
	}
	sessions := auth.NewCookieStore(testSecret, cfg.SessionCookieName, 0, false)
	return New(cfg, ledger, users, sessions, authn, bootstrap, websocket.NewHub(), log.Discard())
}

var (
	parent = models.User{ID: "user-1", Username: "alice", Role: models.RoleParent, Active: true}
	child  = models.User{ID: "user-2", Username: "kiddo", Role: models.RoleChild, Active: true}
	admin  = models.User{ID: "user-9", Username: "admin", Role: models.RoleAdmin, Active: true}
)

// serveAs runs the request through the full router with a bearer token for
// user, or anonymously when user is nil.
func serveAs(t *testing.T, h *Handler, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, err := h.sessions.Encode(auth.Session{UserID: user.ID, Hash: "hash-" + user.ID})
		if err != nil {
			t.Fatalf("failed to encode session: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func stringPtr(value string) *string {
	return &value
}

func serveRequest(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}
