package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"piggybank/internal/auth"
	"piggybank/internal/db"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/store"
	"piggybank/internal/validator"
)

var ErrNotParent = errors.New("only parents can manage children")

// testUserPassword is the password of generated test users.
const testUserPassword = "testpass"

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
	ListChildren(ctx context.Context, parentID string) ([]models.User, error)
}

type UserService struct {
	txRunner  db.TxRunner
	userStore UserStore
	logger    *log.Logger
}

func NewUserService(txRunner db.TxRunner, userStore UserStore, logger *log.Logger) *UserService {
	return &UserService{txRunner: txRunner, userStore: userStore, logger: logger.WithComponent(log.ComponentAuth)}
}

type RegisterRequest struct {
	Username string
	Email    string
	Password string
	Role     string
	ParentID *string
}

// Register creates a user. Username and email are case-folded before they
// are checked and stored. Role defaults to parent.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (models.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := req.Role
	if role == "" {
		role = models.RoleParent
	}

	fields := validator.FieldErrors{}
	fields.Add("username", validator.ValidateUsername(username))
	fields.Add("email", validator.ValidateEmail(email))
	fields.Add("password", validator.ValidatePassword(req.Password))
	if role != models.RoleParent && role != models.RoleChild && role != models.RoleAdmin {
		fields.Add("role", fmt.Errorf("unknown role %q", role))
	}
	if err := fields.Err(); err != nil {
		return models.User{}, err
	}

	if _, err := s.userStore.GetByUsername(ctx, username); err == nil {
		return models.User{}, fmt.Errorf("%w: username", ErrDuplicateUser)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.userStore.GetByEmail(ctx, email); err == nil {
		return models.User{}, fmt.Errorf("%w: email", ErrDuplicateUser)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return models.User{}, err
	}
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		ParentID:     req.ParentID,
		Active:       true,
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.userStore.Create(ctx, tx, user)
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.User{}, ErrDuplicateUser
		}
		return models.User{}, err
	}
	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID, "role", role)
	return user, nil
}

// CreateChild registers a child account linked to parentID.
func (s *UserService) CreateChild(ctx context.Context, parentID string, req RegisterRequest) (models.User, error) {
	parent, err := s.userStore.GetByID(ctx, parentID)
	if err != nil {
		return models.User{}, translateNotFound(err, ErrUserNotFound)
	}
	if parent.Role != models.RoleParent && parent.Role != models.RoleAdmin {
		return models.User{}, ErrNotParent
	}
	req.Role = models.RoleChild
	req.ParentID = &parent.ID
	return s.Register(ctx, req)
}

func (s *UserService) ListChildren(ctx context.Context, parentID string) ([]models.User, error) {
	return s.userStore.ListChildren(ctx, parentID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.userStore.ListAll(ctx)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (models.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, translateNotFound(err, ErrUserNotFound)
	}
	return user, nil
}

// FindForLogin looks a user up by case-folded username. Missing and inactive
// users both yield ErrInvalidCredentials.
func (s *UserService) FindForLogin(ctx context.Context, username string) (models.User, error) {
	user, err := s.userStore.GetByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GenerateTestUsers creates testuser1..testuser3. Users that cannot be
// created, usually because they exist already, are skipped.
func (s *UserService) GenerateTestUsers(ctx context.Context) ([]models.User, error) {
	var created []models.User
	for i := 1; i <= 3; i++ {
		user, err := s.Register(ctx, RegisterRequest{
			Username: fmt.Sprintf("testuser%d", i),
			Email:    fmt.Sprintf("testuser%d@piggy-bank.us", i),
			Password: testUserPassword,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "test user skipped", "username", fmt.Sprintf("testuser%d", i), log.FieldError, err)
			continue
		}
		created = append(created, user)
	}
	return created, nil
}
