package auth

import (
	"context"
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"piggybank/internal/log"
	"piggybank/internal/models"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is the per-browser login state. The zero value is logged out.
type Session struct {
	UserID string
	Hash   string
}

func (s Session) Empty() bool {
	return s.UserID == "" && s.Hash == ""
}

type UserLookup interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
}

// Authenticator implements login, logout and check_login over a Session.
// The session token is a one-way hash of username and user id, so it stays
// valid for as long as neither changes.
type Authenticator struct {
	users  UserLookup
	logger *log.Logger
}

func NewAuthenticator(users UserLookup, logger *log.Logger) *Authenticator {
	return &Authenticator{users: users, logger: logger.WithComponent(log.ComponentAuth)}
}

// Login checks the password and moves the session to the logged in state.
// On a wrong password the session is left untouched.
func (a *Authenticator) Login(sess *Session, user models.User, password string) error {
	if !CheckPassword(user.PasswordHash, password) {
		a.logger.Warn("login rejected", log.FieldUserID, user.ID)
		return ErrInvalidCredentials
	}
	hash, err := sessionHash(user)
	if err != nil {
		return err
	}
	sess.UserID = user.ID
	sess.Hash = hash
	a.logger.Info("user logged in", log.FieldUserID, user.ID)
	return nil
}

func (a *Authenticator) Logout(sess *Session) {
	sess.UserID = ""
	sess.Hash = ""
}

func (a *Authenticator) CheckLogin(ctx context.Context, sess Session) bool {
	_, ok := a.Verify(ctx, sess)
	return ok
}

// Verify returns the logged in user. A session whose user no longer exists
// counts as logged out.
func (a *Authenticator) Verify(ctx context.Context, sess Session) (models.User, bool) {
	if sess.UserID == "" || sess.Hash == "" {
		return models.User{}, false
	}
	user, err := a.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			a.logger.ErrorContext(ctx, "session user lookup failed", log.FieldUserID, sess.UserID, log.FieldError, err)
		}
		return models.User{}, false
	}
	if !user.Active {
		return models.User{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(sess.Hash), []byte(sessionKey(user))) != nil {
		return models.User{}, false
	}
	return user, true
}

func sessionKey(user models.User) string {
	return user.Username + user.ID
}

func sessionHash(user models.User) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(sessionKey(user)), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
