package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID      string `json:"uid"`
	SessionHash string `json:"sh"`
	jwt.RegisteredClaims
}

// CookieStore keeps the Session client side in an HS256 signed cookie.
type CookieStore struct {
	secret []byte
	name   string
	ttl    time.Duration
	secure bool
}

func NewCookieStore(secret, name string, ttl time.Duration, secure bool) *CookieStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CookieStore{secret: []byte(secret), name: name, ttl: ttl, secure: secure}
}

func (c *CookieStore) Encode(sess Session) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:      sess.UserID,
		SessionHash: sess.Hash,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *CookieStore) Decode(value string) (Session, error) {
	token, err := jwt.ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Session{}, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Session{}, jwt.ErrTokenInvalidClaims
	}
	return Session{UserID: claims.UserID, Hash: claims.SessionHash}, nil
}

// Load returns the request's session, or an empty one when the cookie is
// missing, expired or tampered with.
func (c *CookieStore) Load(r *http.Request) Session {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return Session{}
	}
	sess, err := c.Decode(cookie.Value)
	if err != nil {
		return Session{}
	}
	return sess
}

func (c *CookieStore) Save(w http.ResponseWriter, sess Session) error {
	if sess.Empty() {
		c.Clear(w)
		return nil
	}
	value, err := c.Encode(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(c.ttl),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

var errNoSession = errors.New("no session")

// SessionFromToken decodes a raw token, for clients that cannot send cookies.
func (c *CookieStore) SessionFromToken(token string) (Session, error) {
	if token == "" {
		return Session{}, errNoSession
	}
	return c.Decode(token)
}
