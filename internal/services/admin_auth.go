package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "storefront/internal/log"
)

var (
	ErrBadCreds      = errors.New("invalid password")
	ErrAdminDisabled = errors.New("admin login is not configured")
	ErrBadSession    = errors.New("invalid or expired admin session")
)

const adminSubject = "admin"

// AdminAuth checks the admin password and issues signed session tokens.
type AdminAuth struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAdminAuth accepts either a plaintext password (hashed here) or a bcrypt
// hash. With neither, every login fails with ErrAdminDisabled. An empty
// secret gets a random one, so sessions do not survive a restart.
func NewAdminAuth(password, passwordHash, secret string, ttl time.Duration) (*AdminAuth, error) {
	a := &AdminAuth{ttl: ttl, now: time.Now}
	switch {
	case passwordHash != "":
		if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
		}
		a.hash = []byte(passwordHash)
	case password != "":
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		a.hash = h
	}
	if secret == "" {
		a.secret = make([]byte, 32)
		if _, err := rand.Read(a.secret); err != nil {
			return nil, err
		}
		applog.L().Warn("admin.ephemeral_jwt_secret")
	} else {
		a.secret = []byte(secret)
	}
	if a.ttl <= 0 {
		a.ttl = 24 * time.Hour
	}
	return a, nil
}

func (a *AdminAuth) Enabled() bool { return len(a.hash) > 0 }

func (a *AdminAuth) Login(password string) (string, time.Time, error) {
	if !a.Enabled() {
		return "", time.Time{}, ErrAdminDisabled
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		return "", time.Time{}, ErrBadCreds
	}
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   adminSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// Verify returns the claims of a valid, unexpired admin token.
func (a *AdminAuth) Verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrBadSession
	}
	return claims, nil
}
