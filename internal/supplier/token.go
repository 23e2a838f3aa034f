package supplier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"storefront/internal/domain"
	applog "storefront/internal/log"
)

//go:generate go tool stringer -type=TokenState -trimprefix=State -output=tokenstate_string.go

// TokenState classifies the cached supplier token at a point in time.
type TokenState int

const (
	StateNoToken TokenState = iota
	StateValid
	StateExpiringSoon
	StateExpired
)

// StateAt reports the token state at now. A token counts as Valid only while
// it has more than buffer of validity left.
func StateAt(cred domain.SupplierCredential, now time.Time, buffer time.Duration) TokenState {
	switch {
	case cred.AccessToken == "" || cred.TokenExpiry.IsZero():
		return StateNoToken
	case !now.Before(cred.TokenExpiry):
		return StateExpired
	case cred.TokenExpiry.After(now.Add(buffer)):
		return StateValid
	default:
		return StateExpiringSoon
	}
}

type Outcome string

const (
	Reused    Outcome = "reused"
	Refreshed Outcome = "refreshed"
)

type TokenResult struct {
	Token   string
	Expiry  time.Time
	Outcome Outcome
}

type CredentialStore interface {
	Get(ctx context.Context) (domain.SupplierCredential, error)
	SaveToken(ctx context.Context, token string, expiry time.Time) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, email, apiKey string) (token string, expiry time.Time, err error)
}

// TokenManager hands out a usable access token, refreshing it on demand.
// Concurrent refreshes are not serialised; the last SaveToken wins and every
// token it could have written is valid.
type TokenManager struct {
	store  CredentialStore
	auth   Authenticator
	buffer time.Duration
	now    func() time.Time
}

func NewTokenManager(store CredentialStore, auth Authenticator, buffer time.Duration) *TokenManager {
	return &TokenManager{store: store, auth: auth, buffer: buffer, now: time.Now}
}

// State reports the current token state without refreshing.
func (m *TokenManager) State(ctx context.Context) (TokenState, domain.SupplierCredential, error) {
	cred, err := m.store.Get(ctx)
	if err != nil {
		return StateNoToken, cred, err
	}
	return StateAt(cred, m.now(), m.buffer), cred, nil
}

// Ensure returns the cached token when it is Valid and otherwise
// authenticates with the stored credentials and persists the new token.
func (m *TokenManager) Ensure(ctx context.Context) (TokenResult, error) {
	state, cred, err := m.State(ctx)
	if err != nil {
		return TokenResult{}, err
	}
	if !cred.Configured() {
		return TokenResult{}, domain.ErrNotConfigured
	}
	if state == StateValid {
		return TokenResult{Token: cred.AccessToken, Expiry: cred.TokenExpiry, Outcome: Reused}, nil
	}

	applog.L().Info("supplier.token.refresh", zap.Stringer("state", state))
	token, expiry, err := m.auth.Authenticate(ctx, cred.Email, cred.APIKey)
	if err != nil {
		return TokenResult{}, err
	}
	if err := m.store.SaveToken(ctx, token, expiry); err != nil {
		// the fresh token is still usable for this call
		applog.L().Warn("supplier.token.persist", zap.Error(err))
	}
	return TokenResult{Token: token, Expiry: expiry, Outcome: Refreshed}, nil
}
