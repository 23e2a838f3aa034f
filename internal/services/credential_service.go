package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/supplier"
	"storefront/internal/validate"
)

// CredentialStatus is what the admin panel shows about the supplier account.
// The API key is never returned in full.
type CredentialStatus struct {
	Configured  bool       `json:"configured"`
	Email       string     `json:"email,omitempty"`
	APIKey      string     `json:"apiKey,omitempty"`
	TokenState  string     `json:"tokenState"`
	TokenExpiry *time.Time `json:"tokenExpiry,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
}

type CredentialService struct {
	Creds  *repos.CredentialRepo
	Tokens *supplier.TokenManager
}

func NewCredentialService(creds *repos.CredentialRepo, tokens *supplier.TokenManager) *CredentialService {
	return &CredentialService{Creds: creds, Tokens: tokens}
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

func (s *CredentialService) Status(ctx context.Context) (CredentialStatus, error) {
	state, cred, err := s.Tokens.State(ctx)
	if errors.Is(err, domain.ErrNotConfigured) {
		return CredentialStatus{TokenState: supplier.StateNoToken.String()}, nil
	}
	if err != nil {
		return CredentialStatus{}, err
	}
	st := CredentialStatus{
		Configured: cred.Configured(),
		Email:      cred.Email,
		APIKey:     maskKey(cred.APIKey),
		TokenState: state.String(),
		UpdatedAt:  cred.UpdatedAt,
	}
	if !cred.TokenExpiry.IsZero() {
		exp := cred.TokenExpiry
		st.TokenExpiry = &exp
	}
	return st, nil
}

// Save replaces the credential set. The cached token is dropped so the next
// supplier call authenticates with the new key.
func (s *CredentialService) Save(ctx context.Context, email, apiKey string) error {
	email, ok := validate.Email(email)
	if !ok {
		return domain.Invalid("email", "a valid email is required")
	}
	apiKey, ok = validate.Text(apiKey, 256)
	if !ok {
		return domain.Invalid("apiKey", "required")
	}
	return s.Creds.Save(ctx, email, apiKey)
}
