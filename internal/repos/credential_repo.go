package repos

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CredentialRepo struct{ db *sqlx.DB }

func NewCredentialRepo(db *sqlx.DB) *CredentialRepo { return &CredentialRepo{db: db} }

type credentialRow struct {
	Email       string `db:"email"`
	APIKey      string `db:"api_key"`
	AccessToken string `db:"access_token"`
	TokenExpiry string `db:"token_expiry"`
	UpdatedAt   string `db:"updated_at"`
}

// Get returns domain.ErrNotConfigured when no credential row exists.
func (r *CredentialRepo) Get(ctx context.Context) (domain.SupplierCredential, error) {
	var row credentialRow
	err := r.db.GetContext(ctx, &row, `
		SELECT email, api_key, access_token, token_expiry, COALESCE(updated_at,'') AS updated_at
		FROM supplier_credentials WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SupplierCredential{}, domain.ErrNotConfigured
	}
	if err != nil {
		return domain.SupplierCredential{}, err
	}
	c := domain.SupplierCredential{
		Email:       row.Email,
		APIKey:      row.APIKey,
		AccessToken: row.AccessToken,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.TokenExpiry != "" {
		// an unparsable expiry leaves the zero time, which forces a refresh
		c.TokenExpiry, _ = time.Parse(time.RFC3339Nano, row.TokenExpiry)
	}
	return c, nil
}

// Save replaces the credential set and drops any cached token.
func (r *CredentialRepo) Save(ctx context.Context, email, apiKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO supplier_credentials(id, email, api_key, access_token, token_expiry, updated_at)
		VALUES(1, ?, ?, '', '', CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
		  email = excluded.email, api_key = excluded.api_key,
		  access_token = '', token_expiry = '', updated_at = CURRENT_TIMESTAMP
	`, email, apiKey)
	return err
}

// SaveToken overwrites the cached token in place. Concurrent refreshes race
// harmlessly: the last write wins and both tokens are valid.
func (r *CredentialRepo) SaveToken(ctx context.Context, token string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE supplier_credentials
		SET access_token = ?, token_expiry = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, token, expiry.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotConfigured
	}
	return nil
}
