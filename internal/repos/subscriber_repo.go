package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type SubscriberRepo struct{ db *sqlx.DB }

func NewSubscriberRepo(db *sqlx.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

// Add stores email once; created reports whether it was new.
func (r *SubscriberRepo) Add(ctx context.Context, email string) (created bool, err error) {
	res, err := r.db.ExecContext(ctx, `
	  INSERT INTO subscribers(email, created_at) VALUES(?, CURRENT_TIMESTAMP)
	  ON CONFLICT(email) DO NOTHING`, email)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *SubscriberRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM subscribers`)
	return n, err
}
