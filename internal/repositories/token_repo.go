package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/conexio/contactsync/internal/models"
)

// TokenRepo stores credential pairs append-only: refreshes insert new rows
// and older rows stay for audit.
type TokenRepo struct {
	pool *pgxpool.Pool
}

func NewTokenRepo(pool *pgxpool.Pool) *TokenRepo {
	return &TokenRepo{pool: pool}
}

func (r *TokenRepo) Insert(ctx context.Context, t *models.Token) error {
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO tokens (access_token, refresh_token, token_type, scope)
		VALUES ($1, $2, $3, $4)
		RETURNING id, inserted_at
	`, t.AccessToken, t.RefreshToken, t.TokenType, t.Scope,
	).Scan(&t.ID, &t.InsertedAt)
}

// Latest returns the newest credential row, nil when none exists.
func (r *TokenRepo) Latest(ctx context.Context) (*models.Token, error) {
	var t models.Token
	err := r.pool.QueryRow(ctx, `
		SELECT id, access_token, refresh_token, token_type, scope, inserted_at
		FROM tokens ORDER BY inserted_at DESC, id DESC LIMIT 1
	`).Scan(&t.ID, &t.AccessToken, &t.RefreshToken, &t.TokenType, &t.Scope, &t.InsertedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}
