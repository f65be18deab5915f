package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"palantir/internal/domain"
	"palantir/internal/errors"
	"palantir/internal/session"
)

// MySQLSessionRepository persists the gateway's single session row so a
// restart does not force the operator to log in again. The table holds
// at most one row, keyed by a fixed id.
type MySQLSessionRepository struct {
	db *sql.DB
}

const sessionRowID = 1

func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

func (r *MySQLSessionRepository) Save(ctx context.Context, tokens session.Tokens, user *domain.User) error {
	userJSON := []byte("null")
	if user != nil {
		encoded, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encoding session user: %w", err)
		}
		userJSON = encoded
	}

	query := `
		INSERT INTO Sessions (id, accessToken, refreshToken, userData)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			accessToken = VALUES(accessToken),
			refreshToken = VALUES(refreshToken),
			userData = VALUES(userData)
	`

	if _, err := r.db.ExecContext(ctx, query, sessionRowID, tokens.Access, tokens.Refresh, string(userJSON)); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}

func (r *MySQLSessionRepository) Load(ctx context.Context) (session.Tokens, *domain.User, error) {
	query := `
		SELECT accessToken, refreshToken, userData
		FROM Sessions
		WHERE id = ?
	`

	var tokens session.Tokens
	var userJSON string
	err := r.db.QueryRowContext(ctx, query, sessionRowID).Scan(
		&tokens.Access, &tokens.Refresh, &userJSON,
	)

	if err == sql.ErrNoRows {
		return session.Tokens{}, nil, errors.NewNotFoundError("no stored session")
	}
	if err != nil {
		return session.Tokens{}, nil, fmt.Errorf("querying stored session: %w", err)
	}

	var user *domain.User
	if userJSON != "" && userJSON != "null" {
		user = &domain.User{}
		if err := json.Unmarshal([]byte(userJSON), user); err != nil {
			// A corrupt cached user is not fatal; the tokens are
			// what matter.
			user = nil
		}
	}

	return tokens, user, nil
}

func (r *MySQLSessionRepository) Delete(ctx context.Context) error {
	query := `DELETE FROM Sessions WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, sessionRowID); err != nil {
		return fmt.Errorf("deleting stored session: %w", err)
	}

	return nil
}
