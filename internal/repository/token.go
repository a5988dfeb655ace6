package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/linkbio/linkbio/internal/model"
)

// GetAccessTokensByPrefix returns all non-revoked access tokens sharing a
// visible prefix. Prefixes are short, so collisions are possible; the auth
// middleware verifies the presented token against each candidate hash.
func (r *Repository) GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error) {
	query := `
		SELECT id, user_id, token_hash, token_prefix, scopes, revoked_at, created_at
		FROM access_tokens
		WHERE token_prefix = $1 AND revoked_at IS NULL
	`

	rows, err := r.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("query access tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*model.AccessToken
	for rows.Next() {
		var token model.AccessToken
		var scopes []string
		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.TokenHash,
			&token.TokenPrefix,
			pq.Array(&scopes),
			&token.RevokedAt,
			&token.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan access token: %w", err)
		}
		token.Scopes = scopes
		tokens = append(tokens, &token)
	}

	return tokens, rows.Err()
}
