package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/linkbio/linkbio/internal/model"
)

// Common errors for profile store operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
)

// ResolveOwner maps a public profile handle to the owning account id.
// The lookup is case-sensitive. Returns ErrProfileNotFound when the
// handle does not resolve.
func (r *Repository) ResolveOwner(ctx context.Context, username string) (string, error) {
	query := `
		SELECT user_id
		FROM profiles
		WHERE username = $1
	`

	var userID string
	err := r.pool.QueryRow(ctx, query, username).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("resolve owner: %w", err)
	}

	return userID, nil
}

// GetProfileTier returns the subscription tier for an account.
// Accounts without a stored tier are treated as free.
func (r *Repository) GetProfileTier(ctx context.Context, userID string) (model.AccessTier, error) {
	query := `
		SELECT tier
		FROM profiles
		WHERE user_id = $1
	`

	var tier string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrProfileNotFound
		}
		return "", fmt.Errorf("get profile tier: %w", err)
	}

	return model.ParseAccessTier(tier), nil
}

// ListProfileLinks returns a profile's links in display order.
// Link metadata is owned by the profile store; analytics only snapshots it.
func (r *Repository) ListProfileLinks(ctx context.Context, userID string) ([]*model.ProfileLink, error) {
	query := `
		SELECT id, user_id, title, url, sort_order, created_at, updated_at
		FROM profile_links
		WHERE user_id = $1
		ORDER BY sort_order ASC, created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query profile links: %w", err)
	}
	defer rows.Close()

	var links []*model.ProfileLink
	for rows.Next() {
		var link model.ProfileLink
		if err := rows.Scan(
			&link.ID,
			&link.UserID,
			&link.Title,
			&link.URL,
			&link.SortOrder,
			&link.CreatedAt,
			&link.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile link: %w", err)
		}
		links = append(links, &link)
	}

	return links, rows.Err()
}
