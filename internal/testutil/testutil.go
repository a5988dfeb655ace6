// Package testutil provides helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/linkbio/linkbio/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetProfilesSchema drops and recreates the profiles schema for tests.
// access_tokens references profiles, so it is dropped first and left absent.
func ResetProfilesSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := applyMigration(ctx, pool, "000002_access_tokens.down.sql"); err != nil {
		return err
	}
	if err := applyMigration(ctx, pool, "000001_profiles.down.sql"); err != nil {
		return err
	}
	return applyMigration(ctx, pool, "000001_profiles.up.sql")
}

// ResetAccessTokensSchema drops and recreates the access_tokens schema for
// tests. The profiles schema must already exist.
func ResetAccessTokensSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if err := applyMigration(ctx, pool, "000002_access_tokens.down.sql"); err != nil {
		return err
	}
	return applyMigration(ctx, pool, "000002_access_tokens.up.sql")
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, file string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	sql, err := os.ReadFile(filepath.Join(root, "migrations", file))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestProfile creates a test profile with sensible defaults.
func NewTestProfile(t testing.TB, username string) *model.Profile {
	t.Helper()
	now := time.Now().UTC()
	return &model.Profile{
		UserID:    fmt.Sprintf("user-%d", now.UnixNano()),
		Username:  username,
		Tier:      model.TierFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestClickEvent creates a test click event with sensible defaults.
func NewTestClickEvent(t testing.TB, ownerID, linkID string) model.ClickEvent {
	t.Helper()
	now := time.Now().UTC()
	return model.ClickEvent{
		EventID:         UniqueID("evt"),
		Timestamp:       now.Format(model.TimestampLayout),
		ProfileUsername: "testuser",
		ProfileUserID:   ownerID,
		LinkID:          linkID,
		LinkTitle:       "Test Link",
		LinkURL:         "https://example.com",
		UserAgent:       "test-agent",
		Referrer:        "",
		VisitorID:       UniqueID("visitor"),
		Location:        model.Location{Country: "US"},
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
