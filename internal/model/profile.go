package model

import "time"

// AccessTier is the caller's subscription tier, resolved per request from
// the entitlement store. Not persisted by this service.
type AccessTier string

// Subscription tiers.
const (
	TierFree  AccessTier = "free"
	TierPro   AccessTier = "pro"
	TierUltra AccessTier = "ultra"
)

// ParseAccessTier maps a stored tier string to an AccessTier.
// Unknown values degrade to the free tier.
func ParseAccessTier(s string) AccessTier {
	switch AccessTier(s) {
	case TierPro:
		return TierPro
	case TierUltra:
		return TierUltra
	default:
		return TierFree
	}
}

// Profile is a public link-in-bio page owned by one account.
// Link CRUD lives in the external profile store; this service only reads.
type Profile struct {
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"` // Public handle, case-sensitive
	Tier      AccessTier `json:"tier"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ProfileLink is one entry on a profile page.
type ProfileLink struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Token scopes.
const (
	ScopeAnalytics = "analytics"
	ScopeAdmin     = "admin"
)

// AccessToken is a dashboard API token issued by the identity provider.
// This service only verifies presented tokens; it never mints them.
type AccessToken struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"` // Never serialize
	TokenPrefix string     `json:"token_prefix"`
	Scopes      []string   `json:"scopes"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsRevoked returns true if the token has been revoked.
func (t *AccessToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// AuthContext is the authenticated caller attached to a request.
type AuthContext struct {
	TokenID     string
	TokenPrefix string
	UserID      string
	Tier        AccessTier
	Scopes      []string
}

// HasScope checks whether the token carries a scope.
// Admin implies all other scopes.
func (a *AuthContext) HasScope(scope string) bool {
	for _, s := range a.Scopes {
		if s == scope || s == ScopeAdmin {
			return true
		}
	}
	return false
}
