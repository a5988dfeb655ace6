package tracking

import "errors"

// Field length limits for incoming payloads. Anything over the meta
// limit is truncated rather than rejected; structural problems reject.
const (
	maxUsernameLength = 64
	maxMetaLength     = 500
	maxURLLength      = 2048
)

var (
	// ErrMissingUsername indicates the payload has no profile username.
	ErrMissingUsername = errors.New("profileUsername is required")
	// ErrFieldTooLong indicates a payload field exceeds its hard limit.
	ErrFieldTooLong = errors.New("field exceeds maximum length")
)

// ValidateClickPayload checks the structural validity of a tracking
// payload. Only the profile username is strictly required; the other
// fields are best-effort metadata.
func ValidateClickPayload(p ClickPayload) error {
	if p.ProfileUsername == "" {
		return ErrMissingUsername
	}
	if len(p.ProfileUsername) > maxUsernameLength {
		return ErrFieldTooLong
	}
	if len(p.LinkURL) > maxURLLength {
		return ErrFieldTooLong
	}
	return nil
}
