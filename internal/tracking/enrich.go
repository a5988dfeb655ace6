// Package tracking implements the click-tracking write path: payload
// validation, server-side enrichment, and best-effort delivery to the
// external event store.
package tracking

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkbio/linkbio/internal/model"
)

// UnknownUserAgent is recorded when neither the payload nor the transport
// supplies a user agent. The stored field is never empty.
const UnknownUserAgent = "unknown"

// ClickPayload is the client-submitted tracking payload.
// Everything here is untrusted; the owner id is always re-resolved
// server-side and the timestamp is always server-assigned.
type ClickPayload struct {
	ProfileUsername string `json:"profileUsername"`
	LinkID          string `json:"linkId"`
	LinkTitle       string `json:"linkTitle"`
	LinkURL         string `json:"linkUrl"`
	Referrer        string `json:"referrer,omitempty"`
	UserAgent       string `json:"userAgent,omitempty"`
}

// BuildClickEvent enriches a client payload into a full ClickEvent.
// Pure transformation: no side effects, no trust in client-supplied
// identity or time.
func BuildClickEvent(p ClickPayload, ownerID string, geo model.Location, headerUA, clientIP string, now time.Time) model.ClickEvent {
	ts := now.UTC()

	ua := p.UserAgent
	if ua == "" {
		ua = headerUA
	}
	if ua == "" {
		ua = UnknownUserAgent
	}
	ua = TruncateMeta(ua)

	return model.ClickEvent{
		EventID:         ulid.MustNew(ulid.Timestamp(ts), ulid.DefaultEntropy()).String(),
		Timestamp:       ts.Format(model.TimestampLayout),
		ProfileUsername: p.ProfileUsername,
		ProfileUserID:   ownerID,
		LinkID:          p.LinkID,
		LinkTitle:       TruncateMeta(p.LinkTitle),
		LinkURL:         p.LinkURL,
		UserAgent:       ua,
		Referrer:        SanitizeReferrer(p.Referrer),
		VisitorID:       VisitorFingerprint(clientIP, ua, ts),
		Location:        geo,
	}
}

// VisitorFingerprint creates a privacy-safe visitor identifier.
// Uses SHA256(IP + UserAgent + daily_salt) truncated to 16 hex chars.
// The daily salt rotates at midnight UTC, so the same visitor counts
// once per day and cannot be tracked across days.
func VisitorFingerprint(ip, userAgent string, clickedAt time.Time) string {
	dailySalt := fmt.Sprintf("linkbio:%s", clickedAt.UTC().Format("2006-01-02"))

	data := ip + userAgent + dailySalt
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])[:16]
}

// SanitizeReferrer cleans and truncates the referrer URL.
// Strips query parameters and fragments for privacy.
func SanitizeReferrer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return TruncateMeta(parsed.String())
}

// TruncateMeta truncates free-form metadata to maxMetaLength chars.
func TruncateMeta(s string) string {
	if len(s) > maxMetaLength {
		return s[:maxMetaLength]
	}
	return s
}

// Edge geolocation headers. The hosting layer resolves the caller's
// network address; this service never does IP lookups itself.
const (
	headerGeoCountry   = "X-Vercel-IP-Country"
	headerGeoRegion    = "X-Vercel-IP-Country-Region"
	headerGeoCity      = "X-Vercel-IP-City"
	headerGeoLatitude  = "X-Vercel-IP-Latitude"
	headerGeoLongitude = "X-Vercel-IP-Longitude"
	headerCFCountry    = "CF-IPCountry"
)

// GeoFromRequest extracts the edge-resolved geolocation from request
// headers. Every field defaults to empty when undeterminable; the
// returned Location is always usable.
func GeoFromRequest(r *http.Request) model.Location {
	loc := model.Location{
		Country:   normalizeCountry(r.Header.Get(headerGeoCountry)),
		Region:    r.Header.Get(headerGeoRegion),
		City:      decodeCity(r.Header.Get(headerGeoCity)),
		Latitude:  r.Header.Get(headerGeoLatitude),
		Longitude: r.Header.Get(headerGeoLongitude),
	}

	if loc.Country == "" {
		loc.Country = normalizeCountry(r.Header.Get(headerCFCountry))
	}

	return loc
}

// normalizeCountry uppercases a 2-letter ISO country code.
// Returns empty string for anything else.
func normalizeCountry(code string) string {
	if len(code) == 2 {
		return strings.ToUpper(code)
	}
	return ""
}

// decodeCity unescapes the city header, which edges URL-encode
// for non-ASCII names. Falls back to the raw value.
func decodeCity(city string) string {
	if city == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(city)
	if err != nil {
		return city
	}
	return decoded
}

// ClientIP extracts the client IP address from the request.
func ClientIP(r *http.Request) string {
	// Check Cloudflare header first
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	// Check X-Forwarded-For, taking the first IP in the chain
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.IndexByte(ip, ','); idx >= 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
