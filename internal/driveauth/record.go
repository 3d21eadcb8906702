// Package driveauth models the Google Drive OAuth2 client registration the
// studio app authenticates with. It validates and renders the registration
// record; the authorization-code exchange itself belongs to the app.
package driveauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultSection is the secrets section the hosting platform expects the
// record under.
const DefaultSection = "google_oauth"

var ErrIncomplete = errors.New("oauth client record is incomplete")

// Record is the OAuth2 client registration issued by the identity provider.
type Record struct {
	ClientID     string `json:"client_id" toml:"client_id"`
	ClientSecret string `json:"client_secret" toml:"client_secret"`
	RedirectURI  string `json:"redirect_uri" toml:"redirect_uri"`
}

// Validate checks the invariant every OAuth flow depends on: all three
// fields present and non-empty, and the redirect URI an absolute http(s)
// URL.
func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if strings.TrimSpace(r.ClientSecret) == "" {
		missing = append(missing, "client_secret")
	}
	if strings.TrimSpace(r.RedirectURI) == "" {
		missing = append(missing, "redirect_uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	u, err := url.Parse(r.RedirectURI)
	if err != nil {
		return fmt.Errorf("redirect_uri is not a valid URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("redirect_uri must be an absolute http(s) URL, got %q", r.RedirectURI)
	}
	return nil
}

// RedirectMatches reports whether the configured redirect URI equals the
// registered one. The provider compares by exact string equality, so a
// trailing slash or scheme difference is a mismatch.
func (r Record) RedirectMatches(registered string) bool {
	return r.RedirectURI == registered
}

// Redacted returns a copy safe for logs and display.
func (r Record) Redacted() Record {
	out := r
	if out.ClientSecret != "" {
		out.ClientSecret = "<redacted>"
	}
	return out
}
