package driveauth

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Google's OAuth2 endpoints, consumed as-is from the provider.
const (
	GoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	GoogleTokenURL = "https://oauth2.googleapis.com/token"
)

// Scopes returns the permissions the studio app asks for: read access to
// Drive content, write access to files it creates, and the user's email.
func Scopes() []string {
	return []string{
		"https://www.googleapis.com/auth/drive.readonly",
		"https://www.googleapis.com/auth/drive.file",
		"https://www.googleapis.com/auth/userinfo.email",
	}
}

// OAuthConfig materializes the record into an oauth2 client config against
// Google's endpoints.
func (r Record) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		RedirectURL:  r.RedirectURI,
		Scopes:       Scopes(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  GoogleAuthURL,
			TokenURL: GoogleTokenURL,
		},
	}
}

// ConsentURL builds the authorization URL an operator can open to verify
// the registration (offline access, forced consent, incremental scopes —
// the same parameters the app requests). Returns the URL and the state
// value embedded in it.
func (r Record) ConsentURL() (string, string, error) {
	if err := r.Validate(); err != nil {
		return "", "", err
	}
	state := uuid.NewString()
	u := r.OAuthConfig().AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)
	return u, state, nil
}

// String implements fmt.Stringer without leaking the secret.
func (r Record) String() string {
	red := r.Redacted()
	return fmt.Sprintf("client_id=%s redirect_uri=%s", red.ClientID, red.RedirectURI)
}
