package driveauth

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// RenderSection prints the record as the TOML section the hosting
// platform's secret store asks for, e.g.
//
//	[google_oauth]
//	client_id = "..."
//	client_secret = "..."
//	redirect_uri = "..."
func RenderSection(section string, r Record) (string, error) {
	if section == "" {
		section = DefaultSection
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(map[string]Record{section: r}); err != nil {
		return "", fmt.Errorf("encode %s section: %w", section, err)
	}
	return buf.String(), nil
}

// Placeholder is the template record rendered when no secrets are
// configured yet.
func Placeholder(redirect string) Record {
	if redirect == "" {
		redirect = "https://localhost:8501"
	}
	return Record{
		ClientID:     "your-client-id.apps.googleusercontent.com",
		ClientSecret: "your-client-secret",
		RedirectURI:  redirect,
	}
}
