package driveauth_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() driveauth.Record {
	return driveauth.Record{
		ClientID:     "abc123.apps.googleusercontent.com",
		ClientSecret: "s3cret",
		RedirectURI:  "https://studio.example.com/oauth/callback",
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validRecord().Validate())

	tests := []struct {
		name   string
		mutate func(*driveauth.Record)
		field  string
	}{
		{"missing client_id", func(r *driveauth.Record) { r.ClientID = "" }, "client_id"},
		{"missing client_secret", func(r *driveauth.Record) { r.ClientSecret = "  " }, "client_secret"},
		{"missing redirect_uri", func(r *driveauth.Record) { r.RedirectURI = "" }, "redirect_uri"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, driveauth.ErrIncomplete)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidateRedirectShape(t *testing.T) {
	r := validRecord()
	r.RedirectURI = "not-a-url"
	assert.Error(t, r.Validate())

	r.RedirectURI = "ftp://example.com/cb"
	assert.Error(t, r.Validate())

	r.RedirectURI = "http://localhost:8501"
	assert.NoError(t, r.Validate())
}

func TestRedirectMatchesIsExact(t *testing.T) {
	r := validRecord()
	assert.True(t, r.RedirectMatches("https://studio.example.com/oauth/callback"))
	assert.False(t, r.RedirectMatches("https://studio.example.com/oauth/callback/"))
	assert.False(t, r.RedirectMatches("http://studio.example.com/oauth/callback"))
}

func TestConsentURL(t *testing.T) {
	r := validRecord()
	raw, state, err := r.ConsentURL()
	require.NoError(t, err)
	require.NotEmpty(t, state)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, r.ClientID, q.Get("client_id"))
	assert.Equal(t, r.RedirectURI, q.Get("redirect_uri"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Contains(t, q.Get("scope"), "drive.readonly")
	assert.Contains(t, q.Get("scope"), "drive.file")
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestConsentURLRequiresValidRecord(t *testing.T) {
	r := validRecord()
	r.ClientSecret = ""
	_, _, err := r.ConsentURL()
	assert.ErrorIs(t, err, driveauth.ErrIncomplete)
}

func TestRenderSection(t *testing.T) {
	out, err := driveauth.RenderSection("", validRecord())
	require.NoError(t, err)

	assert.True(t, strings.Contains(out, "[google_oauth]"), out)
	assert.Contains(t, out, `client_id = "abc123.apps.googleusercontent.com"`)
	assert.Contains(t, out, `client_secret = "s3cret"`)
	assert.Contains(t, out, `redirect_uri = "https://studio.example.com/oauth/callback"`)
}

func TestRedacted(t *testing.T) {
	r := validRecord().Redacted()
	assert.Equal(t, "<redacted>", r.ClientSecret)
	assert.NotContains(t, validRecord().String(), "s3cret")
}
