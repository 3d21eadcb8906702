// Package secrets loads the OAuth client record from wherever the operator
// keeps it: process env, a dotenv file, a TOML secrets file, or AWS
// Secrets Manager. Loading and validity are separate concerns — a source
// returns whatever record it finds and the consumer decides via
// Record.Validate.
package secrets

import (
	"context"
	"fmt"

	"github.com/clipsmithlabs/clipsmith/internal/config"
	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
)

type Source interface {
	// Name identifies the source kind for logs and doctor output.
	Name() string
	Load(ctx context.Context) (driveauth.Record, error)
}

// New builds the source selected by oauth.source.
func New(ctx context.Context, cfg config.Config) (Source, error) {
	switch cfg.OAuth.Source {
	case config.SourceEnv:
		return Env{}, nil
	case config.SourceDotenv:
		return Dotenv{Path: cfg.OAuthPath()}, nil
	case config.SourceTOML:
		return TOMLFile{Path: cfg.OAuthPath(), Section: cfg.OAuth.Section}, nil
	case config.SourceAWS:
		return NewAWS(ctx, cfg.OAuth)
	default:
		return nil, fmt.Errorf("unknown oauth source %q", cfg.OAuth.Source)
	}
}

// Keys shared by the env and dotenv sources.
const (
	KeyClientID     = "GOOGLE_OAUTH_CLIENT_ID"
	KeyClientSecret = "GOOGLE_OAUTH_CLIENT_SECRET"
	KeyRedirectURI  = "GOOGLE_OAUTH_REDIRECT_URI"
)

func recordFromMap(values map[string]string) driveauth.Record {
	return driveauth.Record{
		ClientID:     values[KeyClientID],
		ClientSecret: values[KeyClientSecret],
		RedirectURI:  values[KeyRedirectURI],
	}
}
