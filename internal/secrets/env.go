package secrets

import (
	"context"
	"os"

	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
)

// Env reads the record from process environment variables.
type Env struct{}

func (Env) Name() string { return "env" }

func (Env) Load(ctx context.Context) (driveauth.Record, error) {
	return driveauth.Record{
		ClientID:     os.Getenv(KeyClientID),
		ClientSecret: os.Getenv(KeyClientSecret),
		RedirectURI:  os.Getenv(KeyRedirectURI),
	}, nil
}
