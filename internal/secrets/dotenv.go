package secrets

import (
	"context"
	"fmt"

	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
	"github.com/joho/godotenv"
)

// Dotenv reads the record from a .env-style file.
type Dotenv struct {
	Path string
}

func (Dotenv) Name() string { return "dotenv" }

func (d Dotenv) Load(ctx context.Context) (driveauth.Record, error) {
	values, err := godotenv.Read(d.Path)
	if err != nil {
		return driveauth.Record{}, fmt.Errorf("read %s: %w", d.Path, err)
	}
	return recordFromMap(values), nil
}
