package secrets

import (
	"context"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/clipsmithlabs/clipsmith/internal/driveauth"
)

// TOMLFile reads the record from a named section of a TOML secrets file —
// the same shape the hosting platform's secret UI asks for:
//
//	[google_oauth]
//	client_id = "..."
//	client_secret = "..."
//	redirect_uri = "..."
type TOMLFile struct {
	Path    string
	Section string
}

func (TOMLFile) Name() string { return "toml" }

func (t TOMLFile) Load(ctx context.Context) (driveauth.Record, error) {
	section := t.Section
	if section == "" {
		section = driveauth.DefaultSection
	}

	// Decode the document loosely first so unrelated sections with other
	// shapes don't break the load.
	var doc map[string]toml.Primitive
	md, err := toml.DecodeFile(t.Path, &doc)
	if err != nil {
		return driveauth.Record{}, fmt.Errorf("decode %s: %w", t.Path, err)
	}

	prim, ok := doc[section]
	if !ok {
		return driveauth.Record{}, fmt.Errorf("section [%s] not found in %s", section, t.Path)
	}

	var rec driveauth.Record
	if err := md.PrimitiveDecode(prim, &rec); err != nil {
		return driveauth.Record{}, fmt.Errorf("decode section [%s]: %w", section, err)
	}
	return rec, nil
}
