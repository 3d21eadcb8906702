package manifest_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipsmithlabs/clipsmith/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	f, err := manifest.Parse(strings.NewReader(`
# studio dependencies
streamlit==1.28.0
requests[security]>=2.31.0  # pinned for CVE fix
natsort~=8.4
google-api-python-client
--no-cache-dir
-r extra.txt
`))
	require.NoError(t, err)

	require.Len(t, f.Requirements, 4)
	assert.Equal(t, "streamlit", f.Requirements[0].Name)
	assert.Equal(t, "==1.28.0", f.Requirements[0].Constraint)

	assert.Equal(t, "requests", f.Requirements[1].Name)
	assert.Equal(t, "security", f.Requirements[1].Extras)
	assert.Equal(t, ">=2.31.0", f.Requirements[1].Constraint)

	assert.Equal(t, "natsort", f.Requirements[2].Name)
	assert.Equal(t, "~=8.4", f.Requirements[2].Constraint)

	assert.Equal(t, "google-api-python-client", f.Requirements[3].Name)
	assert.Empty(t, f.Requirements[3].Constraint)

	assert.Equal(t, []string{"--no-cache-dir", "-r extra.txt"}, f.Options)
	assert.False(t, f.IsEmpty())
}

func TestParseEmpty(t *testing.T) {
	for name, body := range map[string]string{
		"empty file":    "",
		"only comments": "# nothing here\n\n   # still nothing\n",
		"only options":  "--index-url https://pypi.org/simple\n",
	} {
		t.Run(name, func(t *testing.T) {
			f, err := manifest.Parse(strings.NewReader(body))
			require.NoError(t, err)
			assert.True(t, f.IsEmpty())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := manifest.Load(filepath.Join(t.TempDir(), "requirements.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requirements.txt")
	require.NoError(t, os.WriteFile(path, []byte("streamlit\n"), 0o644))

	f, err := manifest.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path)
	require.Len(t, f.Requirements, 1)
	assert.Equal(t, "streamlit", f.Requirements[0].Name)
}
