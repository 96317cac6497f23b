package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coverage.yaml")
	content := `modules:
  envelope:
    categories:
      - wall
      - roof_ceiling
  heating:
    categories:
      - heat_generator
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"wall", "roof_ceiling"}, m.Categories("envelope"))
	assert.Equal(t, []string{"heat_generator"}, m.Categories("heating"))
	assert.Nil(t, m.Categories("unknown_module"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("modules: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	t.Parallel()

	m := Default()
	assert.Equal(t, []string{"wall", "roof_ceiling", "floor", "windows_doors"}, m.Categories("envelope"))
}

func TestCategories_NilManifest(t *testing.T) {
	t.Parallel()

	var m *Manifest
	assert.Nil(t, m.Categories("envelope"))
}
