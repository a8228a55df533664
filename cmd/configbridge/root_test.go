// cmd/configbridge/root_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (t.TempDir) for config materialization
// PURPOSE: Item selection and mode resolution helpers

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/configbridge/pkg/config"
	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/paths"
	"github.com/arthur-debert/configbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) (*config.Config, paths.Paths) {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvDataDir, filepath.Join(root, "data"))
	p, err := paths.New(filepath.Join(root, "project"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(p.ProjectRoot(), 0o755))

	cfg := &config.Config{
		Version: 1,
		Items: []config.ItemSpec{
			{Tool: "claude-code", Kind: "settings"},
			{Tool: "gemini-cli", Kind: "context-file"},
		},
	}
	return cfg, p
}

func TestSelectItemsAll(t *testing.T) {
	cfg, p := testConfig(t)

	items, err := selectItems(cfg, p, nil)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSelectItemsByID(t *testing.T) {
	cfg, p := testConfig(t)

	items, err := selectItems(cfg, p, []string{"gemini-cli-context-file"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "gemini-cli-context-file", items[0].ID)
}

func TestSelectItemsUnknownID(t *testing.T) {
	cfg, p := testConfig(t)

	_, err := selectItems(cfg, p, []string{"no-such-item"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestResolveMode(t *testing.T) {
	cfg := &config.Config{}
	assert.Equal(t, types.LinkMode(""), resolveMode("", cfg))

	cfg.Options.DefaultMode = "copy"
	assert.Equal(t, types.ModeCopy, resolveMode("", cfg))
	assert.Equal(t, types.ModeSymlink, resolveMode("symlink", cfg))
}
