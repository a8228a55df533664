// pkg/config/config_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (t.TempDir) for TOML round-trips
// PURPOSE: Config loading, template materialization and write-back

package config_test

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

func newPaths(t *testing.T) paths.Paths {
	t.Helper()
	root := t.TempDir()
	t.Setenv(paths.EnvDataDir, filepath.Join(root, "data"))
	p, err := paths.New(filepath.Join(root, "project"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(p.ProjectRoot(), 0o755))
	return p
}

func writeConfig(t *testing.T, p paths.Paths, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p.ProjectConfigPath(), []byte(content), 0o644))
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	p := newPaths(t)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Version)
	assert.Empty(t, cfg.Items)
	assert.Empty(t, cfg.Options.DefaultMode)
}

func TestLoadParseError(t *testing.T) {
	p := newPaths(t)
	writeConfig(t, p, "version = [broken")

	_, err := config.Load(p)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestMaterializeFromTemplate(t *testing.T) {
	p := newPaths(t)
	writeConfig(t, p, `
[[items]]
tool = "claude-code"
kind = "settings"
`)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	items, err := cfg.Materialize(p)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "claude-code-settings", items[0].ID)
	assert.Equal(t, filepath.Join(p.ProjectRoot(), "claude-code/settings.json"), items[0].ProjectPath)
	assert.Equal(t, paths.ExpandHome("~/.claude/settings.json"), items[0].SystemPath)
	assert.Equal(t, types.KindSettings, items[0].Kind)
	assert.True(t, items[0].Enabled)
}

func TestMaterializeExplicitPathsOverrideTemplate(t *testing.T) {
	p := newPaths(t)
	writeConfig(t, p, `
[[items]]
id = "my-settings"
tool = "claude-code"
kind = "settings"
system_path = "~/.config/claude/settings.json"
disabled = true
`)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	items, err := cfg.Materialize(p)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "my-settings", items[0].ID)
	assert.Equal(t, paths.ExpandHome("~/.config/claude/settings.json"), items[0].SystemPath)
	assert.False(t, items[0].Enabled)
}

func TestMaterializeRejectsDuplicateIDs(t *testing.T) {
	p := newPaths(t)
	writeConfig(t, p, `
[[items]]
tool = "claude-code"
kind = "settings"

[[items]]
tool = "claude-code"
kind = "settings"
`)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	_, err = cfg.Materialize(p)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestMaterializeRejectsUnknownKind(t *testing.T) {
	p := newPaths(t)
	writeConfig(t, p, `
[[items]]
tool = "claude-code"
kind = "keybindings"
`)

	cfg, err := config.Load(p)
	require.NoError(t, err)
	_, err = cfg.Materialize(p)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigValid))
}

func TestInitWritesTemplates(t *testing.T) {
	p := newPaths(t)

	cfg, err := config.Init(p, []string{"claude-code", "gemini-cli"})
	require.NoError(t, err)
	assert.Len(t, cfg.Items, 6)

	loaded, err := config.Load(p)
	require.NoError(t, err)
	items, err := loaded.Materialize(p)
	require.NoError(t, err)
	assert.Len(t, items, 6)

	// Second init must refuse to clobber.
	_, err = config.Init(p, []string{"claude-code"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestAddItemRejectsDuplicate(t *testing.T) {
	p := newPaths(t)
	_, err := config.Init(p, []string{"gemini-cli"})
	require.NoError(t, err)

	err = config.AddItem(p, config.ItemSpec{Tool: "gemini-cli", Kind: "settings"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	err = config.AddItem(p, config.ItemSpec{
		ID:          "extra",
		Kind:        "mcp-config",
		ProjectPath: "extra/mcp.json",
		SystemPath:  "~/.extra/mcp.json",
	})
	require.NoError(t, err)

	loaded, err := config.Load(p)
	require.NoError(t, err)
	items, err := loaded.Materialize(p)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}
