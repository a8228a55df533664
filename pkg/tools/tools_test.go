// pkg/tools/tools_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None (pure table lookups)
// PURPOSE: Template table consistency and lookup behavior

package tools_test

import (
	"strings"
	"testing"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/tools"
	"github.com/arthur-debert/configbridge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKnownTools(t *testing.T) {
	assert.Equal(t, []string{"claude-code", "gemini-cli"}, tools.Known())
}

func TestLookup(t *testing.T) {
	tpl, ok := tools.Lookup("claude-code", types.KindSettings)
	require.True(t, ok)
	assert.Equal(t, "claude-code-settings", tpl.ID())
	assert.Equal(t, "~/.claude/settings.json", tpl.SystemPath)

	_, ok = tools.Lookup("gemini-cli", types.KindLocalSettings)
	assert.False(t, ok)
}

func TestDefaultsUnknownTool(t *testing.T) {
	_, err := tools.Defaults("cursor")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Contains(t, err.Error(), "claude-code")
}

func TestTemplateTableInvariants(t *testing.T) {
	for _, tool := range tools.Known() {
		defaults, err := tools.Defaults(tool)
		require.NoError(t, err)
		for _, tpl := range defaults {
			assert.True(t, tpl.Kind.IsValid(), "%s has invalid kind", tpl.ID())
			assert.False(t, strings.HasPrefix(tpl.ProjectPath, "/"),
				"%s project path must be relative", tpl.ID())
			assert.True(t, strings.HasPrefix(tpl.SystemPath, "~/"),
				"%s system path must be home-relative", tpl.ID())
		}
	}
}
