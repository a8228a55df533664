// Package tools holds the built-in knowledge of where supported AI CLI
// tools keep their configuration files. Each template pairs a
// conventional project-relative path with the tool's system location,
// so a config file can name just a tool and kind instead of spelling
// both paths out.
package tools

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Template describes one config file a tool keeps at a well-known
// system location. ProjectPath is relative to the project root;
// SystemPath uses a ~ prefix for the home directory.
type Template struct {
	Tool        string
	Kind        types.ItemKind
	ProjectPath string
	SystemPath  string
}

// ID returns the canonical item id for this template.
func (t Template) ID() string {
	return fmt.Sprintf("%s-%s", t.Tool, t.Kind)
}

// The table is closed: adding a tool means adding entries here.
var templates = []Template{
	{
		Tool:        "claude-code",
		Kind:        types.KindSettings,
		ProjectPath: "claude-code/settings.json",
		SystemPath:  "~/.claude/settings.json",
	},
	{
		Tool:        "claude-code",
		Kind:        types.KindLocalSettings,
		ProjectPath: "claude-code/settings.local.json",
		SystemPath:  "~/.claude/settings.local.json",
	},
	{
		Tool:        "claude-code",
		Kind:        types.KindContextFile,
		ProjectPath: "claude-code/CLAUDE.md",
		SystemPath:  "~/.claude/CLAUDE.md",
	},
	{
		Tool:        "claude-code",
		Kind:        types.KindMCPConfig,
		ProjectPath: "claude-code/mcp.json",
		SystemPath:  "~/.claude/mcp.json",
	},
	{
		Tool:        "gemini-cli",
		Kind:        types.KindSettings,
		ProjectPath: "gemini-cli/settings.json",
		SystemPath:  "~/.gemini/settings.json",
	},
	{
		Tool:        "gemini-cli",
		Kind:        types.KindContextFile,
		ProjectPath: "gemini-cli/GEMINI.md",
		SystemPath:  "~/.gemini/GEMINI.md",
	},
}

// Known returns the supported tool names, sorted.
func Known() []string {
	seen := make(map[string]bool)
	var names []string
	for _, tpl := range templates {
		if !seen[tpl.Tool] {
			seen[tpl.Tool] = true
			names = append(names, tpl.Tool)
		}
	}
	sort.Strings(names)
	return names
}

// Lookup finds the template for a tool/kind pair.
func Lookup(tool string, kind types.ItemKind) (Template, bool) {
	for _, tpl := range templates {
		if tpl.Tool == tool && tpl.Kind == kind {
			return tpl, true
		}
	}
	return Template{}, false
}

// Defaults returns every template a tool ships, in table order. Unknown
// tools fail with NOT_FOUND naming the supported set.
func Defaults(tool string) ([]Template, error) {
	var matched []Template
	for _, tpl := range templates {
		if tpl.Tool == tool {
			matched = append(matched, tpl)
		}
	}
	if len(matched) == 0 {
		return nil, errors.Newf(errors.ErrNotFound,
			"unknown tool %q (supported: %v)", tool, Known())
	}
	return matched, nil
}
