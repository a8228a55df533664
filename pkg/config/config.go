// Package config loads and writes the project's configbridge.toml. The
// file declares which config files are managed, either by naming a
// known tool template or by spelling out both paths. Loading layers
// embedded defaults under the project file with koanf.
package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/paths"
	"github.com/arthur-debert/configbridge/pkg/tools"
	"github.com/arthur-debert/configbridge/pkg/types"
)

// Options are project-wide settings.
type Options struct {
	// DefaultMode, when set, replaces the platform-derived default for
	// every item that does not pin its own mode.
	DefaultMode string `koanf:"default_mode" toml:"default_mode"`
}

// ItemSpec is one [[items]] entry as written by the user. Either Tool
// and Kind reference a built-in template, or ProjectPath and SystemPath
// are given explicitly (Kind still required). Explicit paths win over
// template values.
type ItemSpec struct {
	ID          string `koanf:"id" toml:"id,omitempty"`
	Tool        string `koanf:"tool" toml:"tool,omitempty"`
	Kind        string `koanf:"kind" toml:"kind"`
	ProjectPath string `koanf:"project_path" toml:"project_path,omitempty"`
	SystemPath  string `koanf:"system_path" toml:"system_path,omitempty"`
	Disabled    bool   `koanf:"disabled" toml:"disabled,omitempty"`
}

// Config is the parsed project configuration.
type Config struct {
	Version int        `koanf:"version" toml:"version"`
	Options Options    `koanf:"options" toml:"options"`
	Items   []ItemSpec `koanf:"items" toml:"items"`
}

// Load reads the project's configbridge.toml layered over the embedded
// defaults. A missing project file yields just the defaults, which is
// valid (zero items).
func Load(p paths.Paths) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to load embedded defaults")
	}

	path := p.ProjectConfigPath()
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse %s", path).WithPath(path)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "invalid structure in %s", path).WithPath(path)
	}
	return &cfg, nil
}

// Materialize turns the declared specs into validated managed items.
// Template fields are filled in from the tool table, relative project
// paths anchor at the project root, and ~ expands to the home
// directory. Duplicate ids are rejected.
func (c *Config) Materialize(p paths.Paths) ([]types.ManagedItem, error) {
	seen := make(map[string]bool)
	items := make([]types.ManagedItem, 0, len(c.Items))

	for i, spec := range c.Items {
		item, err := materializeOne(spec, p)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigValid, "items[%d]", i)
		}
		if seen[item.ID] {
			return nil, errors.Newf(errors.ErrConfigValid, "duplicate item id %q", item.ID)
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	return items, nil
}

func materializeOne(spec ItemSpec, p paths.Paths) (types.ManagedItem, error) {
	kind := types.ItemKind(spec.Kind)
	if !kind.IsValid() {
		return types.ManagedItem{}, errors.Newf(errors.ErrConfigValid, "unknown kind %q", spec.Kind)
	}

	projectPath := spec.ProjectPath
	systemPath := spec.SystemPath
	id := spec.ID

	if spec.Tool != "" {
		tpl, ok := tools.Lookup(spec.Tool, kind)
		if !ok {
			return types.ManagedItem{}, errors.Newf(errors.ErrConfigValid,
				"tool %q has no %s template", spec.Tool, kind)
		}
		if projectPath == "" {
			projectPath = tpl.ProjectPath
		}
		if systemPath == "" {
			systemPath = tpl.SystemPath
		}
		if id == "" {
			id = tpl.ID()
		}
	}

	if id == "" || projectPath == "" || systemPath == "" {
		return types.ManagedItem{}, errors.New(errors.ErrConfigValid,
			"needs either a tool reference or id, project_path and system_path")
	}

	if !filepath.IsAbs(projectPath) {
		projectPath = filepath.Join(p.ProjectRoot(), projectPath)
	}
	systemPath = paths.ExpandHome(systemPath)

	item := types.ManagedItem{
		ID:          id,
		ProjectPath: projectPath,
		SystemPath:  systemPath,
		Kind:        kind,
		Enabled:     !spec.Disabled,
	}
	if err := item.Validate(); err != nil {
		return types.ManagedItem{}, err
	}
	return item, nil
}
