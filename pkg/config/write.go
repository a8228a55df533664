package config

import (
	"bytes"
	"os"
	"path/filepath"

	tomlv2 "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/paths"
	"github.com/arthur-debert/configbridge/pkg/tools"
)

// Save writes the configuration to the project's configbridge.toml.
func Save(p paths.Paths, cfg *Config) error {
	var buf bytes.Buffer
	enc := tomlv2.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "cannot encode configuration")
	}

	path := p.ProjectConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot create %s", filepath.Dir(path)).WithPath(path)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "cannot write %s", path).WithPath(path)
	}
	return nil
}

// Init creates a fresh configbridge.toml declaring every template the
// named tools ship. An existing config file is never overwritten.
func Init(p paths.Paths, toolNames []string) (*Config, error) {
	path := p.ProjectConfigPath()
	if _, err := os.Stat(path); err == nil {
		return nil, errors.Newf(errors.ErrInvalidInput, "%s already exists", path).WithPath(path)
	}

	cfg := &Config{Version: 1}
	for _, tool := range toolNames {
		defaults, err := tools.Defaults(tool)
		if err != nil {
			return nil, err
		}
		for _, tpl := range defaults {
			cfg.Items = append(cfg.Items, ItemSpec{Tool: tpl.Tool, Kind: string(tpl.Kind)})
		}
	}

	if err := Save(p, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AddItem appends a spec to the config file, rejecting duplicate ids.
func AddItem(p paths.Paths, spec ItemSpec) error {
	cfg, err := Load(p)
	if err != nil {
		return err
	}

	items, err := cfg.Materialize(p)
	if err != nil {
		return err
	}
	candidate, err := materializeOne(spec, p)
	if err != nil {
		return err
	}
	for _, item := range items {
		if item.ID == candidate.ID {
			return errors.Newf(errors.ErrInvalidInput, "item %q already declared", item.ID)
		}
	}

	cfg.Items = append(cfg.Items, spec)
	return Save(p, cfg)
}
