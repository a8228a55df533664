package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/configbridge/internal/version"
	"github.com/arthur-debert/configbridge/pkg/config"
	"github.com/arthur-debert/configbridge/pkg/engine"
	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/filesystem"
	"github.com/arthur-debert/configbridge/pkg/logging"
	"github.com/arthur-debert/configbridge/pkg/paths"
	"github.com/arthur-debert/configbridge/pkg/types"
)

var (
	verbosity   int
	projectRoot string

	rootCmd = &cobra.Command{
		Use:   "configbridge",
		Short: "Keep AI CLI tool configs under version control",
		Long: `configbridge links the config files of AI CLI tools (Claude Code,
Gemini CLI and friends) between a version-controlled project directory
and the scattered locations where each tool expects them, using
symlinks, hardlinks or copies depending on what the platform supports.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&projectRoot, "project-root", "", "Project directory (default: $CONFIGBRIDGE_PROJECT_ROOT, the enclosing git repo, or the cwd)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newLinkCmd())
	rootCmd.AddCommand(newUnlinkCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newRepairCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newAdoptCmd())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("configbridge version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

// pathsOnly resolves the path layout for commands that run before a
// configuration exists.
func pathsOnly() (paths.Paths, error) {
	return paths.New(projectRoot)
}

// newSession wires up the paths, config and engine for one command
// invocation.
func newSession() (paths.Paths, *config.Config, *engine.Engine, error) {
	p, err := paths.New(projectRoot)
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(p)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, cfg, engine.New(filesystem.NewOS(), p), nil
}

// selectItems materializes the configured items, narrowed to the given
// ids when any were passed. Unknown ids fail rather than silently
// matching nothing.
func selectItems(cfg *config.Config, p paths.Paths, ids []string) ([]types.ManagedItem, error) {
	items, err := cfg.Materialize(p)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.Newf(errors.ErrNotFound,
			"no items declared in %s; run configbridge init first", p.ProjectConfigPath())
	}
	if len(ids) == 0 {
		return items, nil
	}

	byID := make(map[string]types.ManagedItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	selected := make([]types.ManagedItem, 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			return nil, errors.Newf(errors.ErrNotFound, "no item %q in the configuration", id)
		}
		selected = append(selected, item)
	}
	return selected, nil
}

// selectOne is selectItems for commands that take exactly one id.
func selectOne(cfg *config.Config, p paths.Paths, id string) (types.ManagedItem, error) {
	items, err := selectItems(cfg, p, []string{id})
	if err != nil {
		return types.ManagedItem{}, err
	}
	return items[0], nil
}

// resolveMode combines the --mode flag with the config's default.
func resolveMode(flagValue string, cfg *config.Config) types.LinkMode {
	if flagValue != "" {
		return types.LinkMode(flagValue)
	}
	return types.LinkMode(cfg.Options.DefaultMode)
}
