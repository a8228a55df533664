package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/configbridge/pkg/config"
	"github.com/arthur-debert/configbridge/pkg/tools"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [tool...]",
		Short: "Create a configbridge.toml for the named tools",
		Long: fmt.Sprintf(`Init writes a fresh configbridge.toml declaring every config file the
named tools keep at well-known locations. Supported tools: %v.
An existing configuration is never overwritten.`, tools.Known()),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathsOnly()
			if err != nil {
				return err
			}
			cfg, err := config.Init(p, args)
			if err != nil {
				return err
			}
			fmt.Printf("wrote %s with %d items\n", p.ProjectConfigPath(), len(cfg.Items))
			return nil
		},
	}
}

func newAdoptCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "adopt <item-id>",
		Short: "Capture an existing system file into the project and link it",
		Long: `Adopt is for config files that already exist at the tool's system
location but not yet under version control: the system file is copied
into the project tree, then linked like any other item.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			item, err := selectOne(cfg, p, args[0])
			if err != nil {
				return err
			}

			result, err := eng.Adopt(item, resolveMode(mode, cfg))
			if err != nil {
				return err
			}
			fmt.Printf("%-28s %s  (%s)\n", item.ID, render(styleOK, "adopted"), result.Mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Link mechanism: symlink, hardlink or copy (default: strongest supported)")
	return cmd
}
