package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/types"
)

func newSyncCmd() *cobra.Command {
	var fromProject, fromSystem bool

	cmd := &cobra.Command{
		Use:   "sync <item-id>",
		Short: "Copy content between the project and system sides",
		Long: `Sync copies an item's content across, in the direction of drift when
only one side changed. When both sides changed, an explicit
--from-project or --from-system is required; sync never picks a side
for you.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromProject && fromSystem {
				return errors.New(errors.ErrInvalidInput, "--from-project and --from-system are mutually exclusive")
			}

			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			item, err := selectOne(cfg, p, args[0])
			if err != nil {
				return err
			}

			direction := types.DirectionNone
			if fromProject {
				direction = types.DirectionProjectToSystem
			}
			if fromSystem {
				direction = types.DirectionSystemToProject
			}

			if err := eng.Sync(item, direction); err != nil {
				return err
			}
			fmt.Printf("%-28s %s\n", item.ID, render(styleOK, "synced"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fromProject, "from-project", false, "Push the project file to the system location")
	cmd.Flags().BoolVar(&fromSystem, "from-system", false, "Pull the system file into the project")
	return cmd
}

func newRepairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repair <item-id>",
		Short: "Fix a broken or drifted item",
		Long: `Repair re-establishes the link for one item, first recovering content
from whichever side still has it. Items changed on both sides are
refused; resolve those with an explicit sync direction.`,
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

			result, err := eng.Repair(item)
			if err != nil {
				return err
			}
			fmt.Printf("%-28s %s  (%s)\n", item.ID, render(styleOK, "repaired"), result.Mode)
			return nil
		},
	}
}
