package main

import (
	"github.com/spf13/cobra"
)

func newUnlinkCmd() *cobra.Command {
	var restore bool

	cmd := &cobra.Command{
		Use:   "unlink [item-id...]",
		Short: "Remove system-side links for configured items",
		Long: `Unlink removes each item's system-side entry and forgets its link
state. The project file is never touched. With --restore, whatever was
at the system location before linking is put back from backup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			items, err := selectItems(cfg, p, args)
			if err != nil {
				return err
			}

			results, err := eng.UnlinkAll(items, restore)
			printBatch(results)
			if err != nil {
				return err
			}
			return batchError(results, "unlink")
		},
	}

	cmd.Flags().BoolVar(&restore, "restore", false, "Restore the pre-link original from backup")
	return cmd
}
