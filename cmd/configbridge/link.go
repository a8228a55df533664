package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/configbridge/pkg/engine"
	"github.com/arthur-debert/configbridge/pkg/errors"
)

func newLinkCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "link [item-id...]",
		Short: "Link configured items to their system locations",
		Long: `Link establishes each item's system-side entry, pointing at or
mirroring the project file. Existing system files are backed up before
being replaced. With no arguments every enabled item is linked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			items, err := selectItems(cfg, p, args)
			if err != nil {
				return err
			}

			results, err := eng.LinkAll(items, resolveMode(mode, cfg))
			printBatch(results)
			if err != nil {
				return err
			}
			return batchError(results, "link")
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Link mechanism: symlink, hardlink or copy (default: strongest supported)")
	return cmd
}

func printBatch(results []engine.BatchResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("%-28s %s  %v\n", r.ItemID, render(styleBad, "failed"), r.Err)
		case r.Result != nil && r.Result.FellBack:
			fmt.Printf("%-28s %s  (fell back to %s)\n", r.ItemID, render(styleWarn, "ok"), r.Result.Mode)
		case r.Result != nil:
			fmt.Printf("%-28s %s  (%s)\n", r.ItemID, render(styleOK, "ok"), r.Result.Mode)
		default:
			fmt.Printf("%-28s %s\n", r.ItemID, render(styleOK, "ok"))
		}
	}
}

func batchError(results []engine.BatchResult, verb string) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return errors.Newf(errors.ErrLinkFailed, "%d of %d items failed to %s", failed, len(results), verb)
	}
	return nil
}
