package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/configbridge/pkg/errors"
	"github.com/arthur-debert/configbridge/pkg/types"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [item-id...]",
		Short: "Show the link state of configured items",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			items, err := selectItems(cfg, p, args)
			if err != nil {
				return err
			}

			rows, err := eng.Status(items)
			if err != nil {
				return err
			}
			printStatusRows(rows)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [item-id...]",
		Short: "Check that every item is in sync, for scripts and CI",
		Long: `Validate exits non-zero when any item is not in sync, printing one
line per problem. A clean tree prints nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, cfg, eng, err := newSession()
			if err != nil {
				return err
			}
			items, err := selectItems(cfg, p, args)
			if err != nil {
				return err
			}

			rows, ok, err := eng.Validate(items)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			printStatusRows(rows)
			return errors.Newf(errors.ErrConflict, "%d of %d items are not in sync", len(rows), len(items))
		},
	}
}

func printStatusRows(rows []types.ItemStatus) {
	for _, row := range rows {
		mode := string(row.Mode)
		if mode == "" {
			mode = "-"
		}
		line := fmt.Sprintf("%-28s %-10s %s", row.ItemID, mode,
			render(classificationStyle(row.Classification), string(row.Classification)))
		if row.Message != "" {
			line += "  " + render(styleDim, row.Message)
		}
		fmt.Println(line)
	}
}
