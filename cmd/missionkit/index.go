package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"missionkit/internal/index"
)

var indexFull bool

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Synchronise the library database with the archives on disk",
		Args:  cobra.NoArgs,
		RunE:  runIndex,
	}
	cmd.Flags().BoolVar(&indexFull, "full", false, "Reindex every archive, ignoring stored hashes")
	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := openDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	result, err := index.Run(ctx, cfg, db, index.Options{Full: indexFull, Logger: logger})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "Indexing complete.")
	fmt.Fprintf(os.Stdout, "  Missions upserted: %d\n", result.MissionsUpserted)
	fmt.Fprintf(os.Stdout, "  Objects indexed:   %d\n", result.ObjectsIndexed)
	fmt.Fprintf(os.Stdout, "  Missions removed:  %d\n", result.MissionsRemoved)
	fmt.Fprintf(os.Stdout, "  Files skipped:     %d\n", result.FilesSkipped)

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("indexing completed with errors")
	}

	return nil
}
