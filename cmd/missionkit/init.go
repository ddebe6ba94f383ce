package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"missionkit/internal/config"
)

func initCmd() *cobra.Command {
	var libraryPaths []string
	var dsn string
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default missionkit.yaml",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(libraryPaths, dsn)
		},
	}
	cmd.Flags().StringSliceVar(&libraryPaths, "library", nil, "Directory to index (repeatable)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Database DSN (sqlite:// or postgres://)")
	return cmd
}

func runInit(libraryPaths []string, dsn string) error {
	out := config.Default()
	if len(libraryPaths) > 0 {
		out.Library.Paths = libraryPaths
	}
	if dsn != "" {
		out.Database.DSN = dsn
	}
	if err := config.Write(configPath, out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s.\n", configPath)
	return nil
}
