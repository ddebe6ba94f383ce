package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"missionkit/internal/mcp"
)

func serveCmd() *cobra.Command {
	var output string
	var library bool
	cmd := &cobra.Command{
		Use:   "serve <archive>",
		Short: "Open an archive for editing and serve it over MCP on stdio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(args[0], output, library)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save to this path instead of replacing the archive")
	cmd.Flags().BoolVar(&library, "library", false, "Expose the library database through search tools")
	return cmd
}

func runServe(path, output string, library bool) error {
	ctx := context.Background()

	ctrl, err := openEditor(path)
	if err != nil {
		return err
	}
	if output == "" {
		output = path
	}
	opts := mcp.Options{
		Version:  version,
		SavePath: output,
		Logger:   logger,
	}

	if library {
		db, err := openDB(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close(ctx)
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		opts.Library = db
	}

	logger.Info("serving mission", zap.String("path", path), zap.Bool("library", library))
	server := mcp.NewServer(ctrl, opts)
	return server.Run(ctx, &sdk.StdioTransport{})
}
