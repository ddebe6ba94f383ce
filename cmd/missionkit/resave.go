package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"missionkit/internal/archive"
	"missionkit/internal/editor"
)

func resaveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "resave <archive>",
		Short: "Load a mission archive and write it back out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResave(args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this path instead of replacing the archive")
	return cmd
}

func runResave(path, output string) error {
	ctrl, err := openEditor(path)
	if err != nil {
		return err
	}
	written, err := saveTo(ctrl, path, output)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s.\n", written)
	return nil
}

// saveTo dispatches a save and writes the bytes to output, or back over
// path when output is empty.
func saveTo(ctrl *editor.Controller, path, output string) (string, error) {
	if output == "" {
		output = path
	}
	if err := ctrl.Dispatch(editor.Save{}); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	data, _ := ctrl.Saved()
	if err := archive.WriteFile(output, data); err != nil {
		return "", err
	}
	logger.Info("mission written", zap.String("path", output), zap.Int("bytes", len(data)))
	return output, nil
}
