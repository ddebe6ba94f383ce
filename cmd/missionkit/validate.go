package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"missionkit/internal/validate"
)

func validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <archive>...",
		Short: "Check mission archives for broken references and naming problems",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(args, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print reports as JSON")
	return cmd
}

func runValidate(paths []string, asJSON bool) error {
	reports := make(map[string]*validate.Report, len(paths))
	failed := false
	for _, path := range paths {
		m, err := loadMission(path)
		if err != nil {
			return err
		}
		report, err := validate.Run(m)
		if err != nil {
			return err
		}
		reports[path] = report
		failed = failed || report.HasErrors()
	}

	if asJSON {
		payload, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(payload))
	} else {
		for i, path := range paths {
			if len(paths) > 1 {
				if i > 0 {
					fmt.Fprintln(os.Stdout, "")
				}
				fmt.Fprintf(os.Stdout, "%s:\n", path)
			}
			printReport(os.Stdout, reports[path])
		}
	}

	if failed {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printReport(out io.Writer, report *validate.Report) {
	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Object
		if issue.Name != "" {
			location = fmt.Sprintf("%s %q", issue.Kind, issue.Name)
		} else if issue.Kind != "" {
			location = fmt.Sprintf("%s %s", issue.Kind, issue.Object)
		}
		if issue.File != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.File)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
