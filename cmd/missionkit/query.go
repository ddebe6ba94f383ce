package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"missionkit/internal/store"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the library database from the CLI",
	}
	cmd.AddCommand(queryMissionsCmd())
	cmd.AddCommand(queryListCmd())
	cmd.AddCommand(queryObjectCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}

// withDB opens the configured store for one query.
func withDB(fn func(ctx context.Context, db store.Store) error) error {
	ctx := context.Background()
	db, err := openDB(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	return fn(ctx, db)
}

func queryMissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "missions",
		Short: "List indexed missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db store.Store) error {
				missions, err := db.ListMissions(ctx)
				if err != nil {
					return err
				}
				if len(missions) == 0 {
					fmt.Fprintln(os.Stdout, "No missions indexed.")
					return nil
				}
				for _, m := range missions {
					fmt.Fprintf(os.Stdout, "%s (%d objects) %s\n", m.Path, m.Objects, shortHash(m.Hash))
				}
				return nil
			})
		},
	}
}

func queryListCmd() *cobra.Command {
	var filter store.ObjectFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(func(ctx context.Context, db store.Store) error {
				objects, err := db.ListObjects(ctx, filter)
				if err != nil {
					return err
				}
				if len(objects) == 0 {
					fmt.Fprintln(os.Stdout, "No objects found.")
					return nil
				}
				for _, obj := range objects {
					fmt.Fprintf(os.Stdout, "%s [%d] %s %q\n", obj.MissionPath, obj.Position, obj.Kind, obj.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Kind, "kind", "", "Object kind to filter")
	cmd.Flags().StringVar(&filter.MissionPath, "mission", "", "Mission path to filter")
	cmd.Flags().StringVar(&filter.Name, "name", "", "Object name to filter")
	return cmd
}

func queryObjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "object <mission> <position>",
		Short: "Display an indexed object and its properties",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			return withDB(func(ctx context.Context, db store.Store) error {
				obj, err := db.GetObject(ctx, args[0], position)
				if err != nil {
					return err
				}
				if obj == nil {
					fmt.Fprintf(os.Stdout, "No object at %s [%d].\n", args[0], position)
					return nil
				}

				fmt.Fprintf(os.Stdout, "Mission: %s\n", obj.MissionPath)
				fmt.Fprintf(os.Stdout, "Position: %d\n", obj.Position)
				fmt.Fprintf(os.Stdout, "Kind: %s\n", obj.Kind)
				if obj.Name != "" {
					fmt.Fprintf(os.Stdout, "Name: %s\n", obj.Name)
				}
				if obj.Datafile != "" {
					fmt.Fprintf(os.Stdout, "Datafile: %s\n", obj.Datafile)
				}
				for _, f := range obj.Files {
					fmt.Fprintf(os.Stdout, "File: %s (%d bytes) %s\n", f.Name, f.Size, shortHash(f.Digest))
				}
				fmt.Fprintln(os.Stdout, "")
				printPropertyBlock(os.Stdout, "Properties", obj.Properties)
				printPropertyBlock(os.Stdout, "Datafile properties", obj.DatafileProperties)
				return nil
			})
		},
	}
}

func querySearchCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search indexed objects using the full-text index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withDB(func(ctx context.Context, db store.Store) error {
				results, err := db.Search(ctx, query, kind)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(os.Stdout, "No matches found.")
					return nil
				}
				for _, r := range results {
					fmt.Fprintf(os.Stdout, "%s [%d] %s %q score=%.2f\n", r.MissionPath, r.Position, r.Kind, r.Name, r.Score)
					if r.Snippet != "" {
						fmt.Fprintf(os.Stdout, "    %s\n", r.Snippet)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Object kind to filter")
	return cmd
}

func querySQLCmd() *cobra.Command {
	var paramPairs []string
	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Execute a raw SQL query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			params, err := parseParamPairs(paramPairs)
			if err != nil {
				return err
			}
			return withDB(func(ctx context.Context, db store.Store) error {
				rows, err := db.RunSQL(ctx, query, params)
				if err != nil {
					return err
				}
				payload, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding result: %w", err)
				}
				fmt.Fprintln(os.Stdout, string(payload))
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&paramPairs, "param", nil, "Positional parameter as N=value, starting at 1 (repeatable)")
	return cmd
}

func parseParamPairs(pairs []string) (map[string]any, error) {
	params := make(map[string]any)
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid param %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("invalid param %q: empty key", pair)
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
