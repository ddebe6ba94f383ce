package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"missionkit/internal/mission"
)

type objectView struct {
	Index              int            `yaml:"index" json:"index"`
	Kind               string         `yaml:"kind" json:"kind"`
	Name               string         `yaml:"name,omitempty" json:"name,omitempty"`
	Datafile           string         `yaml:"datafile,omitempty" json:"datafile,omitempty"`
	Properties         map[string]any `yaml:"properties" json:"properties"`
	DatafileProperties map[string]any `yaml:"datafile_properties,omitempty" json:"datafile_properties,omitempty"`
	Files              []string       `yaml:"files,omitempty" json:"files,omitempty"`
}

type missionView struct {
	Path       string         `yaml:"path" json:"path"`
	Properties map[string]any `yaml:"properties" json:"properties"`
	Objects    []objectView   `yaml:"objects" json:"objects"`
	Leftovers  []string       `yaml:"leftovers,omitempty" json:"leftovers,omitempty"`
}

func inspectCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show the objects and properties of a mission archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0], format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, yaml, or json")
	return cmd
}

func runInspect(path, format string) error {
	m, err := loadMission(path)
	if err != nil {
		return err
	}
	view := viewMission(path, m)

	switch format {
	case "text":
		printMission(os.Stdout, view)
		return nil
	case "yaml":
		payload, err := yaml.Marshal(view)
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		_, err = os.Stdout.Write(payload)
		return err
	case "json":
		payload, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(payload))
		return nil
	default:
		return fmt.Errorf("unknown format %q: expected text, yaml, or json", format)
	}
}

func viewMission(path string, m *mission.Mission) missionView {
	view := missionView{
		Path:       path,
		Properties: m.Container.Properties().Map(),
		Objects:    make([]objectView, 0, len(m.Objects)),
		Leftovers:  m.Container.Files(),
	}
	for i, obj := range m.Objects {
		ov := objectView{
			Index:      i,
			Kind:       obj.Kind().String(),
			Properties: obj.Properties().Map(),
			Files:      obj.Files(),
		}
		if obj.HasName() {
			ov.Name = obj.Name()
		}
		if name, ok := obj.DatafileName(); ok {
			ov.Datafile = name
			ov.DatafileProperties = obj.Datafile().Map()
		}
		view.Objects = append(view.Objects, ov)
	}
	return view
}

func printMission(out io.Writer, view missionView) {
	fmt.Fprintf(out, "%s: %d objects, %d leftover files\n\n", view.Path, len(view.Objects), len(view.Leftovers))
	printPropertyBlock(out, "Mission properties", view.Properties)

	for _, obj := range view.Objects {
		label := obj.Kind
		if obj.Name != "" {
			label = fmt.Sprintf("%s %q", obj.Kind, obj.Name)
		}
		fmt.Fprintf(out, "[%d] %s\n", obj.Index, label)
		if obj.Datafile != "" {
			fmt.Fprintf(out, "  Datafile: %s\n", obj.Datafile)
		}
		if len(obj.Files) > 0 {
			fmt.Fprintf(out, "  Files: %s\n", strings.Join(obj.Files, ", "))
		}
		printPropertyBlock(out, "  Properties", obj.Properties)
		printPropertyBlock(out, "  Datafile properties", obj.DatafileProperties)
	}

	if len(view.Leftovers) > 0 {
		fmt.Fprintf(out, "Leftover files: %s\n", strings.Join(view.Leftovers, ", "))
	}
}

func printPropertyBlock(out io.Writer, title string, props map[string]any) {
	if len(props) == 0 {
		return
	}
	indent := title[:len(title)-len(strings.TrimLeft(title, " "))]
	fmt.Fprintf(out, "%s:\n", title)
	for _, key := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(out, "%s  %s: %v\n", indent, key, props[key])
	}
	fmt.Fprintln(out, "")
}
