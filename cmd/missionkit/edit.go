package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"missionkit/internal/editor"
	"missionkit/internal/property"
	"missionkit/internal/validate"
)

type editFlags struct {
	set            []string
	datafile       []string
	remove         []string
	removeDatafile []string
	removeObject   []string
	output         string
	dryRun         bool
}

func editCmd() *cobra.Command {
	var flags editFlags
	cmd := &cobra.Command{
		Use:   "edit <archive>",
		Short: "Apply property edits to a mission archive",
		Long: `Apply property edits to a mission archive.

Objects are addressed by their position as listed by inspect, or by
"mission" for the mission's own properties:

  missionkit edit hall.playmission --set 0:Name=Shelf --set mission:Title="The Library"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(args[0], flags)
		},
	}
	cmd.Flags().StringArrayVar(&flags.set, "set", nil, "Set a descriptor property as target:key=value (repeatable)")
	cmd.Flags().StringArrayVar(&flags.datafile, "datafile", nil, "Set a datafile key as target:key=value (repeatable)")
	cmd.Flags().StringArrayVar(&flags.remove, "remove", nil, "Remove a descriptor property as target:key (repeatable)")
	cmd.Flags().StringArrayVar(&flags.removeDatafile, "remove-datafile", nil, "Remove a datafile key as target:key (repeatable)")
	cmd.Flags().StringArrayVar(&flags.removeObject, "remove-object", nil, "Remove an object by position (repeatable)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Write to this path instead of replacing the archive")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Apply and validate the edits without writing")
	return cmd
}

func runEdit(path string, flags editFlags) error {
	ctrl, err := openEditor(path)
	if err != nil {
		return err
	}
	events, err := buildEdits(ctrl.Objects(), flags)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("no edits given")
	}

	for _, ev := range events {
		if err := ctrl.Dispatch(ev); err != nil {
			return fmt.Errorf("%s: %w", describeEvent(ev), err)
		}
		fmt.Fprintln(os.Stdout, describeResult(ctrl, ev))
	}

	report, err := validate.Run(ctrl.Mission())
	if err != nil {
		return err
	}
	if report.HasErrors() {
		printReport(os.Stdout, report)
		return fmt.Errorf("edits leave the mission invalid")
	}

	if flags.dryRun {
		return nil
	}
	written, err := saveTo(ctrl, path, flags.output)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Wrote %s.\n", written)
	return nil
}

// buildEdits resolves every flag against the loaded objects before any
// event runs, so positions refer to the archive as it was loaded.
func buildEdits(objects []editor.Summary, flags editFlags) ([]editor.Event, error) {
	var events []editor.Event
	for _, raw := range flags.set {
		id, key, value, err := parseAssignment(objects, raw)
		if err != nil {
			return nil, err
		}
		events = append(events, editor.UpdateProperty{ID: id, Key: key, Value: value})
	}
	for _, raw := range flags.datafile {
		id, key, value, err := parseAssignment(objects, raw)
		if err != nil {
			return nil, err
		}
		events = append(events, editor.UpdateDatafile{ID: id, Key: key, Value: value})
	}
	for _, raw := range flags.remove {
		id, key, err := parseRemoval(objects, raw)
		if err != nil {
			return nil, err
		}
		events = append(events, editor.RemoveProperty{ID: id, Key: key})
	}
	for _, raw := range flags.removeDatafile {
		id, key, err := parseRemoval(objects, raw)
		if err != nil {
			return nil, err
		}
		events = append(events, editor.RemoveDatafile{ID: id, Key: key})
	}
	for _, raw := range flags.removeObject {
		id, err := resolveTarget(objects, raw)
		if err != nil {
			return nil, err
		}
		if id == uuid.Nil {
			return nil, fmt.Errorf("invalid --remove-object %q: the mission itself cannot be removed", raw)
		}
		events = append(events, editor.RemoveObject{ID: id})
	}
	return events, nil
}

func parseAssignment(objects []editor.Summary, raw string) (uuid.UUID, string, string, error) {
	target, rest, ok := strings.Cut(raw, ":")
	if !ok {
		return uuid.Nil, "", "", fmt.Errorf("invalid edit %q: expected target:key=value", raw)
	}
	key, value, ok := strings.Cut(rest, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return uuid.Nil, "", "", fmt.Errorf("invalid edit %q: expected target:key=value", raw)
	}
	id, err := resolveTarget(objects, target)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	return id, key, value, nil
}

func parseRemoval(objects []editor.Summary, raw string) (uuid.UUID, string, error) {
	target, key, ok := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return uuid.Nil, "", fmt.Errorf("invalid removal %q: expected target:key", raw)
	}
	id, err := resolveTarget(objects, target)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, key, nil
}

// resolveTarget maps "mission" to the container and a position to the
// object listed there.
func resolveTarget(objects []editor.Summary, target string) (uuid.UUID, error) {
	target = strings.TrimSpace(target)
	if target == validate.ContainerObject {
		return uuid.Nil, nil
	}
	pos, err := strconv.Atoi(target)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid target %q: expected a position or %q", target, validate.ContainerObject)
	}
	if pos < 0 || pos >= len(objects) {
		return uuid.Nil, fmt.Errorf("invalid target %d: mission has %d objects", pos, len(objects))
	}
	return objects[pos].ID, nil
}

func describeEvent(ev editor.Event) string {
	switch ev := ev.(type) {
	case editor.UpdateProperty:
		return fmt.Sprintf("set %s %s = %s", targetLabel(ev.ID), ev.Key, ev.Value)
	case editor.UpdateDatafile:
		return fmt.Sprintf("set %s datafile %s = %s", targetLabel(ev.ID), ev.Key, ev.Value)
	case editor.RemoveProperty:
		return fmt.Sprintf("remove %s %s", targetLabel(ev.ID), ev.Key)
	case editor.RemoveDatafile:
		return fmt.Sprintf("remove %s datafile %s", targetLabel(ev.ID), ev.Key)
	case editor.RemoveObject:
		return fmt.Sprintf("remove object %s", ev.ID)
	default:
		return fmt.Sprintf("%T", ev)
	}
}

// describeResult reports an applied edit, reading set values back so the
// output shows the type they were stored with.
func describeResult(ctrl *editor.Controller, ev editor.Event) string {
	var (
		props *property.Properties
		err   error
		key   string
		label string
	)
	switch ev := ev.(type) {
	case editor.UpdateProperty:
		props, err = ctrl.Properties(ev.ID)
		key, label = ev.Key, targetLabel(ev.ID)
	case editor.UpdateDatafile:
		props, err = ctrl.Datafile(ev.ID)
		key, label = ev.Key, targetLabel(ev.ID)+" datafile"
	default:
		return describeEvent(ev)
	}
	if err != nil {
		return describeEvent(ev)
	}
	p, ok := props.Get(key)
	if !ok {
		return describeEvent(ev)
	}
	return fmt.Sprintf("set %s %s", label, describeProperty(key, p))
}

func targetLabel(id uuid.UUID) string {
	if id == uuid.Nil {
		return validate.ContainerObject
	}
	return id.String()
}

// describeProperty renders one property the way a datafile line would read,
// with its type and any flags.
func describeProperty(key string, p property.Property) string {
	if flags, ok := p.Flags.Get(); ok {
		return fmt.Sprintf("%s = %s (%s, %s)", key, p.Value, p.Value.Type(), flags)
	}
	return fmt.Sprintf("%s = %s (%s)", key, p.Value, p.Value.Type())
}
