package editor

import (
	"slices"
	"strings"
)

type action int

const (
	actionNone action = iota
	actionUndo
	actionRedo
)

// Bindings maps key chords to history actions.
type Bindings struct {
	Undo []string
	Redo []string
}

func DefaultBindings() Bindings {
	return Bindings{
		Undo: []string{"ctrl+z"},
		Redo: []string{"ctrl+shift+z", "ctrl+y"},
	}
}

func (b Bindings) action(chord string) action {
	chord = NormalizeChord(chord)
	switch {
	case chord == "":
		return actionNone
	case slices.ContainsFunc(b.Undo, func(c string) bool { return NormalizeChord(c) == chord }):
		return actionUndo
	case slices.ContainsFunc(b.Redo, func(c string) bool { return NormalizeChord(c) == chord }):
		return actionRedo
	default:
		return actionNone
	}
}

var modifierOrder = []string{"ctrl", "alt", "shift", "meta"}

var modifierAliases = map[string]string{
	"control": "ctrl",
	"cmd":     "meta",
	"super":   "meta",
	"option":  "alt",
}

// NormalizeChord lowercases a chord and puts its modifiers in a fixed order,
// so "Shift+Ctrl+Z" and "ctrl+shift+z" compare equal.
func NormalizeChord(chord string) string {
	var mods []string
	var key string
	for part := range strings.SplitSeq(chord, "+") {
		part = strings.ToLower(strings.TrimSpace(part))
		if alias, ok := modifierAliases[part]; ok {
			part = alias
		}
		switch {
		case part == "":
		case slices.Contains(modifierOrder, part):
			if !slices.Contains(mods, part) {
				mods = append(mods, part)
			}
		default:
			key = part
		}
	}
	if key == "" {
		return ""
	}
	slices.SortFunc(mods, func(a, b string) int {
		return slices.Index(modifierOrder, a) - slices.Index(modifierOrder, b)
	})
	return strings.Join(append(mods, key), "+")
}
