package editor

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/google/uuid"

	"missionkit/internal/archive"
	"missionkit/internal/mission"
	"missionkit/internal/missiontest"
	"missionkit/internal/pipeline"
	"missionkit/internal/property"
)

func loadController(t *testing.T, opts Options) *Controller {
	t.Helper()
	c, err := Load(missiontest.Archive(t), opts)
	if err != nil {
		t.Fatalf("loading mission: %v", err)
	}
	return c
}

func mustDispatch(t *testing.T, c *Controller, ev Event) {
	t.Helper()
	if err := c.Dispatch(ev); err != nil {
		t.Fatalf("dispatching %T: %v", ev, err)
	}
}

func samePropertySet(a, b *property.Properties) bool {
	return a.Equal(b) && slices.Equal(a.Keys(), b.Keys())
}

func TestObjects(t *testing.T) {
	c := loadController(t, Options{})

	var names []string
	for _, s := range c.Objects() {
		names = append(names, s.Name)
	}
	want := []string{"Bookcase", "Barrier Bars", "Open Doors", "{unnamed object}"}
	if !slices.Equal(names, want) {
		t.Fatalf("expected names %v, got %v", want, names)
	}
}

func TestUpdatePropertyUndoRedo(t *testing.T) {
	c := loadController(t, Options{})
	bookcase := c.Objects()[0].ID

	before, err := c.Properties(bookcase)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	mustDispatch(t, c, UpdateProperty{ID: bookcase, Key: "Name", Value: "Shelf"})
	after, _ := c.Properties(bookcase)
	prop, _ := after.Get("Name")
	if prop.Value != property.String("Shelf") {
		t.Fatalf("expected Name Shelf, got %v", prop.Value)
	}
	if flags, _ := prop.Flags.Get(); flags != "READONLY | HIDDEN" {
		t.Fatalf("expected flags to survive the update, got %q", flags)
	}
	if c.UndoLen() != 1 || c.RedoLen() != 0 {
		t.Fatalf("expected 1 undo and 0 redo, got %d and %d", c.UndoLen(), c.RedoLen())
	}

	mustDispatch(t, c, Undo{})
	restored, _ := c.Properties(bookcase)
	if !samePropertySet(before, restored) {
		t.Fatalf("expected undo to restore %v, got %v", before.Keys(), restored.Keys())
	}
	if c.UndoLen() != 0 || c.RedoLen() != 1 {
		t.Fatalf("expected 0 undo and 1 redo, got %d and %d", c.UndoLen(), c.RedoLen())
	}

	mustDispatch(t, c, Redo{})
	redone, _ := c.Properties(bookcase)
	if !samePropertySet(after, redone) {
		t.Fatalf("expected redo to reapply the update")
	}
	if c.UndoLen() != 1 || c.RedoLen() != 0 {
		t.Fatalf("expected 1 undo and 0 redo, got %d and %d", c.UndoLen(), c.RedoLen())
	}
}

func TestInsertedPropertyUndo(t *testing.T) {
	c := loadController(t, Options{})
	rule := c.Objects()[2].ID

	mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Delay", Value: "3"})
	props, _ := c.Properties(rule)
	if v, _ := props.Value("Delay"); v != property.String("3") {
		t.Fatalf("expected new key stored as string, got %v", v)
	}

	mustDispatch(t, c, Undo{})
	props, _ = c.Properties(rule)
	if props.Has("Delay") {
		t.Fatal("expected undo to remove the inserted key")
	}
}

func TestRemovePropertyUndoKeepsOrder(t *testing.T) {
	c := loadController(t, Options{})
	bookcase := c.Objects()[0].ID
	before, _ := c.Properties(bookcase)

	mustDispatch(t, c, RemoveProperty{ID: bookcase, Key: before.Keys()[0]})
	mustDispatch(t, c, Undo{})

	after, _ := c.Properties(bookcase)
	if !samePropertySet(before, after) {
		t.Fatalf("expected key order %v, got %v", before.Keys(), after.Keys())
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	c := loadController(t, Options{})
	rule := c.Objects()[2].ID

	mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Name", Value: "A"})
	mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Name", Value: "B"})
	mustDispatch(t, c, Undo{})
	mustDispatch(t, c, Undo{})
	if c.RedoLen() != 2 {
		t.Fatalf("expected 2 redo entries, got %d", c.RedoLen())
	}

	mustDispatch(t, c, Redo{})
	if c.RedoLen() != 1 || c.UndoLen() != 1 {
		t.Fatalf("expected history moves to keep both stacks, got %d undo %d redo", c.UndoLen(), c.RedoLen())
	}

	mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Name", Value: "C"})
	if c.RedoLen() != 0 {
		t.Fatalf("expected a new edit to clear redo, got %d", c.RedoLen())
	}
	if c.UndoLen() != 2 {
		t.Fatalf("expected 2 undo entries, got %d", c.UndoLen())
	}
}

func TestHistoryCapacity(t *testing.T) {
	c := loadController(t, Options{HistoryCapacity: 3})
	rule := c.Objects()[2].ID

	for _, v := range []string{"a", "b", "c", "d", "e"} {
		mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Name", Value: v})
	}
	if c.UndoLen() != 3 {
		t.Fatalf("expected undo capped at 3, got %d", c.UndoLen())
	}

	for range 3 {
		mustDispatch(t, c, Undo{})
	}
	props, _ := c.Properties(rule)
	if v, _ := props.Value("Name"); v != property.String("b") {
		t.Fatalf("expected oldest reachable state b, got %v", v)
	}
	if err := c.Dispatch(Undo{}); !errors.Is(err, ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	c := loadController(t, Options{})
	bookcase := c.Objects()[0].ID
	before, _ := c.Properties(bookcase)

	err := c.Dispatch(UpdateProperty{ID: bookcase, Key: "Active", Value: "maybe"})
	if !errors.Is(err, property.ErrCast) {
		t.Fatalf("expected ErrCast, got %v", err)
	}
	if c.Status() != err.Error() {
		t.Fatalf("expected status %q, got %q", err.Error(), c.Status())
	}
	after, _ := c.Properties(bookcase)
	if !samePropertySet(before, after) {
		t.Fatal("expected failed update to leave properties untouched")
	}
	if c.UndoLen() != 0 {
		t.Fatalf("expected failed update to skip history, got %d", c.UndoLen())
	}

	mustDispatch(t, c, UpdateProperty{ID: bookcase, Key: "Active", Value: "false"})
	if c.Status() != "" {
		t.Fatalf("expected status cleared, got %q", c.Status())
	}
}

func TestDispatchErrors(t *testing.T) {
	c := loadController(t, Options{})
	rule := c.Objects()[2].ID
	bookcase := c.Objects()[0].ID

	tests := []struct {
		name string
		ev   Event
		want error
	}{
		{"unknown object", UpdateProperty{ID: uuid.New(), Key: "Name", Value: "x"}, ErrUnknownObject},
		{"nothing to undo", Undo{}, ErrNothingToUndo},
		{"nothing to redo", Redo{}, ErrNothingToRedo},
		{"container datafile", UpdateDatafile{ID: uuid.Nil, Key: "Name", Value: "x"}, pipeline.ErrNoDatafile},
		{"rule datafile", UpdateDatafile{ID: rule, Key: "Name", Value: "x"}, pipeline.ErrNoDatafile},
		{"missing file", UpdateFile{ID: bookcase, Key: "nope.obj", Data: []byte("x")}, ErrNoFile},
		{"missing property", RemoveProperty{ID: bookcase, Key: "Nope"}, property.ErrMissingProperty},
		{"remove container", RemoveObject{ID: uuid.Nil}, ErrUnknownObject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Dispatch(tt.ev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if c.Status() == "" {
				t.Fatal("expected status to carry the error")
			}
		})
	}
}

func TestUpdateDatafileUndo(t *testing.T) {
	c := loadController(t, Options{})
	barrier := c.Objects()[1].ID
	before, _ := c.Datafile(barrier)

	mustDispatch(t, c, UpdateDatafile{ID: barrier, Key: "Size", Value: "2.5"})
	df, _ := c.Datafile(barrier)
	if v, _ := df.Value("Size"); v != property.Float(2.5) {
		t.Fatalf("expected Size 2.5, got %v", v)
	}

	mustDispatch(t, c, Undo{})
	df, _ = c.Datafile(barrier)
	if !samePropertySet(before, df) {
		t.Fatal("expected undo to restore the datafile")
	}
}

func TestUpdateFileUndo(t *testing.T) {
	c := loadController(t, Options{})

	mustDispatch(t, c, UpdateFile{ID: uuid.Nil, Key: "readme.txt", Data: []byte("rewritten")})
	data, err := c.File(uuid.Nil, "readme.txt")
	if err != nil || string(data) != "rewritten" {
		t.Fatalf("expected rewritten file, got %q (%v)", data, err)
	}

	mustDispatch(t, c, Undo{})
	data, _ = c.File(uuid.Nil, "readme.txt")
	if string(data) != "notes" {
		t.Fatalf("expected original contents, got %q", data)
	}
}

func TestRemoveObjectUndo(t *testing.T) {
	c := loadController(t, Options{})
	before := c.Objects()

	mustDispatch(t, c, RemoveObject{ID: before[1].ID})
	if len(c.Objects()) != 3 {
		t.Fatalf("expected 3 objects, got %d", len(c.Objects()))
	}

	mustDispatch(t, c, Undo{})
	if !slices.Equal(before, c.Objects()) {
		t.Fatalf("expected %v, got %v", before, c.Objects())
	}

	mustDispatch(t, c, Redo{})
	if len(c.Objects()) != 3 {
		t.Fatalf("expected redo to remove the object again, got %d", len(c.Objects()))
	}
}

func TestKeyInput(t *testing.T) {
	c := loadController(t, Options{})
	rule := c.Objects()[2].ID
	mustDispatch(t, c, UpdateProperty{ID: rule, Key: "Name", Value: "Changed"})

	mustDispatch(t, c, KeyInput{Chord: "Ctrl+Z"})
	if c.UndoLen() != 0 || c.RedoLen() != 1 {
		t.Fatalf("expected ctrl+z to undo, got %d undo %d redo", c.UndoLen(), c.RedoLen())
	}
	mustDispatch(t, c, KeyInput{Chord: "shift+ctrl+z"})
	if c.UndoLen() != 1 || c.RedoLen() != 0 {
		t.Fatalf("expected ctrl+shift+z to redo, got %d undo %d redo", c.UndoLen(), c.RedoLen())
	}
	mustDispatch(t, c, KeyInput{Chord: "x"})
	if c.UndoLen() != 1 {
		t.Fatal("expected unbound chord to do nothing")
	}

	custom := loadController(t, Options{Bindings: Bindings{Undo: []string{"u"}}})
	mustDispatch(t, custom, UpdateProperty{ID: uuid.Nil, Key: "Title", Value: "x"})
	mustDispatch(t, custom, KeyInput{Chord: "ctrl+z"})
	if custom.UndoLen() != 1 {
		t.Fatal("expected default binding to be replaced")
	}
	mustDispatch(t, custom, KeyInput{Chord: "U"})
	if custom.UndoLen() != 0 {
		t.Fatal("expected custom binding to undo")
	}
}

func TestNormalizeChord(t *testing.T) {
	tests := map[string]string{
		"ctrl+z":         "ctrl+z",
		"Shift + Ctrl+Z": "ctrl+shift+z",
		"control+y":      "ctrl+y",
		"cmd+alt+k":      "alt+meta+k",
		"ctrl+":          "",
		"":               "",
	}
	for in, want := range tests {
		if got := NormalizeChord(in); got != want {
			t.Errorf("NormalizeChord(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestSave(t *testing.T) {
	c := loadController(t, Options{})
	if _, ok := c.Saved(); ok {
		t.Fatal("expected nothing saved yet")
	}

	mustDispatch(t, c, UpdateProperty{ID: uuid.Nil, Key: "Title", Value: "The Library"})
	mustDispatch(t, c, UpdateDatafile{ID: c.Objects()[1].ID, Key: "Size", Value: "2"})
	mustDispatch(t, c, Save{})
	data, ok := c.Saved()
	if !ok {
		t.Fatal("expected saved bytes")
	}

	m, err := mission.Load(data, mission.Options{})
	if err != nil {
		t.Fatalf("reloading saved mission: %v", err)
	}
	if v, _ := m.Container.Properties().Value("Title"); v != property.String("The Library") {
		t.Fatalf("expected saved title, got %v", v)
	}
	if v, _ := m.Objects[1].Datafile().Value("Size"); v != property.Float(2) {
		t.Fatalf("expected saved Size 2, got %v", v)
	}

	mustDispatch(t, c, Save{})
	again, _ := c.Saved()
	if !bytes.Equal(data, again) {
		t.Fatal("expected repeated saves to be identical")
	}
}

func TestSaveRejectsUnloadableResource(t *testing.T) {
	c := loadController(t, Options{})
	bookcase := c.Objects()[0].ID

	for _, target := range []string{"nowhere.obj", "barrier.obj"} {
		mustDispatch(t, c, UpdateDatafile{ID: bookcase, Key: "Object", Value: target})
		err := c.Dispatch(Save{})
		if !errors.Is(err, archive.ErrMissingFile) && !errors.Is(err, archive.ErrDuplicateFile) {
			t.Fatalf("expected save of Object=%s to fail with a claim error, got %v", target, err)
		}
		if c.Status() == "" {
			t.Fatalf("expected failed save to leave a status")
		}
		if _, ok := c.Saved(); ok {
			t.Fatalf("expected nothing saved")
		}
		mustDispatch(t, c, Undo{})
	}

	mustDispatch(t, c, Save{})
	data, _ := c.Saved()
	if _, err := mission.Load(data, mission.Options{}); err != nil {
		t.Fatalf("expected saved mission to reload after undo, got %v", err)
	}
}
