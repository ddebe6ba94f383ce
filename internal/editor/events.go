package editor

import (
	"github.com/google/uuid"

	"missionkit/internal/pipeline"
	"missionkit/internal/property"
)

// Event is one input to the controller. uuid.Nil addresses the mission
// container wherever an event takes an identifier.
type Event interface {
	event()
}

// Save collapses the whole mission into archive bytes.
type Save struct{}

// KeyInput is a key chord such as "ctrl+z", resolved through the bindings.
type KeyInput struct {
	Chord string
}

type Undo struct{}

type Redo struct{}

// UpdateProperty sets Key on the object's descriptor properties from raw
// text. An existing key keeps its type and flags.
type UpdateProperty struct {
	ID    uuid.UUID
	Key   string
	Value string
}

// UpdateDatafile sets Key in the object's datafile.
type UpdateDatafile struct {
	ID    uuid.UUID
	Key   string
	Value string
}

// UpdateFile replaces the contents of a file the object owns.
type UpdateFile struct {
	ID   uuid.UUID
	Key  string
	Data []byte
}

type RemoveProperty struct {
	ID  uuid.UUID
	Key string
}

type RemoveDatafile struct {
	ID  uuid.UUID
	Key string
}

// RemoveObject drops an object and every file it owns from the mission.
type RemoveObject struct {
	ID uuid.UUID
}

// restoreProperties swaps a whole property set back in. Inverses of every
// property and datafile edit take this form so that undo restores type,
// flags and order exactly.
type restoreProperties struct {
	id       uuid.UUID
	datafile bool
	props    *property.Properties
}

type restoreObject struct {
	obj   *pipeline.Object
	index int
}

func (Save) event()              {}
func (KeyInput) event()          {}
func (Undo) event()              {}
func (Redo) event()              {}
func (UpdateProperty) event()    {}
func (UpdateDatafile) event()    {}
func (UpdateFile) event()        {}
func (RemoveProperty) event()    {}
func (RemoveDatafile) event()    {}
func (RemoveObject) event()      {}
func (restoreProperties) event() {}
func (restoreObject) event()     {}
