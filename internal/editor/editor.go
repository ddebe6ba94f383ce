// Package editor drives a loaded mission through discrete events with
// bounded undo and redo.
//
// Every mutating event yields its inverse, which goes onto the undo stack.
// Undoing an event runs the inverse and pushes the inverse's own inverse
// onto the redo stack. A new edit clears the redo stack; moving through
// history never clears either stack.
package editor

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"missionkit/internal/mission"
	"missionkit/internal/pipeline"
	"missionkit/internal/property"
)

const DefaultHistoryCapacity = 200

var (
	ErrUnknownObject = errors.New("no object with that identifier")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrNoFile        = errors.New("no such file")
	ErrUnknownEvent  = errors.New("unknown event")
)

type Options struct {
	// HistoryCapacity bounds each of the undo and redo stacks.
	HistoryCapacity int
	Bindings        Bindings
	Mission         mission.Options
	Logger          *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.HistoryCapacity <= 0 {
		o.HistoryCapacity = DefaultHistoryCapacity
	}
	if o.Bindings.Undo == nil && o.Bindings.Redo == nil {
		o.Bindings = DefaultBindings()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Mission.Logger == nil {
		o.Mission.Logger = o.Logger
	}
	return o
}

// Summary identifies one object for listing.
type Summary struct {
	ID   uuid.UUID
	Kind pipeline.Kind
	Name string
}

// Controller owns a loaded mission. It is not safe for concurrent use.
type Controller struct {
	objects   map[uuid.UUID]*pipeline.Object
	order     []uuid.UUID
	container *mission.Container

	status string
	saved  []byte

	undo     *history
	redo     *history
	bindings Bindings
	logger   *zap.Logger
}

// Load parses archive bytes into a new controller.
func Load(data []byte, opts Options) (*Controller, error) {
	opts = opts.withDefaults()
	m, err := mission.Load(data, opts.Mission)
	if err != nil {
		return nil, err
	}
	return New(m, opts), nil
}

// New takes ownership of m.
func New(m *mission.Mission, opts Options) *Controller {
	opts = opts.withDefaults()
	c := &Controller{
		objects:   make(map[uuid.UUID]*pipeline.Object, len(m.Objects)),
		order:     make([]uuid.UUID, 0, len(m.Objects)),
		container: m.Container,
		undo:      newHistory(opts.HistoryCapacity),
		redo:      newHistory(opts.HistoryCapacity),
		bindings:  opts.Bindings,
		logger:    opts.Logger,
	}
	for _, obj := range m.Objects {
		c.objects[obj.ID()] = obj
		c.order = append(c.order, obj.ID())
	}
	return c
}

// Dispatch runs one event. The status is cleared first and set to the
// error text if the event fails; a failed event leaves the mission as it
// was.
func (c *Controller) Dispatch(ev Event) error {
	c.status = ""
	if err := c.dispatch(ev); err != nil {
		c.status = err.Error()
		c.logger.Debug("event failed", zap.String("event", fmt.Sprintf("%T", ev)), zap.Error(err))
		return err
	}
	return nil
}

func (c *Controller) dispatch(ev Event) error {
	switch ev := ev.(type) {
	case Save:
		return c.save()
	case KeyInput:
		switch c.bindings.action(ev.Chord) {
		case actionUndo:
			return c.stepBack()
		case actionRedo:
			return c.stepForward()
		default:
			return nil
		}
	case Undo:
		return c.stepBack()
	case Redo:
		return c.stepForward()
	default:
		inverse, err := c.apply(ev)
		if err != nil {
			return err
		}
		c.undo.push(inverse)
		c.redo.clear()
		return nil
	}
}

func (c *Controller) stepBack() error {
	ev, ok := c.undo.pop()
	if !ok {
		return ErrNothingToUndo
	}
	inverse, err := c.apply(ev)
	if err != nil {
		c.undo.push(ev)
		return fmt.Errorf("undo: %w", err)
	}
	c.redo.push(inverse)
	return nil
}

func (c *Controller) stepForward() error {
	ev, ok := c.redo.pop()
	if !ok {
		return ErrNothingToRedo
	}
	inverse, err := c.apply(ev)
	if err != nil {
		c.redo.push(ev)
		return fmt.Errorf("redo: %w", err)
	}
	c.undo.push(inverse)
	return nil
}

func (c *Controller) save() error {
	data, err := mission.Save(c.ordered(), c.container)
	if err != nil {
		return err
	}
	c.saved = data
	c.logger.Info("mission saved",
		zap.String("descriptor", c.container.DescriptorName()),
		zap.Int("objects", len(c.order)),
		zap.Int("bytes", len(data)))
	return nil
}

// apply performs a mutating event and returns the event that reverses it.
func (c *Controller) apply(ev Event) (Event, error) {
	switch ev := ev.(type) {
	case UpdateProperty:
		t, err := c.target(ev.ID)
		if err != nil {
			return nil, err
		}
		before := t.Properties()
		if _, _, err := t.SetProperty(ev.Key, ev.Value); err != nil {
			return nil, err
		}
		return restoreProperties{id: ev.ID, props: before}, nil

	case UpdateDatafile:
		obj, err := c.datafileObject(ev.ID)
		if err != nil {
			return nil, err
		}
		before := obj.Datafile()
		if _, _, err := obj.SetDatafile(ev.Key, ev.Value); err != nil {
			return nil, err
		}
		return restoreProperties{id: ev.ID, datafile: true, props: before}, nil

	case UpdateFile:
		t, err := c.target(ev.ID)
		if err != nil {
			return nil, err
		}
		if !t.HasFile(ev.Key) {
			return nil, fmt.Errorf("%w: %s", ErrNoFile, ev.Key)
		}
		old, err := t.ReplaceFile(ev.Key, slices.Clone(ev.Data))
		if err != nil {
			return nil, err
		}
		return UpdateFile{ID: ev.ID, Key: ev.Key, Data: old}, nil

	case RemoveProperty:
		t, err := c.target(ev.ID)
		if err != nil {
			return nil, err
		}
		before := t.Properties()
		if _, ok := t.RemoveProperty(ev.Key); !ok {
			return nil, fmt.Errorf("%w: %s", property.ErrMissingProperty, ev.Key)
		}
		return restoreProperties{id: ev.ID, props: before}, nil

	case RemoveDatafile:
		obj, err := c.datafileObject(ev.ID)
		if err != nil {
			return nil, err
		}
		before := obj.Datafile()
		if _, ok := obj.RemoveDatafile(ev.Key); !ok {
			return nil, fmt.Errorf("%w: %s", property.ErrMissingProperty, ev.Key)
		}
		return restoreProperties{id: ev.ID, datafile: true, props: before}, nil

	case RemoveObject:
		i := slices.Index(c.order, ev.ID)
		if ev.ID == uuid.Nil || i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownObject, ev.ID)
		}
		obj := c.objects[ev.ID]
		delete(c.objects, ev.ID)
		c.order = slices.Delete(c.order, i, i+1)
		return restoreObject{obj: obj, index: i}, nil

	case restoreProperties:
		if ev.datafile {
			obj, err := c.datafileObject(ev.id)
			if err != nil {
				return nil, err
			}
			old, err := obj.ReplaceDatafile(ev.props)
			if err != nil {
				return nil, err
			}
			return restoreProperties{id: ev.id, datafile: true, props: old}, nil
		}
		t, err := c.target(ev.id)
		if err != nil {
			return nil, err
		}
		return restoreProperties{id: ev.id, props: t.ReplaceProperties(ev.props)}, nil

	case restoreObject:
		id := ev.obj.ID()
		if _, ok := c.objects[id]; ok {
			return nil, fmt.Errorf("restoring object %s: already present", id)
		}
		c.objects[id] = ev.obj
		c.order = slices.Insert(c.order, min(ev.index, len(c.order)), id)
		return RemoveObject{ID: id}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}
}

// target is the common surface of objects and the mission container.
type target interface {
	Properties() *property.Properties
	SetProperty(key, raw string) (property.Value, bool, error)
	RemoveProperty(key string) (property.Property, bool)
	ReplaceProperties(props *property.Properties) *property.Properties
	Files() []string
	File(name string) ([]byte, error)
	HasFile(name string) bool
	ReplaceFile(name string, data []byte) ([]byte, error)
}

func (c *Controller) target(id uuid.UUID) (target, error) {
	if id == uuid.Nil {
		return c.container, nil
	}
	return c.object(id)
}

func (c *Controller) object(id uuid.UUID) (*pipeline.Object, error) {
	obj, ok := c.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, id)
	}
	return obj, nil
}

func (c *Controller) datafileObject(id uuid.UUID) (*pipeline.Object, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("mission container: %w", pipeline.ErrNoDatafile)
	}
	obj, err := c.object(id)
	if err != nil {
		return nil, err
	}
	if _, ok := obj.DatafileName(); !ok {
		return nil, fmt.Errorf("%s %s: %w", obj.Kind(), id, pipeline.ErrNoDatafile)
	}
	return obj, nil
}

func (c *Controller) ordered() []*pipeline.Object {
	out := make([]*pipeline.Object, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.objects[id])
	}
	return out
}

// Objects lists the mission's objects in descriptor order.
func (c *Controller) Objects() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, obj := range c.ordered() {
		out = append(out, Summary{ID: obj.ID(), Kind: obj.Kind(), Name: obj.Name()})
	}
	return out
}

// Mission exposes the live objects and container. Callers must not mutate
// them outside Dispatch.
func (c *Controller) Mission() *mission.Mission {
	return &mission.Mission{Objects: c.ordered(), Container: c.container}
}

// Properties returns a copy of the descriptor properties of id.
func (c *Controller) Properties(id uuid.UUID) (*property.Properties, error) {
	t, err := c.target(id)
	if err != nil {
		return nil, err
	}
	return t.Properties(), nil
}

// Datafile returns a copy of the merged datafile of id.
func (c *Controller) Datafile(id uuid.UUID) (*property.Properties, error) {
	obj, err := c.datafileObject(id)
	if err != nil {
		return nil, err
	}
	return obj.Datafile(), nil
}

func (c *Controller) Files(id uuid.UUID) ([]string, error) {
	t, err := c.target(id)
	if err != nil {
		return nil, err
	}
	return t.Files(), nil
}

func (c *Controller) File(id uuid.UUID, name string) ([]byte, error) {
	t, err := c.target(id)
	if err != nil {
		return nil, err
	}
	if !t.HasFile(name) {
		return nil, fmt.Errorf("%w: %s", ErrNoFile, name)
	}
	return t.File(name)
}

// Status is the error text of the last event, or empty if it succeeded.
func (c *Controller) Status() string { return c.status }

// Saved returns the bytes written by the most recent Save event.
func (c *Controller) Saved() ([]byte, bool) { return c.saved, c.saved != nil }

func (c *Controller) UndoLen() int { return c.undo.len() }
func (c *Controller) RedoLen() int { return c.redo.len() }
