package pipeline

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"missionkit/internal/archive"
	"missionkit/internal/descriptor"
	"missionkit/internal/property"
)

const chairDatafile = "Name = Chair\nSize = 1.0\nObject = chair.obj\n"

func propTemplate(t *testing.T) []byte {
	t.Helper()
	props := property.New()
	_ = props.InsertTyped("Description", "defaulted", "VTYPE_STRING", property.NoFlags)
	_ = props.InsertTyped("Size", "1.0", "VTYPE_FLOAT", property.FlagsOf("READONLY"))
	_ = props.InsertTyped("Object", "", "VTYPE_STRING", property.NoFlags)
	text, err := descriptor.FormatTemplate(props)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return []byte(text)
}

func propPool(t *testing.T) *archive.Archive {
	t.Helper()
	pool := archive.New()
	_ = pool.Add("Default.prop", propTemplate(t))
	_ = pool.Add("chair.prop", []byte(chairDatafile))
	_ = pool.Add("chair.obj", []byte("chair mesh"))
	_ = pool.Add("table.prop", []byte("Name = Table\nObject = table.obj\n"))
	_ = pool.Add("table.obj", []byte("table mesh"))
	return pool
}

func propRaw(datafile string) Raw {
	props := property.New()
	_ = props.InsertTyped("Active", "true", "VTYPE_BOOL", property.NoFlags)
	return Raw{
		Kind:       Prop,
		Tag:        "PROP",
		Datafile:   datafile,
		Properties: props,
		Fields:     map[string]string{"ORIENTATION": "1.0, 0.0, 0.0, 0.0"},
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.Tag())
		if err != nil || got != k {
			t.Fatalf("expected %s, got %s %v", k, got, err)
		}
	}
	if k, err := ParseKind("SPECIALEFFECT"); err != nil || k != SpecialEffect {
		t.Fatalf("expected alias to resolve, got %s %v", k, err)
	}
	if _, err := ParseKind("SPACESHIP"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestFromEntry(t *testing.T) {
	t.Run("prop entry", func(t *testing.T) {
		raw, err := FromEntry(descriptor.Entry{
			Tag:         "PROP",
			HasDatafile: true,
			Datafile:    "chair.prop",
			Properties:  property.New(),
			Fields:      []descriptor.Field{{Name: "ORIENTATION", Value: "0 0 0"}},
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if raw.Kind != Prop || raw.Fields["ORIENTATION"] != "0 0 0" {
			t.Fatalf("unexpected raw %+v", raw)
		}
		if !raw.Entry().HasDatafile {
			t.Fatalf("expected entry to carry datafile")
		}
	})

	cases := []struct {
		name  string
		entry descriptor.Entry
		want  error
	}{
		{"unknown kind", descriptor.Entry{Tag: "SPACESHIP"}, ErrUnknownKind},
		{"missing datafile", descriptor.Entry{Tag: "PROP", Fields: []descriptor.Field{{Name: "ORIENTATION"}}}, descriptor.ErrMissingElement},
		{"unexpected datafile", descriptor.Entry{Tag: "RULE", HasDatafile: true}, descriptor.ErrUnexpectedElement},
		{"missing field", descriptor.Entry{Tag: "PLAYER", Fields: []descriptor.Field{{Name: "ORIENTATION"}}}, descriptor.ErrMissingElement},
		{"unknown field", descriptor.Entry{Tag: "RULE", Fields: []descriptor.Field{{Name: "COLOR"}}}, descriptor.ErrUnexpectedElement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromEntry(tc.entry); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	pool := propPool(t)

	chair, err := Build(propRaw("chair.prop"), pool)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	table, err := Build(propRaw("table.prop"), pool)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	t.Run("template types coerce datafile values", func(t *testing.T) {
		if v, _ := chair.Datafile().Value("Size"); v != property.Float(1) {
			t.Fatalf("expected Size float 1.0, got %v (%s)", v, v.Type())
		}
		for _, obj := range []*Object{chair, table} {
			if v, _ := obj.Datafile().Value("Description"); v != property.String("defaulted") {
				t.Fatalf("expected default description on %s, got %v", obj.Name(), v)
			}
		}
	})

	t.Run("inline fields fold into properties", func(t *testing.T) {
		if v, _ := chair.Properties().Value("Orientation"); v != property.String("1.0, 0.0, 0.0, 0.0") {
			t.Fatalf("unexpected Orientation %v", v)
		}
	})

	t.Run("resources claimed and template shared", func(t *testing.T) {
		if !slices.Equal(chair.Files(), []string{"chair.obj"}) {
			t.Fatalf("unexpected chair files %v", chair.Files())
		}
		if !slices.Equal(pool.Names(), []string{"Default.prop"}) {
			t.Fatalf("expected only the template left, got %v", pool.Names())
		}
	})

	t.Run("identifiers differ", func(t *testing.T) {
		if chair.ID() == table.ID() {
			t.Fatalf("expected distinct identifiers")
		}
		if chair.Name() != "Chair" {
			t.Fatalf("expected name from datafile, got %q", chair.Name())
		}
	})
}

func TestBuildErrors(t *testing.T) {
	t.Run("missing datafile", func(t *testing.T) {
		pool := propPool(t)
		if _, err := Build(propRaw("stool.prop"), pool); !errors.Is(err, archive.ErrMissingFile) {
			t.Fatalf("expected ErrMissingFile, got %v", err)
		}
	})

	t.Run("missing template", func(t *testing.T) {
		pool := propPool(t)
		pool.Remove("Default.prop")
		if _, err := Build(propRaw("chair.prop"), pool); !errors.Is(err, archive.ErrMissingFile) {
			t.Fatalf("expected ErrMissingFile, got %v", err)
		}
	})

	t.Run("resource claimed twice", func(t *testing.T) {
		pool := propPool(t)
		_ = pool.Add("chair2.prop", []byte(chairDatafile))
		if _, err := Build(propRaw("chair.prop"), pool); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := Build(propRaw("chair2.prop"), pool); !errors.Is(err, archive.ErrMissingFile) {
			t.Fatalf("expected ErrMissingFile, got %v", err)
		}
	})

	t.Run("uncoercible datafile value", func(t *testing.T) {
		pool := propPool(t)
		pool.Replace("chair.prop", []byte("Size = enormous\nObject = chair.obj\n"))
		if _, err := Build(propRaw("chair.prop"), pool); !errors.Is(err, property.ErrMergedWrongType) {
			t.Fatalf("expected ErrMergedWrongType, got %v", err)
		}
	})

	t.Run("malformed datafile", func(t *testing.T) {
		pool := propPool(t)
		pool.Replace("chair.prop", []byte("Size 1.0\n"))
		if _, err := Build(propRaw("chair.prop"), pool); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("inline field collides with property", func(t *testing.T) {
		raw := propRaw("chair.prop")
		_ = raw.Properties.Add("Orientation", property.Property{Value: property.String("x")})
		if _, err := raw.Begin(); !errors.Is(err, property.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	t.Run("typed inline field", func(t *testing.T) {
		raw := Raw{Kind: UserData, Properties: property.New(), Fields: map[string]string{"DATA": "x", "ExpandedSize": "lots"}}
		if _, err := raw.Begin(); !errors.Is(err, property.ErrCast) {
			t.Fatalf("expected ErrCast, got %v", err)
		}
	})
}

func TestBeginWithoutFiles(t *testing.T) {
	raw := Raw{
		Kind:       Player,
		Tag:        "PLAYER",
		Properties: property.New(),
		Fields: map[string]string{
			"ORIENTATION":       "0 0 0",
			"START_POSITION":    "1 2 3",
			"START_ORIENTATION": "0 90 0",
		},
	}
	step, err := raw.Begin()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if step.Object == nil || step.Next != nil {
		t.Fatalf("expected player to finish immediately")
	}
	if v, _ := step.Object.Properties().Value("Start Position"); v != property.String("1 2 3") {
		t.Fatalf("unexpected Start Position %v", v)
	}
	if _, ok := step.Object.DatafileName(); ok {
		t.Fatalf("expected player without datafile")
	}
	if _, _, err := step.Object.SetDatafile("Name", "x"); !errors.Is(err, ErrNoDatafile) {
		t.Fatalf("expected ErrNoDatafile, got %v", err)
	}
}

func TestConstructCollapseRoundTrip(t *testing.T) {
	pool := propPool(t)
	raw := propRaw("chair.prop")

	step, err := raw.Begin()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var resources []string
	for step.Object == nil {
		prereqs, err := step.Next.Prerequisites()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		files := archive.New()
		for _, p := range prereqs {
			data, err := pool.Read(p.Name)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			_ = files.Add(p.Name, data)
			if !p.Shared && p.Name != raw.Datafile {
				resources = append(resources, p.Name)
			}
		}
		if step, err = step.Next.Construct(files); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}

	collapsed, err := step.Object.Collapse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !collapsed.Raw.Equal(raw) {
		t.Fatalf("expected raw round trip, got %+v", collapsed.Raw)
	}
	if !slices.Equal(resources, []string{"chair.obj"}) {
		t.Fatalf("unexpected resources %v", resources)
	}
	if !slices.Equal(collapsed.Files.Names(), []string{"chair.obj", "chair.prop"}) {
		t.Fatalf("unexpected emitted files %v", collapsed.Files.Names())
	}
	mesh, _ := collapsed.Files.Read("chair.obj")
	if !bytes.Equal(mesh, []byte("chair mesh")) {
		t.Fatalf("unexpected mesh %q", mesh)
	}
	df, _ := collapsed.Files.Read("chair.prop")
	if string(df) != chairDatafile {
		t.Fatalf("expected datafile %q, got %q", chairDatafile, df)
	}

	again, err := step.Object.Collapse()
	if err != nil {
		t.Fatalf("expected repeat collapse to succeed, got %v", err)
	}
	if !again.Raw.Equal(collapsed.Raw) {
		t.Fatalf("expected collapse to leave the object untouched")
	}
}

func TestCollapse(t *testing.T) {
	build := func(t *testing.T) *Object {
		t.Helper()
		obj, err := Build(propRaw("chair.prop"), propPool(t))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		return obj
	}

	t.Run("edited template keys are emitted", func(t *testing.T) {
		obj := build(t)
		if _, _, err := obj.SetDatafile("Description", "a sturdy chair"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		collapsed, err := obj.Collapse()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		df, _ := collapsed.Files.Read("chair.prop")
		if want := chairDatafile + "Description = a sturdy chair\n"; string(df) != want {
			t.Fatalf("expected %q, got %q", want, df)
		}
	})

	t.Run("retyped inline field", func(t *testing.T) {
		obj := build(t)
		obj.PutProperty("Orientation", property.Property{Value: property.Int(3)})
		if _, err := obj.Collapse(); !errors.Is(err, property.ErrWrongTypeFound) {
			t.Fatalf("expected ErrWrongTypeFound, got %v", err)
		}
	})

	t.Run("removed inline field", func(t *testing.T) {
		obj := build(t)
		obj.RemoveProperty("Orientation")
		if _, err := obj.Collapse(); !errors.Is(err, property.ErrMissingProperty) {
			t.Fatalf("expected ErrMissingProperty, got %v", err)
		}
	})

	t.Run("replaced file", func(t *testing.T) {
		obj := build(t)
		old, err := obj.ReplaceFile("chair.obj", []byte("new mesh"))
		if err != nil || string(old) != "chair mesh" {
			t.Fatalf("expected old mesh, got %q %v", old, err)
		}
		if _, err := obj.ReplaceFile("stool.obj", nil); !errors.Is(err, archive.ErrMissingFile) {
			t.Fatalf("expected ErrMissingFile, got %v", err)
		}
		collapsed, _ := obj.Collapse()
		mesh, _ := collapsed.Files.Read("chair.obj")
		if string(mesh) != "new mesh" {
			t.Fatalf("expected new mesh, got %q", mesh)
		}
	})
}

func TestClone(t *testing.T) {
	obj, err := Build(propRaw("chair.prop"), propPool(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	clone := obj.Clone()
	if clone.ID() == obj.ID() || clone.Kind() != obj.Kind() {
		t.Fatalf("expected same kind under a new identifier")
	}
	if !clone.Properties().Equal(obj.Properties()) || !clone.Datafile().Equal(obj.Datafile()) {
		t.Fatalf("expected equal properties")
	}

	_, _, _ = clone.SetProperty("Active", "false")
	if v, _ := obj.Properties().Value("Active"); v != property.Bool(true) {
		t.Fatalf("expected original untouched, got %v", v)
	}
}

func TestCharacterResources(t *testing.T) {
	template := property.New()
	_ = template.InsertTyped("Head", "", "VTYPE_STRING", property.NoFlags)
	_ = template.InsertTyped("Torso Object", "", "VTYPE_STRING", property.NoFlags)
	_ = template.InsertTyped("Legs Object", "", "VTYPE_STRING", property.NoFlags)
	text, _ := descriptor.FormatTemplate(template)

	pool := archive.New()
	_ = pool.Add("Default.character", []byte(text))
	_ = pool.Add("butler.character", []byte("Head = butler_head.obj\nTorso Object = butler_body.obj\nLegs Object = butler_body.obj\n"))
	_ = pool.Add("butler_head.obj", []byte("head"))
	_ = pool.Add("butler_body.obj", []byte("body"))

	raw := Raw{
		Kind:       Character,
		Datafile:   "butler.character",
		Properties: property.New(),
		Fields:     map[string]string{"ORIENTATION": "0 0 0"},
	}
	obj, err := Build(raw, pool)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !slices.Equal(obj.Files(), []string{"butler_body.obj", "butler_head.obj"}) {
		t.Fatalf("unexpected files %v", obj.Files())
	}
	collapsed, err := obj.Collapse()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if collapsed.Raw.Entry().Tag != "CHARACTER" {
		t.Fatalf("expected canonical tag, got %q", collapsed.Raw.Entry().Tag)
	}
}
