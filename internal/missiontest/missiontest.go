// Package missiontest builds small mission archives for tests.
package missiontest

import (
	"testing"

	"missionkit/internal/archive"
	"missionkit/internal/descriptor"
	"missionkit/internal/property"
)

const DescriptorName = "hall.mission"

// Files returns the contents of the sample archive: two props sharing one
// default template, a rule, a player and two leftover files.
func Files(tb testing.TB) map[string][]byte {
	tb.Helper()

	template := property.New()
	mustInsert(tb, template, "Description", "defaulted", "VTYPE_STRING", property.NoFlags)
	mustInsert(tb, template, "Size", "1.0", "VTYPE_FLOAT", property.FlagsOf("READONLY"))
	mustInsert(tb, template, "Object", "", "VTYPE_STRING", property.NoFlags)
	templateText, err := descriptor.FormatTemplate(template)
	if err != nil {
		tb.Fatalf("formatting template: %v", err)
	}

	missionProps := property.New()
	mustInsert(tb, missionProps, "Title", "The Hall", "VTYPE_STRING", property.NoFlags)

	bookcaseProps := property.New()
	mustInsert(tb, bookcaseProps, "Active", "true", "VTYPE_BOOL", property.NoFlags)
	mustInsert(tb, bookcaseProps, "Name", "Bookcase", "VTYPE_STRING", property.FlagsOf("READONLY | HIDDEN"))

	barrierProps := property.New()
	mustInsert(tb, barrierProps, "Active", "false", "VTYPE_BOOL", property.NoFlags)

	ruleProps := property.New()
	mustInsert(tb, ruleProps, "Name", "Open Doors", "VTYPE_STRING", property.NoFlags)

	doc := &descriptor.Document{
		Prolog:         "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n",
		ExpandedSize:   512,
		BlankingPlates: "victorian_blank.obj",
		Meta:           "draft",
		Properties:     missionProps,
		Entries: []descriptor.Entry{
			{
				Tag:         "PROP",
				HasDatafile: true,
				Datafile:    "bookcase.prop",
				Properties:  bookcaseProps,
				Fields:      []descriptor.Field{{Name: "ORIENTATION", Value: "1.0, 0.0, 0.0, 0.0"}},
			},
			{
				Tag:         "PROP",
				HasDatafile: true,
				Datafile:    "barrier.prop",
				Properties:  barrierProps,
				Fields:      []descriptor.Field{{Name: "ORIENTATION", Value: "0.0, 1.0, 0.0, 0.0"}},
			},
			{
				Tag:        "RULE",
				Properties: ruleProps,
			},
			{
				Tag:        "PLAYER",
				Properties: property.New(),
				Fields: []descriptor.Field{
					{Name: "ORIENTATION", Value: "0 0 0"},
					{Name: "START_POSITION", Value: "1 0 1"},
					{Name: "START_ORIENTATION", Value: "0 90 0"},
				},
			},
		},
	}
	missionText, err := descriptor.Encode(doc)
	if err != nil {
		tb.Fatalf("encoding descriptor: %v", err)
	}

	return map[string][]byte{
		DescriptorName:        []byte(missionText),
		"Default.prop":        []byte(templateText),
		"bookcase.prop":       []byte("Name = Bookcase\nObject = MG_Bookcase.obj\nSize = 1.0\n"),
		"barrier.prop":        []byte("Name = Barrier Bars\nObject = barrier.obj\n"),
		"MG_Bookcase.obj":     []byte("bookcase mesh"),
		"barrier.obj":         []byte("barrier mesh"),
		"victorian_blank.obj": []byte("blanking plate"),
		"readme.txt":          []byte("notes"),
	}
}

// Archive returns Files packed as zip bytes.
func Archive(tb testing.TB) []byte {
	tb.Helper()
	return Pack(tb, Files(tb))
}

func Pack(tb testing.TB, files map[string][]byte) []byte {
	tb.Helper()
	a := archive.New()
	for name, data := range files {
		if err := a.Add(name, data); err != nil {
			tb.Fatalf("adding %s: %v", name, err)
		}
	}
	data, err := a.Bytes()
	if err != nil {
		tb.Fatalf("packing archive: %v", err)
	}
	return data
}

func mustInsert(tb testing.TB, p *property.Properties, key, raw, tag string, flags property.Flags) {
	tb.Helper()
	if err := p.InsertTyped(key, raw, tag, flags); err != nil {
		tb.Fatalf("inserting %s: %v", key, err)
	}
}
