package datafile

import (
	"errors"
	"slices"
	"testing"

	"missionkit/internal/property"
)

func TestParse(t *testing.T) {
	t.Run("pairs in order", func(t *testing.T) {
		text := "Name = Baronial_2Door\r\n\nFilename = Baronial_2Door.til\nCategories = TwoDoor, Baronial\n  \nSize X=6\n"
		props, err := Parse(text)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		want := []string{"Name", "Filename", "Categories", "Size X"}
		if !slices.Equal(props.Keys(), want) {
			t.Fatalf("expected keys %v, got %v", want, props.Keys())
		}
		if v, _ := props.Value("Categories"); v != property.String("TwoDoor, Baronial") {
			t.Fatalf("unexpected Categories %v", v)
		}
		if v, _ := props.Value("Size X"); v != property.String("6") {
			t.Fatalf("expected values to stay strings, got %v", v)
		}
	})

	t.Run("malformed lines", func(t *testing.T) {
		for _, text := range []string{"Name Chair", "A = b = c", " = orphan"} {
			if _, err := Parse(text); !errors.Is(err, ErrMalformedLine) {
				t.Fatalf("expected ErrMalformedLine for %q, got %v", text, err)
			}
		}
	})

	t.Run("duplicate key", func(t *testing.T) {
		if _, err := Parse("A = 1\nA = 2\n"); !errors.Is(err, property.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})
}

func TestFormat(t *testing.T) {
	props := property.New()
	_ = props.Add("Name", property.Property{Value: property.String("Chair")})
	_ = props.Add("Size", property.Property{Value: property.Float(1)})

	text, err := Format(props)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if text != "Name = Chair\nSize = 1.0\n" {
		t.Fatalf("unexpected datafile %q", text)
	}

	back, err := Parse(text)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v, _ := back.Value("Size"); v != property.String("1.0") {
		t.Fatalf("unexpected Size %v", v)
	}

	bad := property.New()
	_ = bad.Add("Formula", property.Property{Value: property.String("a=b")})
	if _, err := Format(bad); !errors.Is(err, ErrMalformedLine) {
		t.Fatalf("expected ErrMalformedLine, got %v", err)
	}
}
