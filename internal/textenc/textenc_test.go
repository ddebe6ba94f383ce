package textenc

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	t.Run("plain utf-8", func(t *testing.T) {
		text, enc, err := Decode([]byte("Name = Chair"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if enc != UTF8 || text != "Name = Chair" {
			t.Fatalf("expected utf-8 text, got %s %q", enc, text)
		}
	})

	t.Run("utf-8 with bom", func(t *testing.T) {
		text, enc, err := Decode([]byte("\xEF\xBB\xBFName = Chair"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if enc != UTF8BOM || text != "Name = Chair" {
			t.Fatalf("expected bom stripped, got %s %q", enc, text)
		}
	})

	t.Run("utf-16 little endian", func(t *testing.T) {
		data := []byte{0xFF, 0xFE, 'A', 0, '=', 0, 'b', 0}
		text, enc, err := Decode(data)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if enc != UTF16LE || text != "A=b" {
			t.Fatalf("expected utf-16le text, got %s %q", enc, text)
		}
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		if _, _, err := Decode([]byte{'a', 0xFF, 'b'}); !errors.Is(err, ErrEncoding) {
			t.Fatalf("expected ErrEncoding, got %v", err)
		}
	})
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, enc := range []Encoding{UTF8, UTF8BOM, UTF16LE, UTF16BE} {
		t.Run(enc.String(), func(t *testing.T) {
			data, err := Encode("<GAME>é</GAME>", enc)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if Detect(data) != enc {
				t.Fatalf("expected %s, detected %s", enc, Detect(data))
			}
			text, got, err := Decode(data)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != enc || text != "<GAME>é</GAME>" {
				t.Fatalf("expected round trip, got %s %q", got, text)
			}
		})
	}

	t.Run("utf-16be bom", func(t *testing.T) {
		data, err := Encode("A", UTF16BE)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !bytes.Equal(data, []byte{0xFE, 0xFF, 0, 'A'}) {
			t.Fatalf("unexpected bytes %x", data)
		}
	})
}
