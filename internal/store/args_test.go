package store

import (
	"slices"
	"testing"
)

func TestPositionalArgs(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   []any
	}{
		{"empty", nil, []any{}},
		{"ordered", map[string]any{"2": "b", "1": "a"}, []any{"a", "b"}},
		{"gap stops numbering", map[string]any{"1": 1, "3": 3}, []any{1}},
		{"named keys ignored", map[string]any{"kind": "PROP"}, []any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionalArgs(tt.params); !slices.Equal(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
