package property

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Properties is an insertion-ordered set of named properties. The zero
// value is empty and ready to use.
type Properties struct {
	keys    []string
	entries map[string]Property
}

func New() *Properties {
	return &Properties{entries: make(map[string]Property)}
}

func (p *Properties) Len() int {
	return len(p.keys)
}

func (p *Properties) Has(key string) bool {
	_, ok := p.entries[key]
	return ok
}

func (p *Properties) Get(key string) (Property, bool) {
	prop, ok := p.entries[key]
	return prop, ok
}

func (p *Properties) Value(key string) (Value, bool) {
	prop, ok := p.entries[key]
	return prop.Value, ok
}

func (p *Properties) Keys() []string {
	return slices.Clone(p.keys)
}

func (p *Properties) All() iter.Seq2[string, Property] {
	return func(yield func(string, Property) bool) {
		for _, k := range p.keys {
			if !yield(k, p.entries[k]) {
				return
			}
		}
	}
}

// Add appends a property, failing if key is already present.
func (p *Properties) Add(key string, prop Property) error {
	if p.Has(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	p.put(key, prop)
	return nil
}

// Put stores prop under key, keeping the key's position when it exists.
func (p *Properties) Put(key string, prop Property) {
	p.put(key, prop)
}

func (p *Properties) put(key string, prop Property) {
	if p.entries == nil {
		p.entries = make(map[string]Property)
	}
	if _, ok := p.entries[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.entries[key] = prop
}

// InsertTyped coerces raw into the type named by tag and adds it.
func (p *Properties) InsertTyped(key, raw, tag string, flags Flags) error {
	if p.Has(key) {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}
	v, err := Parse(raw, ParseType(tag))
	if err != nil {
		return fmt.Errorf("property %s: %w", key, err)
	}
	p.put(key, Property{Value: v, Flags: flags})
	return nil
}

// ReplaceOrInsert sets key from raw text. An existing key keeps its declared
// type and flags, and its previous value is returned. A new key is stored as
// a string without flags.
func (p *Properties) ReplaceOrInsert(key, raw string) (Value, bool, error) {
	old, ok := p.entries[key]
	if !ok {
		p.put(key, Property{Value: String(raw)})
		return Value{}, false, nil
	}
	v, err := Parse(raw, old.Value.Type())
	if err != nil {
		return Value{}, true, fmt.Errorf("property %s: %w", key, err)
	}
	p.entries[key] = Property{Value: v, Flags: old.Flags}
	return old.Value, true, nil
}

// Remove deletes key, reporting the removed property.
func (p *Properties) Remove(key string) (Property, bool) {
	prop, ok := p.entries[key]
	if !ok {
		return Property{}, false
	}
	delete(p.entries, key)
	p.keys = slices.DeleteFunc(p.keys, func(k string) bool { return k == key })
	return prop, true
}

// Take removes and returns key, failing if it is absent.
func (p *Properties) Take(key string) (Property, error) {
	prop, ok := p.Remove(key)
	if !ok {
		return Property{}, fmt.Errorf("%w: %s", ErrMissingProperty, key)
	}
	return prop, nil
}

// TakeString removes a string-typed key. A key of another type is left in
// place and reported as ErrWrongTypeFound.
func (p *Properties) TakeString(key string) (string, error) {
	prop, ok := p.entries[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingProperty, key)
	}
	s, ok := prop.Value.AsString()
	if !ok {
		return "", fmt.Errorf("%w: %s is %s, want %s", ErrWrongTypeFound, key, prop.Value.Type(), TypeString)
	}
	p.Remove(key)
	return s, nil
}

// TakeInt removes an int-typed key.
func (p *Properties) TakeInt(key string) (int64, error) {
	prop, ok := p.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingProperty, key)
	}
	i, ok := prop.Value.AsInt()
	if !ok {
		return 0, fmt.Errorf("%w: %s is %s, want %s", ErrWrongTypeFound, key, prop.Value.Type(), TypeInt)
	}
	p.Remove(key)
	return i, nil
}

// Merge appends every property of other. Any shared key fails the merge and
// leaves p unchanged.
func (p *Properties) Merge(other *Properties) error {
	for _, k := range other.keys {
		if p.Has(k) {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, k)
		}
	}
	for _, k := range other.keys {
		p.put(k, other.entries[k])
	}
	return nil
}

// DefaultFor overlays other onto p, with p acting as the template. Keys p
// already declares are coerced into p's type; other's flags win when set.
// Keys p lacks are appended as they are. On error p is unchanged.
func (p *Properties) DefaultFor(other *Properties) error {
	merged := p.Clone()
	for _, k := range other.keys {
		incoming := other.entries[k]
		def, ok := merged.entries[k]
		if !ok {
			merged.put(k, incoming)
			continue
		}

		v, err := coerce(incoming.Value, def.Value.Type())
		if err != nil {
			return fmt.Errorf("%w: %s: got %s, want %s: %w",
				ErrMergedWrongType, k, incoming.Value.Type(), def.Value.Type(), err)
		}

		flags := def.Flags
		if incoming.Flags.IsSet() {
			flags = incoming.Flags
		}
		merged.entries[k] = Property{Value: v, Flags: flags}
	}

	*p = *merged
	return nil
}

func coerce(v Value, t Type) (Value, error) {
	switch {
	case v.Type() == t:
		return v, nil
	case v.Type() == TypeString:
		return Parse(v.s, t)
	case t == TypeString:
		return String(v.String()), nil
	default:
		return Value{}, fmt.Errorf("%w: %s is not %s", ErrCast, v, t.Tag())
	}
}

// Map flattens p to plain values, dropping flags and order.
func (p *Properties) Map() map[string]any {
	out := make(map[string]any, p.Len())
	for k, prop := range p.All() {
		out[k] = prop.Value.Any()
	}
	return out
}

func (p *Properties) Clone() *Properties {
	return &Properties{
		keys:    slices.Clone(p.keys),
		entries: maps.Clone(p.entries),
	}
}

// Equal reports whether both sets hold the same keys with the same values
// and flags, regardless of order.
func (p *Properties) Equal(other *Properties) bool {
	if p.Len() != other.Len() {
		return false
	}
	for k, v := range p.entries {
		o, ok := other.entries[k]
		if !ok || o != v {
			return false
		}
	}
	return true
}
