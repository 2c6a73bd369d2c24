// Package fact defines the typed, described units of build provenance and
// the ordered table that carries them from the resolver to the generator.
//
// A Table is built fresh on every resolution run. Keys are declared once, in
// the order they should appear in the generated artifact, and the value
// variant of a key never changes after declaration.
package fact

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
)

// Kind is the value variant of a fact.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInt
	KindBytes
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged value holding exactly one variant.
type Value struct {
	kind  Kind
	text  string
	b     bool
	i     int64
	bytes []byte
}

func Text(s string) Value { return Value{kind: KindText, text: s} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Bytes(b []byte) Value { return Value{kind: KindBytes, bytes: append([]byte(nil), b...)} }

func (v Value) Kind() Kind { return v.kind }
func (v Value) Text() string { return v.text }
func (v Value) Bool() bool { return v.b }
func (v Value) Int() int64 { return v.i }
func (v Value) Bytes() []byte { return append([]byte(nil), v.bytes...) }

// IsZero reports whether v holds the default value of its variant. For text
// facts this means "undetermined".
func (v Value) IsZero() bool {
	switch v.kind {
	case KindText:
		return v.text == ""
	case KindBool:
		return !v.b
	case KindInt:
		return v.i == 0
	case KindBytes:
		return len(v.bytes) == 0
	}
	return true
}

// String renders the value the way the generated PrintBuildFacts function
// prints it.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBytes:
		return hex.EncodeToString(v.bytes)
	}
	return v.text
}

// Fact is one named, typed, described piece of build provenance.
type Fact struct {
	Key         string
	Description string
	Value       Value
}

var (
	// ErrFrozen is returned when a frozen table is modified.
	ErrFrozen = errors.New("fact: table is frozen")
	// ErrUnknownKey is returned when setting a key that was never declared.
	ErrUnknownKey = errors.New("fact: unknown key")
)

// KindMismatchError is returned when a value of the wrong variant is stored
// under a declared key.
type KindMismatchError struct {
	Key  string
	Want Kind
	Got  Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("fact: %s is %s, cannot store %s", e.Key, e.Want, e.Got)
}

// Table is an ordered mapping from key to Fact. The zero value is not usable;
// call NewTable.
type Table struct {
	facts  []Fact
	index  map[string]int
	frozen bool
}

// NewTable returns an empty, writable table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Declare appends key with its description and initial value. Declaring a
// key twice, or with an empty description, is a programming error and
// panics.
func (t *Table) Declare(key, description string, initial Value) {
	if t.frozen {
		panic(ErrFrozen)
	}
	if description == "" {
		panic("fact: empty description for " + key)
	}
	if _, ok := t.index[key]; ok {
		panic("fact: duplicate key " + key)
	}
	t.index[key] = len(t.facts)
	t.facts = append(t.facts, Fact{Key: key, Description: description, Value: initial})
}

// Set replaces the value of a declared key. The variant must match the
// declared one.
func (t *Table) Set(key string, v Value) error {
	if t.frozen {
		return ErrFrozen
	}
	i, ok := t.index[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if want := t.facts[i].Value.kind; want != v.kind {
		return &KindMismatchError{Key: key, Want: want, Got: v.kind}
	}
	t.facts[i].Value = v
	return nil
}

// Get returns the fact stored under key.
func (t *Table) Get(key string) (Fact, bool) {
	i, ok := t.index[key]
	if !ok {
		return Fact{}, false
	}
	return t.facts[i], true
}

// Has reports whether key is declared.
func (t *Table) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// TextOf returns the text value of key, or "" when absent or not text.
func (t *Table) TextOf(key string) string {
	f, ok := t.Get(key)
	if !ok || f.Value.kind != KindText {
		return ""
	}
	return f.Value.text
}

// Len returns the number of declared keys.
func (t *Table) Len() int { return len(t.facts) }

// Facts returns a copy of the facts in declaration order.
func (t *Table) Facts() []Fact {
	out := make([]Fact, len(t.facts))
	copy(out, t.facts)
	return out
}

// Keys returns the declared keys in declaration order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.facts))
	for i, f := range t.facts {
		keys[i] = f.Key
	}
	return keys
}

// Freeze makes the table read-only. It returns t for chaining.
func (t *Table) Freeze() *Table {
	t.frozen = true
	return t
}

// Frozen reports whether the table is read-only.
func (t *Table) Frozen() bool { return t.frozen }

// Without returns a frozen copy of t omitting every key in deny. The
// declaration order of the remaining keys is preserved.
func (t *Table) Without(deny KeySet) *Table {
	out := NewTable()
	for _, f := range t.facts {
		if deny.Has(f.Key) {
			continue
		}
		out.index[f.Key] = len(out.facts)
		out.facts = append(out.facts, f)
	}
	return out.Freeze()
}

// KeySet is an unordered set of fact keys.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether key is in the set. Safe on a nil set.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add inserts keys into the set.
func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}
