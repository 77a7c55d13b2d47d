package match

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BindingKind tells which template construct produced a Binding.
type BindingKind int

const (
	BindingValue     BindingKind = iota // text captured by a placeholder
	BindingCondition                    // text produced by a taken conditional block
	BindingList                         // per-repetition maps of a repeated block
)

func (k BindingKind) String() string {
	switch k {
	case BindingValue:
		return "value"
	case BindingCondition:
		return "condition"
	case BindingList:
		return "list"
	default:
		return "unknown"
	}
}

// Binding is the inferred value of one named template construct: a string
// for placeholders and conditionals, an ordered list of nested Bindings for
// repeated blocks.
type Binding struct {
	Kind  BindingKind
	Value string
	List  []Bindings
}

// Value returns a placeholder binding.
func Value(s string) Binding { return Binding{Kind: BindingValue, Value: s} }

// Condition returns the binding of a taken conditional block.
func Condition(s string) Binding { return Binding{Kind: BindingCondition, Value: s} }

// List returns the binding of a repeated block.
func List(items ...Bindings) Binding {
	if items == nil {
		items = []Bindings{}
	}
	return Binding{Kind: BindingList, List: items}
}

// IsList reports whether b holds per-repetition maps.
func (b Binding) IsList() bool { return b.Kind == BindingList }

// Equal compares two bindings. Placeholder and conditional texts compare as
// strings; lists compare element-wise.
func (b Binding) Equal(o Binding) bool {
	if b.IsList() != o.IsList() {
		return false
	}
	if !b.IsList() {
		return b.Value == o.Value
	}
	if len(b.List) != len(o.List) {
		return false
	}
	for i := range b.List {
		if !b.List[i].Equal(o.List[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies b.
func (b Binding) Clone() Binding {
	if !b.IsList() {
		return b
	}
	items := make([]Bindings, len(b.List))
	for i, item := range b.List {
		items[i] = item.Clone()
	}
	return Binding{Kind: BindingList, List: items}
}

func (b Binding) String() string {
	if !b.IsList() {
		return fmt.Sprintf("%q", b.Value)
	}
	parts := make([]string, len(b.List))
	for i, item := range b.List {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Interface converts b to plain Go values: a string or a []map[string]any.
func (b Binding) Interface() any {
	if !b.IsList() {
		return b.Value
	}
	items := make([]map[string]any, len(b.List))
	for i, item := range b.List {
		items[i] = item.Interface()
	}
	return items
}

// MarshalJSON encodes b as a JSON string or an array of objects.
func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Interface())
}

// UnmarshalJSON decodes a JSON string into a placeholder binding and an
// array of objects into a list. Conditional bindings come back as
// placeholder bindings since JSON does not tell them apart.
func (b *Binding) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Value(s)
		return nil
	}
	var items []Bindings
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("binding must be a string or an array of objects: %w", err)
	}
	*b = List(items...)
	return nil
}

// Bindings maps construct names to their bindings within one flat scope.
type Bindings map[string]Binding

// Names returns the bound names in lexical order.
func (bs Bindings) Names() []string {
	names := make([]string, 0, len(bs))
	for name := range bs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Equal reports whether both scopes bind the same names to equal values.
func (bs Bindings) Equal(o Bindings) bool {
	if len(bs) != len(o) {
		return false
	}
	for name, b := range bs {
		ob, ok := o[name]
		if !ok || !b.Equal(ob) {
			return false
		}
	}
	return true
}

// Clone deep-copies the scope.
func (bs Bindings) Clone() Bindings {
	out := make(Bindings, len(bs))
	for name, b := range bs {
		out[name] = b.Clone()
	}
	return out
}

// Bind adds name to the scope.
//
// A name already bound to an equal value is kept once. A different value, or
// a second taken conditional under the same name, fails with a
// *DuplicateError.
func (bs Bindings) Bind(name string, b Binding) error {
	prev, ok := bs[name]
	if !ok {
		bs[name] = b
		return nil
	}
	if prev.Kind == BindingCondition || b.Kind == BindingCondition || !prev.Equal(b) {
		return &DuplicateError{Name: name, First: prev, Second: b}
	}
	return nil
}

// Merge binds every entry of o into bs following the rules of Bind.
func (bs Bindings) Merge(o Bindings) error {
	for _, name := range o.Names() {
		if err := bs.Bind(name, o[name]); err != nil {
			return err
		}
	}
	return nil
}

func (bs Bindings) String() string {
	names := bs.Names()
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + bs[name].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Interface converts the scope to plain Go maps, slices and strings.
func (bs Bindings) Interface() map[string]any {
	out := make(map[string]any, len(bs))
	for name, b := range bs {
		out[name] = b.Interface()
	}
	return out
}

// MarshalJSON encodes the scope as a JSON object.
func (bs Bindings) MarshalJSON() ([]byte, error) {
	return json.Marshal(bs.Interface())
}
