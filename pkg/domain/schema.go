package domain

import (
	"reflect"
	"sort"
)

// Reducer combines the current value of a field with a proposed update.
// Reducers must be pure: no mutation of either argument, same output for
// the same inputs. A nil current value is the identity (field absent).
type Reducer func(current, incoming any) (any, error)

// Replace is the default reduction rule: the new value wins.
func Replace(current, incoming any) (any, error) {
	return incoming, nil
}

// Append concatenates two ordered sequences, current first.
//
// Append is intentionally NOT idempotent: reducing the same update twice
// appends two copies. Deduplication is a caller concern, never the
// reducer's.
func Append(current, incoming any) (any, error) {
	if incoming == nil {
		return current, nil
	}
	inc := reflect.ValueOf(incoming)
	if inc.Kind() != reflect.Slice {
		return nil, &ShapeError{Rule: "append", Got: incoming}
	}
	if current == nil {
		return copySlice(inc).Interface(), nil
	}
	cur := reflect.ValueOf(current)
	if cur.Kind() != reflect.Slice {
		return nil, &ShapeError{Rule: "append", Got: current}
	}
	if cur.Type() == inc.Type() {
		out := reflect.MakeSlice(cur.Type(), 0, cur.Len()+inc.Len())
		out = reflect.AppendSlice(out, cur)
		out = reflect.AppendSlice(out, inc)
		return out.Interface(), nil
	}
	// Heterogeneous slices degrade to []any.
	out := make([]any, 0, cur.Len()+inc.Len())
	for i := 0; i < cur.Len(); i++ {
		out = append(out, cur.Index(i).Interface())
	}
	for i := 0; i < inc.Len(); i++ {
		out = append(out, inc.Index(i).Interface())
	}
	return out, nil
}

// MergeMap shallow-merges two key-value mappings: incoming keys overwrite,
// all others are preserved.
func MergeMap(current, incoming any) (any, error) {
	if incoming == nil {
		return current, nil
	}
	inc, ok := incoming.(map[string]any)
	if !ok {
		return nil, &ShapeError{Rule: "merge", Got: incoming}
	}
	out := make(map[string]any, len(inc))
	if current != nil {
		cur, ok := current.(map[string]any)
		if !ok {
			return nil, &ShapeError{Rule: "merge", Got: current}
		}
		for k, v := range cur {
			out[k] = v
		}
	}
	for k, v := range inc {
		out[k] = v
	}
	return out, nil
}

func copySlice(v reflect.Value) reflect.Value {
	out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
	reflect.Copy(out, v)
	return out
}

// FieldSpec declares how one state field behaves.
type FieldSpec struct {
	// Reduce combines the current value with a proposed update.
	// Nil means Replace.
	Reduce Reducer

	// Default produces the field's initial value for new runs.
	// Nil means the field starts absent.
	Default func() any
}

// Schema declares the fields a State may hold and their reduction rules.
// A Command update referencing an undeclared field is a contract
// violation and fails the step.
type Schema struct {
	fields map[string]FieldSpec
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{fields: make(map[string]FieldSpec)}
}

// AddField declares a field. Redeclaring a name overwrites the previous
// spec. Returns the schema for chaining.
func (s *Schema) AddField(name string, spec FieldSpec) *Schema {
	if spec.Reduce == nil {
		spec.Reduce = Replace
	}
	s.fields[name] = spec
	return s
}

// Field returns the spec for a declared field.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	spec, ok := s.fields[name]
	return spec, ok
}

// FieldNames returns the declared field names in lexical order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Init builds the initial state for a run: field defaults first, then the
// caller's initial values reduced on top.
func (s *Schema) Init(initial State) (State, error) {
	st := State{}
	for name, spec := range s.fields {
		if spec.Default != nil {
			st[name] = spec.Default()
		}
	}
	if len(initial) == 0 {
		return st, nil
	}
	return s.Merge(st, initial)
}

// Merge applies an update to a state and returns the resulting state.
// It is pure: neither argument is mutated. Fields absent from the update
// keep their prior value; a field absent from the state reduces against
// nil (the reducer identity). An undeclared field or a shape-incompatible
// value fails with *SchemaViolationError and leaves no partial result.
func (s *Schema) Merge(state State, update State) (State, error) {
	out := state.Clone()
	for _, name := range sortedKeys(update) {
		spec, ok := s.fields[name]
		if !ok {
			return nil, &SchemaViolationError{Field: name, Reason: "field not declared in schema"}
		}
		merged, err := spec.Reduce(out[name], update[name])
		if err != nil {
			return nil, &SchemaViolationError{Field: name, Reason: err.Error()}
		}
		out[name] = merged
	}
	return out, nil
}

// Coalesce folds several updates into one combined update, applying each
// field's reduction rule in argument order. It is how the tool-dispatch
// barrier turns per-call Commands into a single update while preserving
// request order for append fields.
func (s *Schema) Coalesce(updates ...State) (State, error) {
	combined := State{}
	for _, u := range updates {
		merged, err := s.Merge(combined, u)
		if err != nil {
			return nil, err
		}
		combined = merged
	}
	return combined, nil
}

func sortedKeys(st State) []string {
	keys := make([]string, 0, len(st))
	for k := range st {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
