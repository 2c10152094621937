package domain

// State is the shared, typed container of named fields owned by a Run.
// Exactly one authoritative State instance exists per Run; nodes never
// mutate it directly, they propose updates through Commands which the
// executor reduces via the Schema.
type State map[string]any

// Clone returns a copy of the state with a fresh top-level map.
// Values are copied shallowly; reducers never mutate values in place,
// so sharing them between snapshots is safe.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Get returns the value of a field and whether it is present.
func (s State) Get(key string) (any, bool) {
	v, ok := s[key]
	return v, ok
}

// Messages returns the conversation stored under the given field, or nil
// if the field is absent or holds something else.
func (s State) Messages(field string) []Message {
	msgs, _ := s[field].([]Message)
	return msgs
}
