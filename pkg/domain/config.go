package domain

import "fmt"

// RunConfig is the opaque key-value bag passed at run start. Tools read
// it (identity keys, ambient settings); the executor never mutates it.
type RunConfig map[string]any

// Get returns a config value and whether it is present.
func (c RunConfig) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// GetString returns a string config value, or "" if absent or not a string.
func (c RunConfig) GetString(key string) string {
	s, _ := c[key].(string)
	return s
}

// Require returns a config value or ErrConfigKeyMissing. Tools surface
// the error as a ToolExecutionError, which the dispatch node contains.
func (c RunConfig) Require(key string) (any, error) {
	v, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConfigKeyMissing, key)
	}
	return v, nil
}

// Clone returns a copy with a fresh top-level map.
func (c RunConfig) Clone() RunConfig {
	if c == nil {
		return nil
	}
	out := make(RunConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
