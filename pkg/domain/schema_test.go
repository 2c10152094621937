package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() *Schema {
	s := NewSchema()
	s.AddField("messages", MessagesField())
	s.AddField("user_info", FieldSpec{Reduce: MergeMap})
	s.AddField("counter", FieldSpec{Reduce: Replace})
	return s
}

func TestSchema_Merge(t *testing.T) {
	s := testSchema()

	t.Run("replace wins", func(t *testing.T) {
		st, err := s.Merge(State{"counter": 1}, State{"counter": 2})
		require.NoError(t, err)
		assert.Equal(t, 2, st["counter"])
	})

	t.Run("untouched fields keep prior value", func(t *testing.T) {
		st, err := s.Merge(State{"counter": 1, "user_info": map[string]any{"a": 1}}, State{"counter": 2})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1}, st["user_info"])
	})

	t.Run("append concatenates current first", func(t *testing.T) {
		st, err := s.Merge(
			State{"messages": []Message{{Content: "hi"}}},
			State{"messages": []Message{{Content: "there"}}},
		)
		require.NoError(t, err)
		msgs := st.Messages("messages")
		require.Len(t, msgs, 2)
		assert.Equal(t, "hi", msgs[0].Content)
		assert.Equal(t, "there", msgs[1].Content)
	})

	t.Run("append against absent field is identity", func(t *testing.T) {
		st, err := s.Merge(State{}, State{"messages": []Message{{Content: "first"}}})
		require.NoError(t, err)
		assert.Len(t, st.Messages("messages"), 1)
	})

	t.Run("shallow merge overwrites new keys only", func(t *testing.T) {
		st, err := s.Merge(
			State{"user_info": map[string]any{"name": "Alice", "age": 30}},
			State{"user_info": map[string]any{"name": "Bob"}},
		)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"name": "Bob", "age": 30}, st["user_info"])
	})

	t.Run("unknown field fails with SchemaViolation", func(t *testing.T) {
		_, err := s.Merge(State{}, State{"unknown_field": 1})
		var violation *SchemaViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "unknown_field", violation.Field)
	})

	t.Run("wrong shape fails with SchemaViolation", func(t *testing.T) {
		_, err := s.Merge(State{}, State{"messages": "not a sequence"})
		var violation *SchemaViolationError
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, "messages", violation.Field)
	})

	t.Run("merge is pure", func(t *testing.T) {
		before := State{"counter": 1}
		_, err := s.Merge(before, State{"counter": 9})
		require.NoError(t, err)
		assert.Equal(t, 1, before["counter"])
	})
}

func TestAppend_Associativity(t *testing.T) {
	s := testSchema()

	u1 := State{"messages": []Message{{Content: "a"}, {Content: "b"}}}
	u2 := State{"messages": []Message{{Content: "c"}}}

	// Sequential merges.
	sequential, err := s.Merge(State{}, u1)
	require.NoError(t, err)
	sequential, err = s.Merge(sequential, u2)
	require.NoError(t, err)

	// Single merge of the pre-concatenated updates.
	combined, err := s.Coalesce(u1, u2)
	require.NoError(t, err)
	oneShot, err := s.Merge(State{}, combined)
	require.NoError(t, err)

	assert.Equal(t, sequential.Messages("messages"), oneShot.Messages("messages"))
}

func TestAppend_NotIdempotent(t *testing.T) {
	s := testSchema()
	update := State{"messages": []Message{{Content: "dup"}}}

	st, err := s.Merge(State{}, update)
	require.NoError(t, err)
	st, err = s.Merge(st, update)
	require.NoError(t, err)

	// Same update twice appends two copies. Deliberate: reducers never
	// deduplicate.
	assert.Len(t, st.Messages("messages"), 2)
}

func TestSchema_Coalesce_PreservesOrder(t *testing.T) {
	s := testSchema()

	combined, err := s.Coalesce(
		State{"messages": []Message{{Content: "1"}}},
		State{"messages": []Message{{Content: "2"}}, "counter": 1},
		State{"messages": []Message{{Content: "3"}}, "counter": 2},
	)
	require.NoError(t, err)

	msgs := combined.Messages("messages")
	require.Len(t, msgs, 3)
	assert.Equal(t, "1", msgs[0].Content)
	assert.Equal(t, "3", msgs[2].Content)
	// Replace folds to the last value.
	assert.Equal(t, 2, combined["counter"])
}

func TestSchema_Init(t *testing.T) {
	s := testSchema()

	t.Run("defaults applied", func(t *testing.T) {
		st, err := s.Init(nil)
		require.NoError(t, err)
		assert.NotNil(t, st["messages"])
	})

	t.Run("initial values reduce over defaults", func(t *testing.T) {
		st, err := s.Init(State{"messages": []Message{{Content: "hi"}}})
		require.NoError(t, err)
		assert.Len(t, st.Messages("messages"), 1)
	})

	t.Run("invalid initial fails", func(t *testing.T) {
		_, err := s.Init(State{"nope": true})
		var violation *SchemaViolationError
		assert.ErrorAs(t, err, &violation)
	})
}

func TestAppend_HeterogeneousSlices(t *testing.T) {
	out, err := Append([]string{"a"}, []int{1})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", 1}, out)
}

func TestRouting_LastDirectiveWins(t *testing.T) {
	cmds := []Command{
		{Goto: []string{"a"}},
		{Update: State{"counter": 1}},
		{Goto: []string{"b", End}},
		{Update: State{"counter": 2}},
	}
	assert.Equal(t, []string{"b", End}, Routing(cmds))
	assert.Nil(t, Routing([]Command{{Update: State{"counter": 1}}}))
}
