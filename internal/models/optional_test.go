package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalUnmarshal(t *testing.T) {
	type payload struct {
		Title    Optional[string] `json:"title"`
		Priority Optional[int]    `json:"priority"`
	}

	t.Run("absent field stays absent", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		require.False(t, p.Title.Present)
		require.False(t, p.Priority.Present)
		require.Nil(t, p.Title.Ptr())
	})

	t.Run("explicit null is present and null", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"priority": null}`), &p))
		require.True(t, p.Priority.Present)
		require.True(t, p.Priority.Null)
		require.Nil(t, p.Priority.Ptr())
	})

	t.Run("value is present with value", func(t *testing.T) {
		var p payload
		require.NoError(t, json.Unmarshal([]byte(`{"title": "write tests", "priority": 2}`), &p))
		require.True(t, p.Title.Present)
		require.False(t, p.Title.Null)
		require.Equal(t, "write tests", p.Title.Value)
		require.NotNil(t, p.Priority.Ptr())
		require.Equal(t, 2, *p.Priority.Ptr())
	})
}
