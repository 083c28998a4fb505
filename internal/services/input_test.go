package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListNormalizesStringAndArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"comma string", `"a, b ,c"`, []string{"a", "b", "c"}},
		{"newline string", `"design\nbuild\r\n deploy "`, []string{"design", "build", "deploy"}},
		{"empties dropped", `",, a ,,"`, []string{"a"}},
		{"array trimmed", `[" a ", "", "b"]`, []string{"a", "b"}},
		{"array items keep commas", `["a, b"]`, []string{"a, b"}},
		{"null", `null`, []string{}},
		{"missing", ``, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseList(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseListEquivalentInputs(t *testing.T) {
	fromString, err := ParseList(json.RawMessage(`"a, b ,c"`))
	require.NoError(t, err)
	fromArray, err := ParseList(json.RawMessage(`["a","b","c"]`))
	require.NoError(t, err)

	assert.Equal(t, fromArray, fromString)
}

func TestParseListRejectsOtherShapes(t *testing.T) {
	for _, raw := range []string{`42`, `{"a":1}`, `[1,2]`} {
		_, err := ParseList(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestParseAmount(t *testing.T) {
	v, ok, err := ParseAmount(json.RawMessage(`1500.506`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1500.51, v)

	v, ok, err = ParseAmount(json.RawMessage(`" 250 "`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 250.0, v)

	_, ok, err = ParseAmount(json.RawMessage(`"abc"`))
	assert.True(t, ok)
	assert.Error(t, err)

	_, ok, err = ParseAmount(nil)
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-12-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("2026-12-01T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("next week")
	assert.Error(t, err)
}
