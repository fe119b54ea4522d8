package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": true}, `{"a":true,"b":1}`},
		{"nested", map[string]any{"x": []any{map[string]any{"z": "1", "y": "2"}}}, `{"x":[{"y":"2","z":"1"}]}`},
		{"integral float", float64(42), `42`},
		{"int64", int64(-7), `-7`},
		{"no html escaping", "<a&b>", `"<a&b>"`},
		{"nfc", "cafe\u0301", "\"caf\u00e9\""},
		{"line separator literal", "a\u2028b", "\"a\u2028b\""},
		{"escaped backslash kept", `\u2028`, `"\\u2028"`},
		{"empty array", []any{}, `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestMarshalCanonical_Rejects(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"a": nil})
	assert.ErrorContains(t, err, "null is forbidden")

	_, err = MarshalCanonical(1.5)
	assert.ErrorContains(t, err, "non-integral")

	_, err = MarshalCanonical(struct{}{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D.. which sort before U+FF5E in
	// UTF-16, but after it in UTF-8.
	m := map[string]any{"\uFF5E": 1, "\U0001F600": 2}
	assert.Equal(t, []string{"\U0001F600", "\uFF5E"}, sortedKeys(m))
}
