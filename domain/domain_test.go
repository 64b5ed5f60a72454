package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharanvkt/insane-dashboard-v2/errors"
	"github.com/sharanvkt/insane-dashboard-v2/internal/util"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"  Example.COM  ", "https://example.com"},
		{"http://example.com", "https://example.com"},
		{"HTTPS://shop.example.com/", "https://shop.example.com"},
		{"https://example.com/landing?ref=ad", "https://example.com"},
		{"example.com:8443", "https://example.com:8443"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := CanonicalURL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalURL_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "https://", "http://"} {
		_, err := CanonicalURL(input)
		require.Error(t, err, input)
		assert.True(t, errors.IsValidationError(err))
	}
}

func TestNewUpdate_RejectsUnknownField(t *testing.T) {
	_, err := NewUpdate(map[string]string{"content9": "x"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	u, err := NewUpdate(map[string]string{"content2": "Sale", "name": "A"})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldName, FieldContent2}, u.Fields())
}

func TestUpdate_Apply(t *testing.T) {
	d := &Domain{Name: "A", URL: "https://a.com", Content1: util.Ptr("hello")}
	before := d.Snapshot()

	var u Update
	u.Set(FieldContent1, "world")
	u.Set(FieldContent3, "new")

	merged := u.Apply(before)
	assert.Equal(t, "world", *merged[FieldContent1])
	assert.Equal(t, "new", *merged[FieldContent3])
	assert.Equal(t, "A", *merged[FieldName])
	assert.Nil(t, merged[FieldContent2])

	// the input snapshot is not modified
	assert.Equal(t, "hello", *before[FieldContent1])
	assert.Nil(t, before[FieldContent3])

	d.SetSnapshot(merged)
	assert.Equal(t, "world", *d.Content1)
	assert.Equal(t, "new", *d.Content3)
}

func TestUpdate_Normalize(t *testing.T) {
	var u Update
	u.Set(FieldName, "  Spring Sale ")
	u.Set(FieldURL, "http://Sale.Example.com/path")

	n, err := u.Normalize()
	require.NoError(t, err)
	name, _ := n.Get(FieldName)
	link, _ := n.Get(FieldURL)
	assert.Equal(t, "Spring Sale", name)
	assert.Equal(t, "https://sale.example.com", link)

	var blank Update
	blank.Set(FieldName, "  ")
	_, err = blank.Normalize()
	require.Error(t, err)
	assert.Equal(t, "Domain name is required", errors.Message(err))
}

func TestUpdate_JSON(t *testing.T) {
	var u Update
	require.NoError(t, json.Unmarshal([]byte(`{"content1":"B","url":"x.com"}`), &u))
	v, ok := u.Get(FieldContent1)
	assert.True(t, ok)
	assert.Equal(t, "B", v)

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content1":"B","url":"x.com"}`, string(data))

	err = json.Unmarshal([]byte(`{"favicon":"x"}`), &u)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
