package jsondoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/errors"
)

func TestCheck(t *testing.T) {
	assert.NoError(t, Check("doc.json", []byte(`{"a":1}`)))
	assert.ErrorIs(t, Check("doc.json", []byte(`{"a":`)), errors.ErrFormat)
	assert.ErrorIs(t, Check("doc.json", []byte(`[1,2]`)), errors.ErrFormat)
}

func TestSetMemberPrettyInsert(t *testing.T) {
	doc := []byte("{\n  \"version\": 2,\n  \"plugins\": {\n    \"a@m\": []\n  },\n  \"foreign\": {\"keep\":   true}\n}\n")

	out, err := SetMember(doc, "plugins", "b@m", []byte("[]"), 2)
	require.NoError(t, err)
	assert.Equal(t,
		"{\n  \"version\": 2,\n  \"plugins\": {\n    \"a@m\": [],\n    \"b@m\": []\n  },\n  \"foreign\": {\"keep\":   true}\n}\n",
		string(out))
}

func TestSetMemberIntoEmptyObject(t *testing.T) {
	doc := []byte("{\n  \"plugins\": {}\n}\n")
	out, err := SetMember(doc, "plugins", "x.y@m", []byte("1"), 2)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"plugins\": {\n    \"x.y@m\": 1\n  }\n}\n", string(out))
	assert.Equal(t, int64(1), Get(out, "plugins", "x.y@m").Int())
}

func TestSetMemberCreatesParent(t *testing.T) {
	doc := []byte("{\n  \"theme\": \"dark\"\n}")
	out, err := SetMember(doc, "enabledPlugins", "p@m", []byte("true"), 2)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"theme\": \"dark\",\n  \"enabledPlugins\": {\n    \"p@m\": true\n  }\n}", string(out))
}

func TestSetMemberCompact(t *testing.T) {
	out, err := SetMember([]byte(`{"a":{"x":1}}`), "a", "y", []byte("2"), 2)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":1,"y":2}}`, string(out))

	out, err = SetMember(out, "a", "x", []byte("3"), 2)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":3,"y":2}}`, string(out))
}

func TestSetMemberRoot(t *testing.T) {
	out, err := SetMember([]byte("{}"), "", "official", []byte(`{"a":1}`), 1)
	require.NoError(t, err)
	assert.Equal(t, `{"official":{"a":1}}`, string(out))
}

func TestSetMemberRejectsNonObjectParent(t *testing.T) {
	_, err := SetMember([]byte(`{"plugins":[1]}`), "plugins", "x", []byte("1"), 2)
	assert.Error(t, err)
}

func TestArray(t *testing.T) {
	pretty := []byte("{\n}")
	assert.Equal(t, "[\n      {\"a\":1},\n      {\"b\":2}\n    ]",
		string(Array(pretty, [][]byte{[]byte(`{"a":1}`), []byte(`{"b":2}`)}, 2)))
	assert.Equal(t, `[1,2]`, string(Array([]byte("{}"), [][]byte{[]byte("1"), []byte("2")}, 2)))
	assert.Equal(t, `[]`, string(Array(pretty, nil, 2)))
}
