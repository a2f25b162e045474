package highlight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEncode(t *testing.T) {
	r := Ranges{
		{Start: 1.0 / 3, End: 0.5, Kind: KindObject},
		{Start: 0.1, End: 0.2, Kind: KindBreak},
		{Start: 0.99999, End: 1, Kind: KindBookmark},
		{Start: 0, End: 0.1},
	}
	data, err := Encode(r)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0.3333,0.5,"o"],[0.1,0.2,"b"],[1,1,"k"],[0,0.1,"o"]]`, string(data))
}

func TestEncode_Nil(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecode(t *testing.T) {
	got, err := Decode([]byte(`[[0.1,0.2,"b"],[0.3,0.4,"o"],[0.5,0.506,"k"],[0.6,0.7,"z"],[0.8,0.9]]`))
	require.NoError(t, err)

	assert.Equal(t, Ranges{
		{Start: 0.1, End: 0.2, Kind: KindBreak},
		{Start: 0.3, End: 0.4, Kind: KindObject},
		{Start: 0.5, End: 0.506, Kind: KindBookmark},
		{Start: 0.6, End: 0.7, Kind: KindObject},
		{Start: 0.8, End: 0.9, Kind: KindObject},
	}, got)
}

func TestDecode_Empty(t *testing.T) {
	got, err := Decode(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDecode_Invalid(t *testing.T) {
	for _, in := range []string{
		`{"start":0}`,
		`[[0.1]]`,
		`[[0.1,0.2,"o",4]]`,
		`[["a",0.2,"o"]]`,
		`[[0.1,true,"o"]]`,
		`[[0.1,0.2,3]]`,
	} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestRange_EmbeddedInStruct(t *testing.T) {
	type item struct {
		Highlights Ranges `json:"highlights"`
	}
	data, err := json.Marshal(item{Highlights: Ranges{{Start: 0, End: 0.5, Kind: KindBreak}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"highlights":[[0,0.5,"b"]]}`, string(data))

	var back item
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, KindBreak, back.Highlights[0].Kind)
}

func TestRange_MarshalYAML(t *testing.T) {
	data, err := yaml.Marshal(Ranges{{Start: 0.25, End: 0.5, Kind: KindBookmark}})
	require.NoError(t, err)

	var back [][]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, [][]any{{0.25, 0.5, "k"}}, back)
}

func TestKindLetters(t *testing.T) {
	for _, k := range []Kind{KindObject, KindBreak, KindBookmark} {
		assert.Equal(t, k, KindFromLetter(k.Letter()))
	}
	assert.Equal(t, "o", Kind("").Letter())
}
