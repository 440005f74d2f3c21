package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/stackjson-go/pkg/stackjson"
	"github.com/lk2023060901/stackjson-go/pkg/util/merr"
)

type message struct {
	Op      uint32   `json:"op"`
	Seq     uint64   `json:"seq"`
	Room    string   `json:"room"`
	Members []string `json:"members"`
	Reply   *message `json:"reply,omitempty"`
}

func TestSerializers_Agree(t *testing.T) {
	in := &message{Op: 3, Seq: 42, Room: "lobby", Members: []string{"a", "b"}, Reply: &message{Op: 4}}

	var outputs []string
	for _, name := range Names() {
		s, err := ByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())

		data, err := s.Marshal(in)
		require.NoError(t, err)
		outputs = append(outputs, string(data))

		var out message
		require.NoError(t, s.Unmarshal(data, &out))
		assert.Equal(t, *in, out)
	}
	for _, out := range outputs[1:] {
		assert.JSONEq(t, outputs[0], out)
	}
}

func TestByName(t *testing.T) {
	_, err := ByName("gob")
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	_, err = ByName(NameStackJSON, stackjson.WithMaxDepth(0))
	assert.ErrorIs(t, err, merr.ErrParameterInvalid)

	s, err := ByName(NameStackJSON, stackjson.WithNamingPolicy(stackjson.CamelCaseNaming))
	require.NoError(t, err)
	type pair struct{ Left, Right int }
	data, err := s.Marshal(pair{1, 2})
	require.NoError(t, err)
	assert.Equal(t, `{"left":1,"right":2}`, string(data))
	assert.NotNil(t, s.(*StackJSONSerializer).Inner())
}
