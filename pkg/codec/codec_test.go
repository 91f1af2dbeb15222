package codec

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/graphdelta/pkg/hashio"
)

func roundtripInt(t *testing.T, v int64) int64 {
	var buf bytes.Buffer
	w := NewWriter(hashio.NewHashedWriter(&buf))
	require.NoError(t, w.WriteInt(v))
	require.NoError(t, w.Flush())

	r := NewReader(hashio.NewHashedReader(&buf))
	got, err := r.ReadInt()
	require.NoError(t, err)
	return got
}

func TestIntRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("decode(encode(int)) == int", prop.ForAll(
		func(v int64) bool {
			return roundtripInt(t, v) == v
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(hashio.NewHashedWriter(&buf))
	require.NoError(t, w.WriteString("hello, graph"))
	require.NoError(t, w.Flush())

	r := NewReader(hashio.NewHashedReader(&buf))
	got, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello, graph", got)
}

func TestReadIntOnStringFailsWithBadTag(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(hashio.NewHashedWriter(&buf))
	require.NoError(t, w.WriteString("not an int"))
	require.NoError(t, w.Flush())

	r := NewReader(hashio.NewHashedReader(&buf))
	_, err := r.ReadInt()
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestTruncatedReadFails(t *testing.T) {
	r := NewReader(hashio.NewHashedReader(bytes.NewReader([]byte{byte(TagInt)})))
	_, err := r.ReadInt()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestPropertyValueRoundTrip(t *testing.T) {
	values := []PropertyValue{
		Null(),
		Bool(true),
		Bool(false),
		Int(-42),
		Float(3.14159),
		String("unicode: héllo"),
		List(Int(1), String("two"), Bool(true)),
		Map(map[string]PropertyValue{
			"a": Int(1),
			"b": List(String("x"), String("y")),
		}),
	}

	for _, v := range values {
		var buf bytes.Buffer
		w := NewWriter(hashio.NewHashedWriter(&buf))
		require.NoError(t, w.WritePropertyValue(v))
		require.NoError(t, w.Flush())

		r := NewReader(hashio.NewHashedReader(&buf))
		got, err := r.ReadPropertyValue()
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "round trip mismatch for kind %d", v.Kind)
	}
}
