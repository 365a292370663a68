package tuple

import (
	"testing"

	"storemy/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	td, err := NewTupleDesc(
		[]types.Type{types.IntType, types.StringType},
		[]string{"id", "name"},
	)
	require.NoError(t, err)

	tup := NewTuple(td)
	require.NoError(t, tup.SetField(0, types.NewIntField(42)))
	require.NoError(t, tup.SetField(1, types.NewStringField("hello", 32)))

	data, err := tup.Serialize()
	require.NoError(t, err)

	decoded, err := Deserialize(td, data)
	require.NoError(t, err)

	f0, err := decoded.GetField(0)
	require.NoError(t, err)
	f1, err := decoded.GetField(1)
	require.NoError(t, err)
	require.Equal(t, "42", f0.String())
	require.Equal(t, "hello", f1.String())
}

func TestSerializeFailsOnUnsetField(t *testing.T) {
	td, err := NewTupleDesc([]types.Type{types.IntType}, []string{"id"})
	require.NoError(t, err)
	tup := NewTuple(td)

	_, err = tup.Serialize()
	require.Error(t, err)
}
