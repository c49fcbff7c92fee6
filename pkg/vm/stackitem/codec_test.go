package stackitem

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializePrimitives(t *testing.T) {
	cases := []Item{
		NewNull(),
		NewBool(true),
		NewBool(false),
		NewInteger(0),
		NewInteger(127),
		NewInteger(-1),
		NewBigInteger(big.NewInt(-123456789)),
		NewByteString([]byte("hello")),
		NewBuffer([]byte{1, 2, 3}),
	}
	for _, item := range cases {
		raw, err := Serialize(item)
		require.NoError(t, err)
		decoded, err := Deserialize(raw)
		require.NoError(t, err)
		require.Equal(t, item, decoded)
	}
}

func TestSerializeDeserializeArrayAndStruct(t *testing.T) {
	arr := NewArray([]Item{NewInteger(1), NewByteString([]byte("x")), NewBool(true)})
	raw, err := Serialize(arr)
	require.NoError(t, err)
	decoded, err := Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, arr, decoded)

	st := NewStruct([]Item{NewInteger(1), NewInteger(2)})
	raw, err = Serialize(st)
	require.NoError(t, err)
	decoded, err = Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, st, decoded)
}

func TestSerializeDeserializeMap(t *testing.T) {
	m := NewMap()
	m.Set(NewByteString([]byte("key")), NewInteger(42))
	raw, err := Serialize(m)
	require.NoError(t, err)
	decoded, err := Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, m, decoded)
}

func TestSerializeRejectsSelfReferencingArray(t *testing.T) {
	arr := NewArray(nil)
	arr.Append(arr)
	_, err := Serialize(arr)
	require.ErrorIs(t, err, ErrRecursive)
}

func TestDeserializeRejectsTooDeepNesting(t *testing.T) {
	var raw []byte
	for i := 0; i <= MaxDeserializeDepth+1; i++ {
		raw = append(raw, byte(ArrayT), 1)
	}
	raw = append(raw, byte(IntegerT), 0)
	_, err := Deserialize(raw)
	require.ErrorIs(t, err, ErrTooDeep)
}

func TestToJSONFromJSONRoundTrip(t *testing.T) {
	arr := NewArray([]Item{
		NewInteger(42),
		NewByteString([]byte("hi")),
		NewBool(true),
		NewNull(),
	})
	data, err := ToJSON(arr)
	require.NoError(t, err)

	decoded, err := FromJSON(data)
	require.NoError(t, err)
	got, ok := decoded.(*Array)
	require.True(t, ok)
	require.Len(t, got.Value(), 4)
}

func TestToJSONEncodesIntegerAsDecimalString(t *testing.T) {
	data, err := ToJSON(NewBigInteger(big.NewInt(123456789012345)))
	require.NoError(t, err)
	require.Contains(t, string(data), `"123456789012345"`)
}
