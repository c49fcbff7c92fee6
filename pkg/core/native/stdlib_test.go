package native

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/vm"
	"github.com/n3-go/n3node/pkg/vm/stackitem"
)

func TestStdLibSerializeDeserializeRoundTrip(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	res, err := s.Metadata().Invoke(ic, "serialize", vm.CallFlagAll, []stackitem.Item{stackitem.NewInteger(123)})
	require.NoError(t, err)

	back, err := s.Metadata().Invoke(ic, "deserialize", vm.CallFlagAll, []stackitem.Item{res})
	require.NoError(t, err)
	require.Equal(t, stackitem.NewInteger(123), back)
}

func TestStdLibItoaAtoiRoundTrip(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	res, err := s.Metadata().Invoke(ic, "itoa", vm.CallFlagAll, []stackitem.Item{stackitem.NewInteger(255)})
	require.NoError(t, err)
	require.Equal(t, "255", string(res.(stackitem.ByteString)))

	back, err := s.Metadata().Invoke(ic, "atoi", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString([]byte("255"))})
	require.NoError(t, err)
	require.Equal(t, stackitem.NewInteger(255), back)
}

func TestStdLibBase64RoundTrip(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	enc, err := s.Metadata().Invoke(ic, "base64Encode", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString([]byte("neo"))})
	require.NoError(t, err)

	dec, err := s.Metadata().Invoke(ic, "base64Decode", vm.CallFlagAll, []stackitem.Item{enc})
	require.NoError(t, err)
	require.Equal(t, "neo", string(dec.(stackitem.ByteString)))
}

func TestStdLibBase58RoundTrip(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	enc, err := s.Metadata().Invoke(ic, "base58Encode", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString([]byte("neo"))})
	require.NoError(t, err)

	dec, err := s.Metadata().Invoke(ic, "base58Decode", vm.CallFlagAll, []stackitem.Item{enc})
	require.NoError(t, err)
	require.Equal(t, "neo", string(dec.(stackitem.ByteString)))
}

func TestStdLibMemoryCompare(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	res, err := s.Metadata().Invoke(ic, "memoryCompare", vm.CallFlagAll, []stackitem.Item{
		stackitem.NewByteString([]byte("a")), stackitem.NewByteString([]byte("b")),
	})
	require.NoError(t, err)
	require.Equal(t, stackitem.NewInteger(-1), res)
}

func TestStdLibAtoiRejectsNonNumericString(t *testing.T) {
	s := NewStdLib()
	ic := newCryptoTestContext(t)

	_, err := s.Metadata().Invoke(ic, "atoi", vm.CallFlagAll, []stackitem.Item{stackitem.NewByteString([]byte("not-a-number"))})
	require.ErrorIs(t, err, errInvalidBase)
}
