package nef

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n3-go/n3node/pkg/util"
	"github.com/n3-go/n3node/pkg/vm"
)

func TestNewFileAndRoundTrip(t *testing.T) {
	f, err := NewFile([]byte{0x51, 0x52, 0x53})
	require.NoError(t, err)
	require.Equal(t, Magic, f.Header.Magic)

	raw, err := f.Bytes()
	require.NoError(t, err)

	decoded, err := FileFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, f.Script, decoded.Script)
	require.Equal(t, f.Checksum, decoded.Checksum)
}

func TestNewFileRejectsEmptyScript(t *testing.T) {
	_, err := NewFile(nil)
	require.ErrorIs(t, err, errEmptyScript)
}

func TestNewFileRejectsOversizedScript(t *testing.T) {
	_, err := NewFile(make([]byte, MaxScriptLength+1))
	require.ErrorIs(t, err, errScriptTooLong)
}

func TestFileFromBytesRejectsBadMagic(t *testing.T) {
	f, err := NewFile([]byte{0x51})
	require.NoError(t, err)
	raw, err := f.Bytes()
	require.NoError(t, err)
	raw[0] ^= 0xff

	_, err = FileFromBytes(raw)
	require.Error(t, err)
}

func TestFileFromBytesRejectsTamperedChecksum(t *testing.T) {
	f, err := NewFile([]byte{0x51, 0x52})
	require.NoError(t, err)
	raw, err := f.Bytes()
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = FileFromBytes(raw)
	require.ErrorIs(t, err, errInvalidChecksum)
}

func TestMethodTokenEncodeDecodeRoundTrip(t *testing.T) {
	tok := MethodToken{
		Hash:       util.Uint160{1, 2, 3},
		Method:     "transfer",
		ParamCount: 4,
		HasReturn:  true,
		CallFlag:   vm.CallFlagAll,
	}
	f, err := NewFile([]byte{0x51})
	require.NoError(t, err)
	f.Tokens = []MethodToken{tok}
	f.Checksum = f.CalculateChecksum()

	raw, err := f.Bytes()
	require.NoError(t, err)

	decoded, err := FileFromBytes(raw)
	require.NoError(t, err)
	require.Len(t, decoded.Tokens, 1)
	require.Equal(t, tok.Method, decoded.Tokens[0].Method)
	require.Equal(t, tok.Hash, decoded.Tokens[0].Hash)
	require.True(t, decoded.Tokens[0].HasReturn)
}
