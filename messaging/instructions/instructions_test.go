package instructions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"vaultconnector/engine/library"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/golang/glog.(*loggingT).flushDaemon"))
}

func TestEncodeDecode(t *testing.T) {
	args := SetOperatorArgs{
		Prefix:   library.Prefix{1},
		Operator: library.Prefix{2}.Account(3),
		Mask:     library.MaskOf(0, 200),
	}
	data, err := Encode(OpSetOperator, args)
	require.NoError(t, err)

	instruction, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, OpSetOperator, instruction.Op)
	var out SetOperatorArgs
	require.NoError(t, instruction.Bind(&out))
	assert.Equal(t, args, out)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("{"), []byte(`{"args":{}}`)} {
		_, err := Decode(data)
		assert.True(t, library.IsError(err, library.InvalidData), "%q", data)
	}

	instruction, err := Decode(MustEncode(OpCall, nil))
	require.NoError(t, err)
	var args CallArgs
	assert.True(t, library.IsError(instruction.Bind(&args), library.InvalidData))

	instruction, err = Decode([]byte(`{"op":"call","args":{"target":"0x12"}}`))
	require.NoError(t, err)
	assert.True(t, library.IsError(instruction.Bind(&args), library.InvalidData))
}

func TestMustEncodePanicsOnUnmarshalableArgs(t *testing.T) {
	assert.Panics(t, func() { MustEncode(OpCall, make(chan int)) })
}
