package message

import (
	"bytes"
	"testing"

	"github.com/isml-go/isml"
	"github.com/isml-go/isml/codec"
	"github.com/stretchr/testify/require"
)

func TestBinaryRoundTripOfAMessage(t *testing.T) {
	descriptor := NewMessageDescriptor(isml.MessageType(0))
	_, err := RegisterField[int32](descriptor, "a")
	require.NoError(t, err)
	_, err = RegisterField[int32](descriptor, "b")
	require.NoError(t, err)

	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(descriptor))

	msg, err := factory.CreateMessage(isml.MessageType(0), 1, fakeSession{id: 1})
	require.NoError(t, err)

	msg.Fields().Fields()[0].(*ValueField[int32]).Set(10)
	msg.Fields().Fields()[1].(*ValueField[int32]).Set(20)

	c := codec.NewBinaryCodec()
	var buf bytes.Buffer
	require.NoError(t, msg.Encode(c, codec.NewEncodeContext(codec.BinaryTag, &buf)))

	decoded, err := factory.CreateMessage(isml.MessageType(0), 2, fakeSession{id: 1})
	require.NoError(t, err)

	var typ uint16
	decCtx := codec.NewDecodeContext(codec.BinaryTag, bytes.NewReader(buf.Bytes()))
	require.NoError(t, c.Decode(decCtx, &typ, ""))
	require.NoError(t, decoded.Fields().Decode(c, decCtx))

	gotA, err := Field[int32](decoded, "a")
	require.NoError(t, err)
	gotB, err := Field[int32](decoded, "b")
	require.NoError(t, err)

	require.Equal(t, int32(10), gotA)
	require.Equal(t, int32(20), gotB)
}
