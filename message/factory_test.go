package message

import (
	"testing"

	"github.com/isml-go/isml"
	"github.com/stretchr/testify/require"
)

type fakeSession struct{ id uint64 }

func (s fakeSession) ID() isml.SessionId { return isml.SessionId(s.id) }

func TestRegisterAndBuild(t *testing.T) {
	const A = isml.MessageType(0)

	descriptor := NewMessageDescriptor(A)
	_, err := RegisterField[int32](descriptor, "a")
	require.NoError(t, err)
	_, err = RegisterField[int32](descriptor, "b")
	require.NoError(t, err)

	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(descriptor))

	msg, err := factory.CreateMessage(A, 1, fakeSession{id: 1})
	require.NoError(t, err)

	a, err := Field[int32](msg, "a")
	require.NoError(t, err)
	require.Equal(t, int32(0), a)

	b, err := Field[int32](msg, "b")
	require.NoError(t, err)
	require.Equal(t, int32(0), b)
}

func TestCreateMessageUnknownType(t *testing.T) {
	factory := NewMessageFactory()
	_, err := factory.CreateMessage(isml.MessageType(1), 1, fakeSession{id: 1})
	require.Error(t, err)
}

func TestRegisterDuplicateField(t *testing.T) {
	descriptor := NewMessageDescriptor(isml.MessageType(0))
	_, err := RegisterField[int32](descriptor, "x")
	require.NoError(t, err)
	_, err = RegisterField[int32](descriptor, "x")
	require.Error(t, err)
}

func TestAddDuplicateMessageType(t *testing.T) {
	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(NewMessageDescriptor(isml.MessageType(0))))
	require.Error(t, factory.AddDescriptor(NewMessageDescriptor(isml.MessageType(0))))
}

func TestFieldDoesNotExist(t *testing.T) {
	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(NewMessageDescriptor(isml.MessageType(0))))

	msg, err := factory.CreateMessage(isml.MessageType(0), 1, fakeSession{id: 1})
	require.NoError(t, err)

	_, err = Field[int32](msg, "missing")
	require.Error(t, err)
}

func TestFieldWrongTypeIsNotCoerced(t *testing.T) {
	descriptor := NewMessageDescriptor(isml.MessageType(0))
	_, err := RegisterField[int32](descriptor, "a")
	require.NoError(t, err)

	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(descriptor))

	msg, err := factory.CreateMessage(isml.MessageType(0), 1, fakeSession{id: 1})
	require.NoError(t, err)

	_, err = Field[int64](msg, "a")
	require.Error(t, err)
}

func TestCloneAssignsNewIDAndDeepCopiesFields(t *testing.T) {
	descriptor := NewMessageDescriptor(isml.MessageType(0))
	_, err := RegisterField[int32](descriptor, "a")
	require.NoError(t, err)

	factory := NewMessageFactory()
	require.NoError(t, factory.AddDescriptor(descriptor))

	msg, err := factory.CreateMessage(isml.MessageType(0), 1, fakeSession{id: 1})
	require.NoError(t, err)

	clone := msg.Clone(2)
	require.Equal(t, isml.MessageId(2), clone.ID())
	require.NotSame(t, msg.Fields(), clone.Fields())
}
