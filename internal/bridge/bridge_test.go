package bridge

import (
	"encoding/json"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydrosim/systems/internal/transport"
	"github.com/hydrosim/systems/pkg/core"
)

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRepublish_TwistEnvelope(t *testing.T) {
	node := transport.NewNode(nil)
	s, err := NewServer("127.0.0.1:0", node, nil)
	require.NoError(t, err)

	var got core.Twist
	require.NoError(t, transport.Subscribe(node, "/model/sub/cmd_vel",
		func(msg core.Twist, _ transport.MessageInfo) { got = msg }))

	env := Envelope{
		Topic:   "/model/sub/cmd_vel",
		Payload: mustRaw(t, core.Twist{Linear: mgl64.Vec3{1, 0, 0}}),
	}
	require.NoError(t, s.republish(env))
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, got.Linear)
}

func TestRepublish_DoubleEnvelope(t *testing.T) {
	node := transport.NewNode(nil)
	s, err := NewServer("127.0.0.1:0", node, nil)
	require.NoError(t, err)

	var got core.Double
	require.NoError(t, transport.Subscribe(node, "/model/sub/joint/rudder/0/cmd_pos",
		func(msg core.Double, _ transport.MessageInfo) { got = msg }))

	env := Envelope{
		Topic:   "/model/sub/joint/rudder/0/cmd_pos",
		Payload: mustRaw(t, core.Double{Data: 0.4}),
	}
	require.NoError(t, s.republish(env))
	assert.Equal(t, 0.4, got.Data)
}

func TestRepublish_Rejections(t *testing.T) {
	node := transport.NewNode(nil)
	s, err := NewServer("127.0.0.1:0", node, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		env  Envelope
	}{
		{"unknown topic kind", Envelope{Topic: "/model/sub/status", Payload: mustRaw(t, core.Twist{})}},
		{"invalid topic", Envelope{Topic: "   ", Payload: mustRaw(t, core.Twist{})}},
		{"malformed twist", Envelope{Topic: "/model/sub/cmd_vel", Payload: json.RawMessage(`{"linear":"x"}`)}},
		{"malformed double", Envelope{Topic: "/model/sub/joint/j/0/cmd_pos", Payload: json.RawMessage(`"nope"`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, s.republish(tt.env))
		})
	}
}
