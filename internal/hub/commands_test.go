package hub_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
)

const commandSubscription = "graylogic/command/caseta/+"

func newRouterHub(t *testing.T) (*hub.Hub, *fakeEntity, *fakeMQTT) {
	t.Helper()
	h, _ := newTestHub(t)
	e := newFakeEntity("12345", "light")
	h.RegisterPlatform(testDomain, "light", &fakePlatform{entities: func(hub.ConfigEntry) []hub.Entity {
		return []hub.Entity{e, passiveEntity{id: "scene-1"}}
	}})
	require.NoError(t, h.ForwardEntrySetups(context.Background(), hub.ConfigEntry{ID: "e", Domain: testDomain}, []string{"light"}).Wait())

	client := newFakeMQTT()
	router := hub.NewCommandRouter(client, h, "caseta")
	require.NoError(t, router.Start())
	t.Cleanup(func() { router.Stop() }) //nolint:errcheck // Test cleanup
	return h, e, client
}

func decodeAck(t *testing.T, p published) hub.AckMessage {
	t.Helper()
	var ack hub.AckMessage
	require.NoError(t, json.Unmarshal(p.payload, &ack))
	return ack
}

func TestCommandRouter_DeliversAndAcks(t *testing.T) {
	_, e, client := newRouterHub(t)

	payload, err := json.Marshal(hub.CommandMessage{
		ID:         "cmd-1",
		Timestamp:  time.Now().UTC(),
		Command:    "turn_on",
		Parameters: map[string]any{"brightness": 60},
		Source:     "api",
	})
	require.NoError(t, err)

	require.NoError(t, client.deliver(t, commandSubscription, "graylogic/command/caseta/12345", payload))

	require.Len(t, e.commands, 1)
	assert.Equal(t, "turn_on", e.commands[0].Name)
	assert.InDelta(t, 60, e.commands[0].Params["brightness"], 0)

	p := client.last(t)
	assert.Equal(t, "graylogic/ack/caseta/12345", p.topic)
	assert.False(t, p.retained)
	ack := decodeAck(t, p)
	assert.Equal(t, "cmd-1", ack.CommandID)
	assert.Equal(t, hub.AckAccepted, ack.Status)
	assert.Equal(t, "caseta", ack.Protocol)
	assert.Nil(t, ack.Error)
}

func TestCommandRouter_Failures(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		payload  string
		cmdErr   error
		wantCode string
		wantErr  error
	}{
		{
			name:     "malformed payload",
			topic:    "graylogic/command/caseta/12345",
			payload:  `{not json`,
			wantCode: hub.ErrCodeInvalidCommand,
			wantErr:  hub.ErrInvalidCommand,
		},
		{
			name:     "missing command",
			topic:    "graylogic/command/caseta/12345",
			payload:  `{"id":"c"}`,
			wantCode: hub.ErrCodeInvalidCommand,
			wantErr:  hub.ErrInvalidCommand,
		},
		{
			name:     "unknown entity",
			topic:    "graylogic/command/caseta/99999",
			payload:  `{"id":"c","command":"turn_on"}`,
			wantCode: hub.ErrCodeUnknownEntity,
			wantErr:  hub.ErrEntityNotFound,
		},
		{
			name:     "entity without commands",
			topic:    "graylogic/command/caseta/scene-1",
			payload:  `{"id":"c","command":"turn_on"}`,
			wantCode: hub.ErrCodeUnknownEntity,
			wantErr:  hub.ErrNotCommandable,
		},
		{
			name:     "unknown command",
			topic:    "graylogic/command/caseta/12345",
			payload:  `{"id":"c","command":"explode"}`,
			cmdErr:   hub.ErrUnknownCommand,
			wantCode: hub.ErrCodeInvalidCommand,
			wantErr:  hub.ErrUnknownCommand,
		},
		{
			name:     "bridge error",
			topic:    "graylogic/command/caseta/12345",
			payload:  `{"id":"c","command":"turn_on"}`,
			cmdErr:   errors.New("leap: request failed"),
			wantCode: hub.ErrCodeBridgeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, e, client := newRouterHub(t)
			e.cmdErr = tt.cmdErr

			err := client.deliver(t, commandSubscription, tt.topic, []byte(tt.payload))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			ack := decodeAck(t, client.last(t))
			assert.Equal(t, hub.AckFailed, ack.Status)
			require.NotNil(t, ack.Error)
			assert.Equal(t, tt.wantCode, ack.Error.Code)
		})
	}
}

func TestCommandRouter_Stop(t *testing.T) {
	h, _ := newTestHub(t)
	client := newFakeMQTT()
	router := hub.NewCommandRouter(client, h, "caseta")

	require.NoError(t, router.Start())
	require.NoError(t, router.Stop())
	assert.Error(t, router.Stop(), "second Stop should report the missing subscription")
}
