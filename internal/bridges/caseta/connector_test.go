package caseta

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-caseta/internal/leap"
)

func TestConnector_Connect(t *testing.T) {
	bridge := connectable()
	calls := 0
	c := NewConnector(factoryFor(bridge, &calls), time.Second)

	got, err := c.Connect(context.Background(), validConfig("192.168.1.20"))
	require.NoError(t, err)
	assert.Same(t, bridge, got)
	assert.Equal(t, 1, calls)
	bridge.AssertExpectations(t)
	bridge.AssertNotCalled(t, "Close")
}

func TestConnector_AppliesTimeout(t *testing.T) {
	bridge := &mockBridge{}
	bridge.On("Connect", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	})).Return(nil).Once()
	bridge.On("IsConnected").Return(true).Once()

	c := NewConnector(factoryFor(bridge, nil), 50*time.Millisecond)
	_, err := c.Connect(context.Background(), validConfig("h"))
	require.NoError(t, err)
	bridge.AssertExpectations(t)
}

func TestConnector_DefaultTimeout(t *testing.T) {
	c := NewConnector(nil, 0)
	assert.Equal(t, DefaultConnectTimeout, c.timeout)
	assert.NotNil(t, c.factory)
}

func TestConnector_Failures(t *testing.T) {
	tests := []struct {
		name      string
		bridge    func() *mockBridge
		factory   func(b *mockBridge) Factory
		cfg       BridgeConfig
		wantErr   error
		wantClose bool
	}{
		{
			name: "not connected after connect",
			bridge: func() *mockBridge {
				m := &mockBridge{}
				m.On("Connect", mock.Anything).Return(nil).Once()
				m.On("IsConnected").Return(false).Once()
				m.On("Close").Return(nil).Once()
				return m
			},
			cfg:       validConfig("h"),
			wantErr:   ErrCannotConnect,
			wantClose: true,
		},
		{
			name: "connect error",
			bridge: func() *mockBridge {
				m := &mockBridge{}
				m.On("Connect", mock.Anything).Return(fmt.Errorf("%w: dial tcp: refused", leap.ErrConnectionFailed)).Once()
				m.On("Close").Return(nil).Once()
				return m
			},
			cfg:       validConfig("h"),
			wantErr:   leap.ErrConnectionFailed,
			wantClose: true,
		},
		{
			name:   "certificate error",
			bridge: func() *mockBridge { return &mockBridge{} },
			factory: func(*mockBridge) Factory {
				return func(BridgeConfig) (Smartbridge, error) {
					return nil, fmt.Errorf("%w: open caseta.key: no such file", leap.ErrInvalidCertificate)
				}
			},
			cfg:     validConfig("h"),
			wantErr: ErrInvalidConfig,
		},
		{
			name:   "other factory error",
			bridge: func() *mockBridge { return &mockBridge{} },
			factory: func(*mockBridge) Factory {
				return func(BridgeConfig) (Smartbridge, error) { return nil, errors.New("boom") }
			},
			cfg:     validConfig("h"),
			wantErr: ErrCannotConnect,
		},
		{
			name:    "missing fields",
			bridge:  func() *mockBridge { return &mockBridge{} },
			cfg:     BridgeConfig{Host: "h"},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bridge := tt.bridge()
			factory := factoryFor(bridge, nil)
			if tt.factory != nil {
				factory = tt.factory(bridge)
			}

			got, err := NewConnector(factory, time.Second).Connect(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
			bridge.AssertExpectations(t)
			if !tt.wantClose {
				bridge.AssertNotCalled(t, "Close")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("ok closes the connection", func(t *testing.T) {
		bridge := connectable()
		bridge.On("Close").Return(nil).Once()

		result := Validate(context.Background(), NewConnector(factoryFor(bridge, nil), time.Second), validConfig("h"))
		assert.True(t, result.OK())
		assert.NoError(t, result.Err)
		bridge.AssertExpectations(t)
	})

	t.Run("close error does not fail validation", func(t *testing.T) {
		bridge := connectable()
		bridge.On("Close").Return(errors.New("use of closed connection")).Once()

		result := Validate(context.Background(), NewConnector(factoryFor(bridge, nil), time.Second), validConfig("h"))
		assert.Equal(t, ValidationOK, result.Status)
		bridge.AssertExpectations(t)
	})

	t.Run("connect error", func(t *testing.T) {
		bridge := &mockBridge{}
		bridge.On("Connect", mock.Anything).Return(nil).Once()
		bridge.On("IsConnected").Return(false).Once()
		bridge.On("Close").Return(nil).Once()

		result := Validate(context.Background(), NewConnector(factoryFor(bridge, nil), time.Second), validConfig("h"))
		assert.Equal(t, ValidationConnectError, result.Status)
		assert.ErrorIs(t, result.Err, ErrCannotConnect)
		assert.Equal(t, "cannot_connect", result.Status.String())
		bridge.AssertExpectations(t)
	})

	t.Run("config error", func(t *testing.T) {
		result := Validate(context.Background(), NewConnector(factoryFor(&mockBridge{}, nil), time.Second), BridgeConfig{})
		assert.Equal(t, ValidationConfigError, result.Status)
		assert.ErrorIs(t, result.Err, ErrInvalidConfig)
		assert.Equal(t, "invalid_config", result.Status.String())
	})
}

func TestLEAPFactory_UnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))

	cfg := BridgeConfig{Host: "192.168.1.20", Keyfile: garbage, Certfile: garbage, CACerts: garbage}
	bridge, err := LEAPFactory()(cfg)
	assert.Nil(t, bridge)
	assert.ErrorIs(t, err, leap.ErrInvalidCertificate)

	result := Validate(context.Background(), NewConnector(nil, time.Second), cfg)
	assert.Equal(t, ValidationConfigError, result.Status)
}

func TestBridgeConfig(t *testing.T) {
	data := map[string]string{
		"host":     " 192.168.1.20 ",
		"keyfile":  "k",
		"certfile": "c",
		"ca_certs": "ca",
		"port":     "8081",
	}
	cfg := BridgeConfigFromData(data)
	assert.Equal(t, BridgeConfig{Host: "192.168.1.20", Keyfile: "k", Certfile: "c", CACerts: "ca"}, cfg)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, map[string]string{"host": "192.168.1.20", "keyfile": "k", "certfile": "c", "ca_certs": "ca"}, cfg.Data())

	err := BridgeConfig{Host: "h", Certfile: "c"}.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "keyfile, ca_certs")

	assert.True(t, BridgeConfig{Host: "h"}.hostOnly())
	assert.False(t, cfg.hostOnly())
}
