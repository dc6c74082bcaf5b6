package caseta

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/gray-logic-caseta/internal/hub"
	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-caseta/internal/leap"
	_ "github.com/nerrad567/gray-logic-caseta/migrations"
)

// =============================================================================
// Bridge handle
// =============================================================================

type mockBridge struct {
	mock.Mock
}

func (m *mockBridge) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockBridge) IsConnected() bool {
	return m.Called().Bool(0)
}

func (m *mockBridge) Close() error {
	return m.Called().Error(0)
}

func (m *mockBridge) Device(id string) (leap.Device, bool) {
	args := m.Called(id)
	return args.Get(0).(leap.Device), args.Bool(1)
}

func (m *mockBridge) DevicesByDomain(domain string) []leap.Device {
	devices, _ := m.Called(domain).Get(0).([]leap.Device)
	return devices
}

func (m *mockBridge) Scenes() []leap.Scene {
	scenes, _ := m.Called().Get(0).([]leap.Scene)
	return scenes
}

func (m *mockBridge) OccupancyGroups() []leap.OccupancyGroup {
	groups, _ := m.Called().Get(0).([]leap.OccupancyGroup)
	return groups
}

func (m *mockBridge) OccupancyGroup(id string) (leap.OccupancyGroup, bool) {
	args := m.Called(id)
	return args.Get(0).(leap.OccupancyGroup), args.Bool(1)
}

func (m *mockBridge) AddSubscriber(deviceID string, callback func()) {
	m.Called(deviceID, callback)
}

func (m *mockBridge) AddOccupancySubscriber(groupID string, callback func()) {
	m.Called(groupID, callback)
}

func (m *mockBridge) SetValue(ctx context.Context, deviceID string, value int) error {
	return m.Called(ctx, deviceID, value).Error(0)
}

func (m *mockBridge) TurnOn(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

func (m *mockBridge) TurnOff(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

func (m *mockBridge) SetFanSpeed(ctx context.Context, deviceID string, speed leap.FanSpeed) error {
	return m.Called(ctx, deviceID, speed).Error(0)
}

func (m *mockBridge) StopCover(ctx context.Context, deviceID string) error {
	return m.Called(ctx, deviceID).Error(0)
}

func (m *mockBridge) ActivateScene(ctx context.Context, sceneID string) error {
	return m.Called(ctx, sceneID).Error(0)
}

// connectable returns a bridge that connects successfully and expects to be
// closed at most once.
func connectable() *mockBridge {
	m := &mockBridge{}
	m.On("Connect", mock.Anything).Return(nil).Once()
	m.On("IsConnected").Return(true).Once()
	return m
}

// Inventory of the stubbed bridge.
var (
	kitchenLight = leap.Device{ID: "2", Name: "Kitchen_Main Lights", Serial: "12345", Zone: "1", Type: "WallDimmer", Level: 50}
	ceilingFan   = leap.Device{ID: "3", Name: "Living Room_Fan", Serial: "23456", Zone: "2", Type: "CasetaFanSpeedController", FanSpeed: leap.FanMedium}
	bedroomShade = leap.Device{ID: "4", Name: "Bedroom_Shade", Serial: "45678", Zone: "3", Type: "SerenaRollerShade", Level: 100}
	porchSwitch  = leap.Device{ID: "10", Name: "Porch_Light", Serial: "34567", Zone: "4", Type: "WallSwitch"}

	eveningScene  = leap.Scene{ID: "1", Name: "Evening"}
	kitchenMotion = leap.OccupancyGroup{ID: "2", Name: "Kitchen", Status: leap.Occupied}
)

// stubInventory lets m report the standard inventory any number of times.
func stubInventory(m *mockBridge) {
	m.On("DevicesByDomain", leap.DomainLight).Return([]leap.Device{kitchenLight}).Maybe()
	m.On("DevicesByDomain", leap.DomainSwitch).Return([]leap.Device{porchSwitch}).Maybe()
	m.On("DevicesByDomain", leap.DomainCover).Return([]leap.Device{bedroomShade}).Maybe()
	m.On("DevicesByDomain", leap.DomainFan).Return([]leap.Device{ceilingFan}).Maybe()
	m.On("Scenes").Return([]leap.Scene{eveningScene}).Maybe()
	m.On("OccupancyGroups").Return([]leap.OccupancyGroup{kitchenMotion}).Maybe()

	for _, d := range []leap.Device{kitchenLight, ceilingFan, bedroomShade, porchSwitch} {
		m.On("Device", d.ID).Return(d, true).Maybe()
	}
	m.On("OccupancyGroup", kitchenMotion.ID).Return(kitchenMotion, true).Maybe()
	m.On("AddSubscriber", mock.Anything, mock.AnythingOfType("func()")).Maybe()
	m.On("AddOccupancySubscriber", mock.Anything, mock.AnythingOfType("func()")).Maybe()
}

// factoryFor returns a Factory handing out bridge and counting calls.
func factoryFor(bridge Smartbridge, calls *int) Factory {
	return func(BridgeConfig) (Smartbridge, error) {
		if calls != nil {
			*calls++
		}
		return bridge, nil
	}
}

// =============================================================================
// Host
// =============================================================================

type mockHost struct {
	mock.Mock
}

func (m *mockHost) Entries(domain string) []hub.ConfigEntry {
	entries, _ := m.Called(domain).Get(0).([]hub.ConfigEntry)
	return entries
}

func (m *mockHost) ForwardEntrySetups(ctx context.Context, entry hub.ConfigEntry, platforms []string) *hub.SetupGroup {
	return m.Called(ctx, entry, platforms).Get(0).(*hub.SetupGroup)
}

func (m *mockHost) RemoveEntities(entryID string) int {
	return m.Called(entryID).Int(0)
}

func (m *mockHost) StartImportFlow(ctx context.Context, domain string, data map[string]string) (hub.FlowResult, error) {
	args := m.Called(ctx, domain, data)
	return args.Get(0).(hub.FlowResult), args.Error(1)
}

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockLoader) SetupEntries(ctx context.Context) int {
	return m.Called(ctx).Int(0)
}

// =============================================================================
// Helpers
// =============================================================================

func validConfig(host string) BridgeConfig {
	return BridgeConfig{
		Host:     host,
		Keyfile:  "/etc/caseta/caseta.key",
		Certfile: "/etc/caseta/caseta.crt",
		CACerts:  "/etc/caseta/caseta-bridge.crt",
	}
}

func testEntry(id, host string) hub.ConfigEntry {
	return hub.ConfigEntry{ID: id, Domain: Domain, Title: EntryTitle, Source: hub.SourceUser, Data: validConfig(host).Data()}
}

// newTestHub returns a hub backed by an in-memory database.
func newTestHub(t *testing.T) (*hub.Hub, *hub.SQLiteRepository) {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(context.Background()))

	repo := hub.NewSQLiteRepository(db.DB)
	return hub.New(hub.Options{Repo: repo}), repo
}

// newWiredHub registers an integration using factory plus every platform.
func newWiredHub(t *testing.T, factory Factory, await bool) (*hub.Hub, *hub.SQLiteRepository, *Integration) {
	t.Helper()
	h, repo := newTestHub(t)
	registry := NewBridgeRegistry()
	integration := New(Options{
		Host:           h,
		Registry:       registry,
		Connector:      NewConnector(factory, time.Second),
		AwaitPlatforms: await,
	})
	require.NoError(t, h.RegisterIntegration(integration))
	RegisterPlatforms(h, registry)
	return h, repo, integration
}
