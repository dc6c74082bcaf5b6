package hub

import (
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/mqtt"
)

// StateUpdate is one entity state written by the hub.
type StateUpdate struct {
	UniqueID   string
	EntryID    string
	Platform   string
	Name       string
	State      map[string]any
	Attributes map[string]any
	Timestamp  time.Time
}

// StateSink receives every state the hub writes.
type StateSink interface {
	WriteState(update StateUpdate) error
}

// JSONPublisher publishes JSON payloads. Implemented by *mqtt.Client.
type JSONPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// MQTTStateSink publishes retained state messages for Core.
type MQTTStateSink struct {
	publisher JSONPublisher
	protocol  string
}

// NewMQTTStateSink returns a sink publishing to graylogic/state/{protocol}/{unique_id}.
func NewMQTTStateSink(publisher JSONPublisher, protocol string) *MQTTStateSink {
	return &MQTTStateSink{publisher: publisher, protocol: protocol}
}

// WriteState publishes the update.
func (s *MQTTStateSink) WriteState(u StateUpdate) error {
	msg := StateMessage{
		UniqueID:   u.UniqueID,
		Timestamp:  u.Timestamp,
		Platform:   u.Platform,
		Name:       u.Name,
		State:      u.State,
		Attributes: u.Attributes,
		Protocol:   s.protocol,
		EntryID:    u.EntryID,
	}
	if err := s.publisher.PublishJSON(mqtt.Topics{}.BridgeState(s.protocol, u.UniqueID), msg, true); err != nil {
		return fmt.Errorf("publishing state for %s: %w", u.UniqueID, err)
	}
	return nil
}

// DeviceStateWriter records state history. Implemented by *influxdb.Client.
type DeviceStateWriter interface {
	WriteDeviceStateAt(uniqueID, platform, entryID string, state map[string]any, ts time.Time)
}

// HistoryStateSink writes numeric state to the time-series store. Writes
// are batched by the writer and errors surface through its own callback.
type HistoryStateSink struct {
	writer DeviceStateWriter
}

// NewHistoryStateSink returns a sink feeding writer.
func NewHistoryStateSink(writer DeviceStateWriter) *HistoryStateSink {
	return &HistoryStateSink{writer: writer}
}

// WriteState queues the update.
func (s *HistoryStateSink) WriteState(u StateUpdate) error {
	s.writer.WriteDeviceStateAt(u.UniqueID, u.Platform, u.EntryID, u.State, u.Timestamp)
	return nil
}
