package hub

import "time"

// MQTT message types exchanged between Gray Logic Core and this bridge.

// StateMessage is published when an entity's state changes.
// Topic: graylogic/state/{protocol}/{unique_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	UniqueID   string         `json:"unique_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Platform   string         `json:"platform"`
	Name       string         `json:"name"`
	State      map[string]any `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Protocol   string         `json:"protocol"`
	EntryID    string         `json:"entry_id"`
}

// CommandMessage is received from Core to act on an entity.
// Topic: graylogic/command/{protocol}/{unique_id}
type CommandMessage struct {
	// ID correlates the command with its acknowledgment.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	// Command is the action name (e.g. "turn_on", "set_position", "activate").
	Command string `json:"command"`

	// Parameters contains command-specific values, e.g. {"brightness": 50}.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated ("api", "automation", ...).
	Source string `json:"source,omitempty"`
}

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the command was sent to the bridge.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/{protocol}/{unique_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	UniqueID  string    `json:"unique_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeUnknownEntity     = "UNKNOWN_ENTITY"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// HealthStatus represents the operational status of the bridge service.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the state of the service and its entries.
// Topic: graylogic/health/{protocol}
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string       `json:"bridge"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Entries       EntryCounts  `json:"entries"`
	Entities      int          `json:"entities"`
	Reason        string       `json:"reason,omitempty"`
}

// EntryCounts summarises config entries by runtime state.
type EntryCounts struct {
	Total  int `json:"total"`
	Loaded int `json:"loaded"`
	Failed int `json:"failed"`
}
