package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-caseta/internal/infrastructure/mqtt"
)

const (
	commandQoS     = 1
	commandTimeout = 10 * time.Second
)

// CommandClient subscribes to command topics and publishes acks.
// Implemented by *mqtt.Client.
type CommandClient interface {
	JSONPublisher
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// CommandRouter delivers MQTT commands to hub entities and acknowledges them.
type CommandRouter struct {
	client   CommandClient
	hub      *Hub
	protocol string
	timeout  time.Duration
}

// NewCommandRouter returns a router for graylogic/command/{protocol}/+.
func NewCommandRouter(client CommandClient, h *Hub, protocol string) *CommandRouter {
	return &CommandRouter{
		client:   client,
		hub:      h,
		protocol: protocol,
		timeout:  commandTimeout,
	}
}

// Start subscribes to the command topics.
func (r *CommandRouter) Start() error {
	topic := mqtt.Topics{}.AllBridgeCommands(r.protocol)
	if err := r.client.Subscribe(topic, commandQoS, r.handleMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// Stop unsubscribes from the command topics.
func (r *CommandRouter) Stop() error {
	return r.client.Unsubscribe(mqtt.Topics{}.AllBridgeCommands(r.protocol))
}

func (r *CommandRouter) handleMessage(topic string, payload []byte) error {
	uniqueID := mqtt.AddressFromTopic(topic)

	var msg CommandMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		err = fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		r.ack(uniqueID, msg.ID, err)
		return err
	}
	if msg.Command == "" {
		err := fmt.Errorf("%w: missing command", ErrInvalidCommand)
		r.ack(uniqueID, msg.ID, err)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.hub.HandleCommand(ctx, uniqueID, Command{Name: msg.Command, Params: msg.Parameters})
	r.ack(uniqueID, msg.ID, err)
	return err
}

func (r *CommandRouter) ack(uniqueID, commandID string, cmdErr error) {
	ack := AckMessage{
		CommandID: commandID,
		Timestamp: time.Now().UTC(),
		UniqueID:  uniqueID,
		Status:    AckAccepted,
		Protocol:  r.protocol,
	}
	if cmdErr != nil {
		ack.Status = AckFailed
		ack.Error = &AckError{Code: errorCode(cmdErr), Message: cmdErr.Error()}
	}

	if err := r.client.PublishJSON(mqtt.Topics{}.BridgeAck(r.protocol, uniqueID), ack, false); err != nil {
		r.hub.logger.Warn("publishing command ack", "unique_id", uniqueID, "error", err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrEntityNotFound), errors.Is(err, ErrNotCommandable):
		return ErrCodeUnknownEntity
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, ErrUnknownCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeDeviceUnreachable
	default:
		return ErrCodeBridgeError
	}
}
