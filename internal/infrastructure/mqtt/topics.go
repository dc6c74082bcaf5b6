package mqtt

import (
	"fmt"
	"strings"
)

// Topic roots. Bridge topics use the flat scheme
// graylogic/{category}/{protocol}/{address} shared by every Gray Logic bridge.
const (
	TopicPrefixBridge = "graylogic"
	TopicPrefixSystem = "graylogic/system"
)

// Topics builds the MQTT topics used by the Caséta bridge.
//
//	Topics{}.BridgeState("caseta", "12345")
//	// graylogic/state/caseta/12345
type Topics struct{}

// BridgeState is the retained state topic of one entity.
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand is the topic commands for one entity arrive on.
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeAck is the topic command results for one entity are published to.
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth is the retained health topic of a protocol bridge.
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// ServiceStatus is the retained online/offline topic carrying the LWT.
func (Topics) ServiceStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllBridgeCommands matches every command topic of one protocol.
//
// Pattern: graylogic/command/{protocol}/+
func (Topics) AllBridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// AddressFromTopic returns the last level of a bridge topic, or "" when the
// topic has fewer than four levels.
func AddressFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return ""
	}
	return parts[len(parts)-1]
}
