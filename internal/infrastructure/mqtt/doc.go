// Package mqtt provides the MQTT client used by the Caséta bridge service.
//
// The service publishes entity state to the Gray Logic message bus and
// receives commands from it:
//
//	graylogic/state/caseta/{unique_id}    retained JSON state
//	graylogic/command/caseta/{unique_id}  commands from Core
//	graylogic/ack/caseta/{unique_id}      command results
//	graylogic/system/status               online/offline (LWT)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeCommands("caseta"), 1,
//	    func(topic string, payload []byte) error {
//	        return router.Handle(mqtt.AddressFromTopic(topic), payload)
//	    })
//
// Subscriptions survive reconnects. Handlers run on paho's goroutines and
// are recovered on panic.
package mqtt
