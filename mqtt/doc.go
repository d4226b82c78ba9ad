// Package mqtt publishes pool controller readings to an MQTT broker using
// Home Assistant's discovery protocol.
//
// Every field of every target becomes one sensor entity. The entities of a
// target are grouped under one device, identified by the target's node id
// (see [poolbridge.NodeID]).
//
// # Topics
//
// With the default prefixes:
//
//	homeassistant/sensor/<node>/<key>/config   retained discovery document
//	poolbridge/status                          bridge online/offline (LWT)
//	poolbridge/<node>/availability             target online/offline
//	poolbridge/<node>/state                    JSON object of all readings
//	poolbridge/<node>/<key>/attributes         JSON object of resolved attributes
//
// An entity is available only while both the bridge and its target are
// online. A reading whose path is absent is published as null, which the
// host shows as unknown.
//
// When Home Assistant announces itself on <discovery prefix>/status, every
// target is announced again.
//
// # Usage
//
//	pub, err := mqtt.Connect(mqtt.Config{Broker: "tcp://127.0.0.1:1883"}, logger)
//	if err != nil {
//	    return err
//	}
//	defer pub.Close()
//
//	b, err := poolbridge.New(poolbridge.WithTarget(cfg), poolbridge.WithPublisher(pub))
package mqtt
