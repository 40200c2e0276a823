// Package msgs defines the messages the bridge exchanges with remote
// subscribers.
package msgs

// Messages are protobuf encoded. The camera link publishes Event messages
// and accepts Command messages, answering each with a CommandReply
// carrying the same ID. Streams carrying both events and replies wrap them
// in an Envelope.
//
// Producer: camlink bridge
// Consumer: remote subscribers (MQTT, websocket)
