package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"
)

// Encode serializes a message.
func Encode(m proto.Message) ([]byte, error) {
	return proto.Marshal(m)
}

// DecodeEvent decodes an Event.
func DecodeEvent(data []byte) (*Event, error) {
	var m Event
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode event: %v", err)
	}
	return &m, nil
}

// DecodeCommand decodes a Command.
func DecodeCommand(data []byte) (*Command, error) {
	var m Command
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode command: %v", err)
	}
	return &m, nil
}

// DecodeCommandReply decodes a CommandReply.
func DecodeCommandReply(data []byte) (*CommandReply, error) {
	var m CommandReply
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode reply: %v", err)
	}
	return &m, nil
}

// NewCommandReply creates the reply of cmd from the result of execution.
func NewCommandReply(cmd *Command, result string, err error) *CommandReply {
	reply := &CommandReply{Id: cmd.Id, Result: result}
	if err != nil {
		reply.Error = err.Error()
	}
	return reply
}

// DecodeEnvelope decodes an Envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var m Envelope
	if err := proto.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode envelope: %v", err)
	}
	return &m, nil
}
