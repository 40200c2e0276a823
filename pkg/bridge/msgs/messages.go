package msgs

import (
	"github.com/golang/protobuf/proto"
)

// EventKind mirrors comm.EventKind on the wire.
type EventKind int32

// Event kinds.
const (
	EventNone         EventKind = 0
	EventDeviceReset  EventKind = 1
	EventConnected    EventKind = 2
	EventDisconnected EventKind = 3
	EventAppStop      EventKind = 4
	EventText         EventKind = 5
	EventBinary       EventKind = 6
	EventUnknown      EventKind = 7
)

var eventKindNames = map[EventKind]string{
	EventNone:         "none",
	EventDeviceReset:  "reset",
	EventConnected:    "connected",
	EventDisconnected: "disconnected",
	EventAppStop:      "app-stop",
	EventText:         "text",
	EventBinary:       "binary",
	EventUnknown:      "unknown",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Event is a unit received from the camera module.
type Event struct {
	Device    string    `protobuf:"bytes,1,opt,name=device,proto3" json:"device,omitempty"`
	Kind      EventKind `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Data      []byte    `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
	Truncated bool      `protobuf:"varint,4,opt,name=truncated,proto3" json:"truncated,omitempty"`
	Connected bool      `protobuf:"varint,5,opt,name=connected,proto3" json:"connected,omitempty"`
	// Timestamp in nanoseconds since epoch.
	Timestamp int64 `protobuf:"varint,6,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

// Reset implements proto.Message.
func (m *Event) Reset() { *m = Event{} }

// String implements proto.Message.
func (m *Event) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Event) ProtoMessage() {}

// Command asks the camera module to execute "SET+<name><value>". If Name is
// empty, Data is sent as a remote UI data line instead.
type Command struct {
	Id    string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Name  string `protobuf:"bytes,2,opt,name=name,proto3" json:"name,omitempty"`
	Value string `protobuf:"bytes,3,opt,name=value,proto3" json:"value,omitempty"`
	Wait  bool   `protobuf:"varint,4,opt,name=wait,proto3" json:"wait,omitempty"`
	Data  []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

// Reset implements proto.Message.
func (m *Command) Reset() { *m = Command{} }

// String implements proto.Message.
func (m *Command) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Command) ProtoMessage() {}

// CommandReply is the result of a Command.
type CommandReply struct {
	Id     string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Result string `protobuf:"bytes,2,opt,name=result,proto3" json:"result,omitempty"`
	Error  string `protobuf:"bytes,3,opt,name=error,proto3" json:"error,omitempty"`
}

// Reset implements proto.Message.
func (m *CommandReply) Reset() { *m = CommandReply{} }

// String implements proto.Message.
func (m *CommandReply) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*CommandReply) ProtoMessage() {}

// OK indicates the command succeeded.
func (m *CommandReply) OK() bool { return m.Error == "" }

// Envelope carries either an Event or a CommandReply on streams that
// multiplex both.
type Envelope struct {
	Event *Event        `protobuf:"bytes,1,opt,name=event,proto3" json:"event,omitempty"`
	Reply *CommandReply `protobuf:"bytes,2,opt,name=reply,proto3" json:"reply,omitempty"`
}

// Reset implements proto.Message.
func (m *Envelope) Reset() { *m = Envelope{} }

// String implements proto.Message.
func (m *Envelope) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Envelope) ProtoMessage() {}
