package comm

import (
	"bytes"
	"context"

	"github.com/golang/glog"
)

// EventKind is the category of a received unit.
type EventKind int

// Event kinds.
const (
	EventNone EventKind = iota
	EventDeviceReset
	EventConnected
	EventDisconnected
	EventAppStop
	EventText
	EventBinary
	EventUnknown
)

var eventKindNames = [...]string{
	EventNone:         "none",
	EventDeviceReset:  "reset",
	EventConnected:    "connected",
	EventDisconnected: "disconnected",
	EventAppStop:      "app-stop",
	EventText:         "text",
	EventBinary:       "binary",
	EventUnknown:      "unknown",
}

// String implements Stringer.
func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "invalid"
}

// Event is a classified unit. For EventText, Data has TextHeader stripped.
type Event struct {
	Kind      EventKind
	Data      []byte
	Truncated bool
}

type marker struct {
	prefix string
	kind   EventKind
}

// markers are prefix-disjoint, so the order doesn't change the result.
var markers = []marker{
	{DeviceResetMarker, EventDeviceReset},
	{ConnectedMarker, EventConnected},
	{DisconnectedMarker, EventDisconnected},
	{AppStopMarker, EventAppStop},
	{TextHeader, EventText},
}

// Classify determines the category of a unit.
func Classify(u Unit) Event {
	switch u.Kind {
	case UnitBinary:
		return Event{Kind: EventBinary, Data: u.Data}
	case UnitText:
		for _, m := range markers {
			if bytes.HasPrefix(u.Data, []byte(m.prefix)) {
				ev := Event{Kind: m.kind, Data: u.Data, Truncated: u.Truncated}
				if m.kind == EventText {
					ev.Data = u.Data[len(m.prefix):]
				}
				return ev
			}
		}
		return Event{Kind: EventUnknown, Data: u.Data, Truncated: u.Truncated}
	}
	return Event{}
}

// TextHandler is called with remote UI data lines.
type TextHandler interface {
	HandleText(ctx context.Context, line []byte)
}

// HandleTextFunc is func type of TextHandler.
type HandleTextFunc func(context.Context, []byte)

// HandleText implements TextHandler.
func (f HandleTextFunc) HandleText(ctx context.Context, line []byte) {
	f(ctx, line)
}

// BinaryHandler is called with binary payloads.
type BinaryHandler interface {
	HandleBinary(ctx context.Context, data []byte)
}

// HandleBinaryFunc is func type of BinaryHandler.
type HandleBinaryFunc func(context.Context, []byte)

// HandleBinary implements BinaryHandler.
func (f HandleBinaryFunc) HandleBinary(ctx context.Context, data []byte) {
	f(ctx, data)
}

// StateNotifier is called when the remote app connects or disconnects.
type StateNotifier interface {
	StateChanged(ctx context.Context, connected bool)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, bool)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, connected bool) {
	f(ctx, connected)
}

// EventHandler receives every classified event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev Event)
}

// HandleEventFunc is func type of EventHandler.
type HandleEventFunc func(context.Context, Event)

// HandleEvent implements EventHandler.
func (f HandleEventFunc) HandleEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Dispatcher invokes handlers for classified events and tracks whether the
// remote app is connected.
type Dispatcher struct {
	Text     TextHandler
	Binary   BinaryHandler
	Notifier StateNotifier
	Events   EventHandler

	connected bool
}

// Connected reports the link state.
func (d *Dispatcher) Connected() bool {
	return d.connected
}

// Dispatch handles one event synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventNone:
		return
	case EventDeviceReset:
		glog.V(1).Info("camera module reset")
		d.setConnected(ctx, false)
	case EventConnected:
		d.setConnected(ctx, true)
	case EventDisconnected:
		d.setConnected(ctx, false)
	case EventAppStop:
		if d.connected {
			glog.Info("APP STOP")
		}
		d.setConnected(ctx, false)
	case EventText:
		glog.V(3).Infof("RX: %s", ev.Data)
		d.setConnected(ctx, true)
		if h := d.Text; h != nil {
			h.HandleText(ctx, ev.Data)
		}
	case EventBinary:
		glog.V(3).Infof("RX: %d bytes binary", len(ev.Data))
		d.setConnected(ctx, true)
		if h := d.Binary; h != nil {
			h.HandleBinary(ctx, ev.Data)
		}
	}
	if h := d.Events; h != nil {
		h.HandleEvent(ctx, ev)
	}
}

func (d *Dispatcher) setConnected(ctx context.Context, connected bool) {
	if d.connected == connected {
		return
	}
	d.connected = connected
	if n := d.Notifier; n != nil {
		n.StateChanged(ctx, connected)
	}
}
