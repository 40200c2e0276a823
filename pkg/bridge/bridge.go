// Package bridge republishes events from the camera module to remote
// subscribers and executes commands received from them.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/camlink/pkg/bridge/msgs"
	"github.com/robotalks/camlink/pkg/cam/comm"
	fx "github.com/robotalks/camlink/pkg/framework"
)

// ErrNoCommand indicates a command has neither name nor data.
var ErrNoCommand = errors.New("command name or data required")

// Sink receives events published by the bridge.
type Sink interface {
	Publish(ctx context.Context, ev *msgs.Event) error
}

// PublishFunc is func type of Sink.
type PublishFunc func(context.Context, *msgs.Event) error

// Publish implements Sink.
func (f PublishFunc) Publish(ctx context.Context, ev *msgs.Event) error {
	return f(ctx, ev)
}

// Executor executes remote commands.
type Executor interface {
	Execute(ctx context.Context, cmd *msgs.Command) *msgs.CommandReply
}

// Bridge connects a Session to sinks. Install it with Session.OnEvent.
type Bridge struct {
	Device  string
	Session *comm.Session
	// Now is used for event timestamps.
	Now func() time.Time

	lock  sync.RWMutex
	sinks []Sink
}

// New creates a Bridge.
func New(device string, s *comm.Session) *Bridge {
	return &Bridge{Device: device, Session: s, Now: time.Now}
}

// AddSink adds a sink.
func (b *Bridge) AddSink(sinks ...Sink) *Bridge {
	b.lock.Lock()
	b.sinks = append(b.sinks, sinks...)
	b.lock.Unlock()
	return b
}

// HandleEvent implements comm.EventHandler. It runs on the session
// goroutine, Data is copied before publishing.
func (b *Bridge) HandleEvent(ctx context.Context, ev comm.Event) {
	if ev.Kind == comm.EventNone {
		return
	}
	msg := &msgs.Event{
		Device:    b.Device,
		Kind:      EventKindOf(ev.Kind),
		Truncated: ev.Truncated,
		Timestamp: b.Now().UnixNano(),
	}
	if b.Session != nil {
		msg.Connected = b.Session.Connected()
	}
	if len(ev.Data) > 0 {
		msg.Data = append([]byte{}, ev.Data...)
	}
	if err := b.Publish(ctx, msg); err != nil {
		glog.Warningf("publish %s event: %v", ev.Kind, err)
	}
}

// Publish sends ev to all sinks.
func (b *Bridge) Publish(ctx context.Context, ev *msgs.Event) error {
	b.lock.RLock()
	sinks := b.sinks
	b.lock.RUnlock()
	var errs fx.AggregatedError
	for _, sink := range sinks {
		errs.Add(sink.Publish(ctx, ev))
	}
	return errs.Aggregate()
}

// Execute implements Executor. The command runs on the session goroutine
// and Execute blocks until it's done or ctx is cancelled.
func (b *Bridge) Execute(ctx context.Context, cmd *msgs.Command) *msgs.CommandReply {
	if cmd.Name == "" && len(cmd.Data) == 0 {
		return msgs.NewCommandReply(cmd, "", ErrNoCommand)
	}
	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)
	err := b.Session.Exec(ctx, func(ctx context.Context, s *comm.Session) {
		var r result
		if cmd.Name == "" {
			r.err = s.SendData(cmd.Data)
		} else {
			r.value, r.err = s.Command(ctx, cmd.Name, cmd.Value, cmd.Wait)
		}
		resultCh <- r
	})
	if err != nil {
		return msgs.NewCommandReply(cmd, "", err)
	}
	select {
	case r := <-resultCh:
		return msgs.NewCommandReply(cmd, r.value, r.err)
	case <-ctx.Done():
		return msgs.NewCommandReply(cmd, "", ctx.Err())
	}
}

// EventKindOf converts comm.EventKind to the wire kind.
func EventKindOf(k comm.EventKind) msgs.EventKind {
	switch k {
	case comm.EventDeviceReset:
		return msgs.EventDeviceReset
	case comm.EventConnected:
		return msgs.EventConnected
	case comm.EventDisconnected:
		return msgs.EventDisconnected
	case comm.EventAppStop:
		return msgs.EventAppStop
	case comm.EventText:
		return msgs.EventText
	case comm.EventBinary:
		return msgs.EventBinary
	case comm.EventUnknown:
		return msgs.EventUnknown
	}
	return msgs.EventNone
}
