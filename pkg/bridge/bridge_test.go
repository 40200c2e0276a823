package bridge

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/camlink/pkg/bridge/msgs"
	"github.com/robotalks/camlink/pkg/cam/comm"
)

// ackTransport acknowledges every command with "OK <name>" unless mute.
type ackTransport struct {
	in   []byte
	out  bytes.Buffer
	mute bool
}

func (t *ackTransport) Available() int { return len(t.in) }
func (t *ackTransport) Flush() error   { return nil }

func (t *ackTransport) ReadByte() (byte, error) {
	if len(t.in) == 0 {
		return 0, comm.ErrNoData
	}
	b := t.in[0]
	t.in = t.in[1:]
	return b, nil
}

func (t *ackTransport) Write(p []byte) (int, error) {
	t.out.Write(p)
	if !t.mute && bytes.HasPrefix(p, []byte(comm.CommandPrefix)) {
		name := bytes.TrimSuffix(p[len(comm.CommandPrefix):], []byte("\n"))
		t.in = append(t.in, "OK "...)
		t.in = append(t.in, name...)
		t.in = append(t.in, '\n')
	}
	return len(p), nil
}

func TestHandleEvent(t *testing.T) {
	s := comm.NewSession(&ackTransport{}, 0)
	b := New("cam0", s)
	b.Now = func() time.Time { return time.Unix(0, 42) }
	var got []*msgs.Event
	b.AddSink(PublishFunc(func(_ context.Context, ev *msgs.Event) error {
		got = append(got, ev)
		return nil
	}))
	data := []byte("1;2")
	b.HandleEvent(context.Background(), comm.Event{Kind: comm.EventText, Data: data})
	b.HandleEvent(context.Background(), comm.Event{Kind: comm.EventNone})
	data[0] = 'x'
	require.Len(t, got, 1)
	assert.Equal(t, &msgs.Event{
		Device:    "cam0",
		Kind:      msgs.EventText,
		Data:      []byte("1;2"),
		Timestamp: 42,
	}, got[0])
}

func TestHandleEventThroughSession(t *testing.T) {
	tr := &ackTransport{in: []byte("[CONNECTED]\nWS+5\n")}
	s := comm.NewSession(tr, 0)
	b := New("cam0", s)
	var kinds []msgs.EventKind
	var connected []bool
	b.AddSink(PublishFunc(func(_ context.Context, ev *msgs.Event) error {
		kinds = append(kinds, ev.Kind)
		connected = append(connected, ev.Connected)
		return nil
	}))
	s.OnEvent(b)
	s.Poll(context.Background())
	s.Poll(context.Background())
	assert.Equal(t, []msgs.EventKind{msgs.EventConnected, msgs.EventText}, kinds)
	assert.Equal(t, []bool{true, true}, connected)
}

func TestPublishAggregatesErrors(t *testing.T) {
	boom := errors.New("boom")
	b := New("cam0", nil)
	calls := 0
	b.AddSink(
		PublishFunc(func(context.Context, *msgs.Event) error { calls++; return boom }),
		PublishFunc(func(context.Context, *msgs.Event) error { calls++; return nil }),
	)
	err := b.Publish(context.Background(), &msgs.Event{})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
	// errors are only logged
	b.HandleEvent(context.Background(), comm.Event{Kind: comm.EventAppStop})
	require.Equal(t, 4, calls)
}

func runSession(t *testing.T) (*comm.Session, *ackTransport, context.CancelFunc) {
	tr := &ackTransport{}
	s := comm.NewSession(tr, 0)
	return s, tr, startSession(s)
}

func startSession(s *comm.Session) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestExecute(t *testing.T) {
	s, tr, stop := runSession(t)
	b := New("cam0", s)
	ctx := context.Background()

	reply := b.Execute(ctx, &msgs.Command{Id: "1", Name: "RESET", Wait: true})
	assert.Equal(t, &msgs.CommandReply{Id: "1", Result: "RESET"}, reply)

	reply = b.Execute(ctx, &msgs.Command{Id: "2", Name: "LAMP", Value: "3"})
	assert.Equal(t, &msgs.CommandReply{Id: "2"}, reply)

	reply = b.Execute(ctx, &msgs.Command{Id: "3", Data: []byte("M;1")})
	assert.True(t, reply.OK())

	reply = b.Execute(ctx, &msgs.Command{Id: "4"})
	assert.Equal(t, ErrNoCommand.Error(), reply.Error)

	stop()
	assert.Contains(t, tr.out.String(), "SET+RESET\nOK\n")
	assert.Contains(t, tr.out.String(), "SET+LAMP3\n")
	assert.Contains(t, tr.out.String(), "WS+M;1\n")
}

func TestExecuteCancelled(t *testing.T) {
	s := comm.NewSession(&ackTransport{}, 0)
	b := New("cam0", s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nobody runs the session, so the reply can only come from ctx.
	reply := b.Execute(ctx, &msgs.Command{Id: "5", Name: "START", Wait: true})
	assert.Equal(t, "5", reply.Id)
	assert.Equal(t, context.Canceled.Error(), reply.Error)
}

func TestExecuteCancelledWhileWaiting(t *testing.T) {
	tr := &ackTransport{mute: true}
	s := comm.NewSession(tr, 0)
	s.SetCommandTimeout(time.Hour)
	stop := startSession(s)
	defer stop()
	b := New("cam0", s)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	reply := b.Execute(ctx, &msgs.Command{Id: "6", Name: "START", Wait: true})
	assert.Equal(t, "6", reply.Id)
	assert.NotEmpty(t, reply.Error)

	// the session goroutine is free again once the waiting command is cancelled.
	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply = b.Execute(ctx, &msgs.Command{Id: "7", Data: []byte("M;1")})
	assert.True(t, reply.OK(), reply.Error)
}

func TestEventKindOf(t *testing.T) {
	assert.Equal(t, msgs.EventBinary, EventKindOf(comm.EventBinary))
	assert.Equal(t, msgs.EventUnknown, EventKindOf(comm.EventUnknown))
	assert.Equal(t, msgs.EventNone, EventKindOf(comm.EventKind(99)))
}
