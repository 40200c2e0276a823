package comm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		unit Unit
		kind EventKind
		data string
	}{
		{Unit{}, EventNone, ""},
		{Unit{Kind: UnitText, Data: []byte("[Init]")}, EventDeviceReset, "[Init]"},
		{Unit{Kind: UnitText, Data: []byte("[CONNECTED]")}, EventConnected, "[CONNECTED]"},
		{Unit{Kind: UnitText, Data: []byte("[DISCONNECTED]")}, EventDisconnected, "[DISCONNECTED]"},
		{Unit{Kind: UnitText, Data: []byte("[APPSTOP]")}, EventAppStop, "[APPSTOP]"},
		{Unit{Kind: UnitText, Data: []byte("WS+1;0;50")}, EventText, "1;0;50"},
		{Unit{Kind: UnitText, Data: []byte("WS+")}, EventText, ""},
		{Unit{Kind: UnitText, Data: []byte("OK")}, EventUnknown, "OK"},
		{Unit{Kind: UnitText, Data: []byte("ws+1")}, EventUnknown, "ws+1"},
		{Unit{Kind: UnitBinary, Data: []byte{1, 2}}, EventBinary, "\x01\x02"},
	}
	for _, tc := range testCases {
		t.Run(tc.kind.String()+"/"+string(tc.unit.Data), func(t *testing.T) {
			ev := Classify(tc.unit)
			require.Equal(t, tc.kind, ev.Kind)
			require.Equal(t, tc.data, string(ev.Data))
		})
	}
}

func TestClassifyKeepsTruncated(t *testing.T) {
	ev := Classify(Unit{Kind: UnitText, Data: []byte("WS+123"), Truncated: true})
	require.Equal(t, EventText, ev.Kind)
	require.True(t, ev.Truncated)
}

func TestMarkersPrefixDisjoint(t *testing.T) {
	for i, a := range markers {
		for j, b := range markers {
			if i != j {
				require.False(t, strings.HasPrefix(a.prefix, b.prefix), "%s vs %s", a.prefix, b.prefix)
			}
		}
	}
}

func TestEventKindString(t *testing.T) {
	require.Equal(t, "app-stop", EventAppStop.String())
	require.Equal(t, "invalid", EventKind(100).String())
}

func TestDispatcher(t *testing.T) {
	var (
		texts   []string
		binary  [][]byte
		states  []bool
		allKind []EventKind
	)
	d := &Dispatcher{
		Text: HandleTextFunc(func(_ context.Context, line []byte) {
			texts = append(texts, string(line))
		}),
		Binary: HandleBinaryFunc(func(_ context.Context, data []byte) {
			binary = append(binary, append([]byte{}, data...))
		}),
		Notifier: StateChangedFunc(func(_ context.Context, connected bool) {
			states = append(states, connected)
		}),
		Events: HandleEventFunc(func(_ context.Context, ev Event) {
			allKind = append(allKind, ev.Kind)
		}),
	}
	ctx := context.Background()
	events := []Event{
		{Kind: EventConnected},
		{Kind: EventConnected},
		{Kind: EventText, Data: []byte("1;2")},
		{Kind: EventBinary, Data: []byte{9}},
		{Kind: EventAppStop},
		{Kind: EventText, Data: []byte("3")},
		{Kind: EventDisconnected},
		{Kind: EventDeviceReset},
		{Kind: EventUnknown, Data: []byte("?")},
		{Kind: EventNone},
	}
	for _, ev := range events {
		d.Dispatch(ctx, ev)
	}
	require.Equal(t, []string{"1;2", "3"}, texts)
	require.Equal(t, [][]byte{{9}}, binary)
	require.Equal(t, []bool{true, false, true, false}, states)
	require.Len(t, allKind, len(events)-1)
	require.False(t, d.Connected())
}

func TestDispatcherNoHandlers(t *testing.T) {
	d := &Dispatcher{}
	d.Dispatch(context.Background(), Event{Kind: EventText, Data: []byte("x")})
	require.True(t, d.Connected())
	d.Dispatch(context.Background(), Event{Kind: EventBinary})
	require.True(t, d.Connected())
}
