package daemon

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xws "golang.org/x/net/websocket"

	"github.com/robotalks/camlink/pkg/bridge/msgs"
	"github.com/robotalks/camlink/pkg/bridge/websocket"
	"github.com/robotalks/camlink/pkg/cam/comm"
)

// module is a fake camera module acknowledging every command.
type module struct {
	lock    sync.Mutex
	written strings.Builder
	readCh  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

func newModule() *module {
	return &module{readCh: make(chan []byte, 64), closeCh: make(chan struct{})}
}

func (m *module) Read(p []byte) (int, error) {
	select {
	case data := <-m.readCh:
		return copy(p, data), nil
	case <-m.closeCh:
		return 0, io.EOF
	}
}

func (m *module) Write(p []byte) (int, error) {
	m.lock.Lock()
	m.written.Write(p)
	m.lock.Unlock()
	line := string(p)
	switch {
	case strings.HasPrefix(line, comm.CommandPrefix+"RESET"):
		m.readCh <- []byte("OK 1.4.0\n")
	case strings.HasPrefix(line, comm.CommandPrefix+"START"):
		m.readCh <- []byte("OK 10.0.0.7\n")
	case strings.HasPrefix(line, comm.CommandPrefix):
		m.readCh <- []byte("OK\n")
	}
	return len(p), nil
}

func (m *module) Close() error {
	m.once.Do(func() { close(m.closeCh) })
	return nil
}

func (m *module) output() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.written.String()
}

func newTestDaemon(t *testing.T, conf *Config) (*Daemon, *module) {
	conf.Env.ID = "cam0"
	conf.Env.SendInterval = 0
	m := newModule()
	d, err := conf.NewDaemonWith(conf.Env.NewEnvWith(comm.NewPort(m, 0)))
	require.NoError(t, err)
	return d, m
}

func runDaemon(t *testing.T, d *Daemon) func() error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("daemon not stopped")
			return nil
		}
	}
}

func TestNewConfigCopies(t *testing.T) {
	c := NewConfig()
	c.Env.ID = "changed"
	c.HTTPAddr = ""
	assert.NotEqual(t, "changed", defaultConfig.Env.ID)
	assert.NotEmpty(t, defaultConfig.HTTPAddr)
}

func TestDaemonStreamsEvents(t *testing.T) {
	conf := NewConfig()
	conf.HTTPAddr = "127.0.0.1:0"
	d, m := newTestDaemon(t, conf)
	require.NotNil(t, d.Hub)
	require.Nil(t, d.Queue)
	addr, err := d.Server.Listen()
	require.NoError(t, err)
	stop := runDaemon(t, d)

	origin := "http://" + addr.String()
	ws, err := xws.Dial("ws://"+addr.String()+conf.WebsocketPath, "", origin)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, func() bool { return d.Hub.Clients() == 1 }, time.Second, time.Millisecond)

	m.readCh <- []byte("[CONNECTED]\nWS+1;0;50\n")
	conn := websocket.NewConn(ws)
	var kinds []msgs.EventKind
	var text string
	for len(kinds) < 2 {
		pkt, err := conn.ReadPacket()
		require.NoError(t, err)
		env, err := msgs.DecodeEnvelope(pkt)
		require.NoError(t, err)
		require.NotNil(t, env.Event)
		kinds = append(kinds, env.Event.Kind)
		if env.Event.Kind == msgs.EventText {
			text = string(env.Event.Data)
			assert.True(t, env.Event.Connected)
			assert.Equal(t, "cam0", env.Event.Device)
		}
	}
	assert.Equal(t, []msgs.EventKind{msgs.EventConnected, msgs.EventText}, kinds)
	assert.Equal(t, "1;0;50", text)

	pkt, err := msgs.Encode(&msgs.Command{Id: "x", Name: "LAMP", Value: "2", Wait: true})
	require.NoError(t, err)
	require.NoError(t, conn.WritePacket(pkt))
	pkt, err = conn.ReadPacket()
	require.NoError(t, err)
	env, err := msgs.DecodeEnvelope(pkt)
	require.NoError(t, err)
	require.NotNil(t, env.Reply)
	assert.Equal(t, "x", env.Reply.Id)
	assert.Contains(t, m.output(), "SET+LAMP2\n")

	resp, err := http.Get(origin + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `camlink_units_received_total{kind="text"}`)
	assert.Contains(t, string(body), "camlink_link_connected 1")

	assert.NoError(t, stop())
}

func TestDaemonProvision(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("name: rover\ntype: Car\nssid: lab\npassword: pw\n"), 0644))
	conf := NewConfig()
	conf.HTTPAddr = ""
	conf.Profile = fn
	d, m := newTestDaemon(t, conf)
	require.Nil(t, d.Server)
	require.Equal(t, "rover", d.Profile.Name)

	stop := runDaemon(t, d)
	require.Eventually(t, func() bool {
		return strings.Contains(m.output(), "SET+START\n")
	}, 5*time.Second, 10*time.Millisecond)
	out := m.output()
	assert.Contains(t, out, "SET+RESET\n")
	assert.Contains(t, out, "SET+NAMErover\n")
	assert.NoError(t, stop())
}

func TestDaemonProfileMissing(t *testing.T) {
	conf := NewConfig()
	conf.HTTPAddr = ""
	conf.Profile = filepath.Join(t.TempDir(), "none.yaml")
	conf.Env.SendInterval = 0
	_, err := conf.NewDaemonWith(conf.Env.NewEnvWith(comm.NewPort(newModule(), 0)))
	assert.Error(t, err)
}

func TestDaemonStopsWhenLinkLost(t *testing.T) {
	conf := NewConfig()
	conf.HTTPAddr = "127.0.0.1:0"
	d, m := newTestDaemon(t, conf)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	m.Close()
	err := d.Run(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestDaemonMQTTLink(t *testing.T) {
	conf := NewConfig()
	conf.HTTPAddr = ""
	conf.MQTTURL = "mqtt://localhost:1883/camlink/"
	d, _ := newTestDaemon(t, conf)
	require.NotNil(t, d.Link)
	assert.Equal(t, "cam0", d.Link.Device)
	assert.Equal(t, "cam0", d.Link.Meta.Device)
	assert.Same(t, d.Queue, d.Link.Queue)

	conf.MQTTURL = "://bad"
	_, err := conf.NewDaemonWith(conf.Env.NewEnvWith(comm.NewPort(newModule(), 0)))
	assert.Error(t, err)
}
