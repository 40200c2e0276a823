package env

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/camlink/pkg/cam/comm"
	"github.com/robotalks/camlink/pkg/cam/widget"
)

type eofDevice struct {
	*bytes.Reader
	bytes.Buffer
	closed bool
}

func (d *eofDevice) Read(p []byte) (int, error) { return d.Reader.Read(p) }
func (d *eofDevice) Close() error               { d.closed = true; return nil }

func TestNewConfigCopies(t *testing.T) {
	c := NewConfig()
	c.Serial.Baud = 1
	c.Retries = 9
	assert.NotEqual(t, 1, Default().Serial.Baud)
	assert.NotEqual(t, 9, Default().Retries)
	assert.NotEmpty(t, c.ID)
}

func TestNewSession(t *testing.T) {
	c := NewConfig()
	c.BufferSize = 32
	c.CommandTimeout = time.Second
	c.Retries = 5
	c.Debug = comm.DebugAll
	s := c.NewSession(&comm.Port{})
	assert.Equal(t, time.Second, s.CommandTimeout())
	assert.Equal(t, 5, s.Retries)
	assert.Equal(t, comm.DebugAll, s.Reader().Debug)
	assert.Equal(t, 32, s.Reader().Buffer().Cap())
}

func TestEnvAutoSend(t *testing.T) {
	dev := &eofDevice{Reader: bytes.NewReader([]byte("WS+1\n"))}
	c := NewConfig()
	c.SendInterval = time.Millisecond
	e := c.NewEnvWith(comm.NewPort(dev, 0))
	e.Telemetry.SetMeter(widget.RegionA, 1)
	require.ErrorIs(t, e.Port.Run(context.Background()), io.EOF)
	require.Equal(t, comm.EventText, e.Session.Poll(context.Background()).Kind)
	require.Equal(t, "WS+1.00\n", dev.Buffer.String())
}

func TestEnvRunStopsOnReadError(t *testing.T) {
	dev := &eofDevice{Reader: bytes.NewReader([]byte("[CONNECTED]\n"))}
	c := NewConfig()
	e := c.NewEnvWith(comm.NewPort(dev, 0))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := e.Run(ctx)
	require.True(t, errors.Is(err, io.EOF), "%v", err)
	require.True(t, dev.closed)
}
