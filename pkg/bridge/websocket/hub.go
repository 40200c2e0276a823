// Package websocket streams camera events to websocket clients and accepts
// commands from them.
package websocket

import (
	"context"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/camlink/pkg/bridge"
	"github.com/robotalks/camlink/pkg/bridge/msgs"
)

// DefaultQueueSize is the number of packets buffered per client.
const DefaultQueueSize = 64

// Conn reads and writes packets on websocket.Conn.
type Conn websocket.Conn

// NewConn wraps websocket.Conn.
func NewConn(conn *websocket.Conn) *Conn {
	return (*Conn)(conn)
}

// ReadPacket reads one message.
func (c *Conn) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(c), &pkt)
	return
}

// WritePacket writes pkt as a binary message.
func (c *Conn) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(c), pkt)
}

// Hub broadcasts events to all connected clients. Every packet is an
// encoded msgs.Envelope. Packets received from clients are decoded as
// msgs.Command and executed by Executor.
type Hub struct {
	Executor  bridge.Executor
	QueueSize int

	lock    sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn   *Conn
	sendCh chan []byte
}

// NewHub creates a Hub.
func NewHub(executor bridge.Executor) *Hub {
	return &Hub{Executor: executor, QueueSize: DefaultQueueSize}
}

// Handler returns the http.Handler accepting websocket connections.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// Publish implements bridge.Sink. Slow clients miss packets rather than
// block the session.
func (h *Hub) Publish(ctx context.Context, ev *msgs.Event) error {
	pkt, err := msgs.Encode(&msgs.Envelope{Event: ev})
	if err != nil {
		return err
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for c := range h.clients {
		c.send(pkt)
	}
	return nil
}

func (h *Hub) add(c *client) {
	h.lock.Lock()
	if h.clients == nil {
		h.clients = make(map[*client]struct{})
	}
	h.clients[c] = struct{}{}
	h.lock.Unlock()
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	delete(h.clients, c)
	h.lock.Unlock()
}

func (h *Hub) serve(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	size := h.QueueSize
	if size <= 0 {
		size = DefaultQueueSize
	}
	c := &client{conn: NewConn(ws), sendCh: make(chan []byte, size)}
	addr := ws.Request().RemoteAddr
	glog.Infof("websocket client %s connected", addr)

	h.add(c)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop()
	}()

	ctx := ws.Request().Context()
	for {
		pkt, err := c.conn.ReadPacket()
		if err != nil {
			glog.V(1).Infof("websocket client %s: %v", addr, err)
			break
		}
		h.execute(ctx, c, pkt)
	}

	h.remove(c)
	close(c.sendCh)
	<-writerDone
	ws.Close()
	glog.Infof("websocket client %s disconnected", addr)
}

func (h *Hub) execute(ctx context.Context, c *client, pkt []byte) {
	cmd, err := msgs.DecodeCommand(pkt)
	if err != nil {
		glog.Warningf("websocket: %v", err)
		return
	}
	if h.Executor == nil {
		return
	}
	reply := h.Executor.Execute(ctx, cmd)
	out, err := msgs.Encode(&msgs.Envelope{Reply: reply})
	if err != nil {
		glog.Errorf("websocket reply %q: %v", cmd.Id, err)
		return
	}
	c.send(out)
}

// send must be called with the client registered, so sendCh is open.
func (c *client) send(pkt []byte) {
	select {
	case c.sendCh <- pkt:
	default:
		glog.V(1).Info("websocket client queue full, packet dropped")
	}
}

func (c *client) writeLoop() {
	for pkt := range c.sendCh {
		if err := c.conn.WritePacket(pkt); err != nil {
			glog.V(1).Infof("websocket write: %v", err)
			return
		}
	}
}
