package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/camlink/pkg/bridge"
	"github.com/robotalks/camlink/pkg/bridge/msgs"
)

// Topic suffixes under the device name.
const (
	EventTopic = "event"
	CmdTopic   = "cmd"
	ReplyTopic = "reply"
	// MetaTopic carries the retained Meta while the device is online.
	MetaTopic = "meta"
)

// DefaultPublishTimeout is the time to wait for a publish to complete.
const DefaultPublishTimeout = 5 * time.Second

// ErrPublishTimeout indicates the broker didn't confirm a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// Meta describes an online device.
type Meta struct {
	Device      string `json:"device"`
	Serial      string `json:"serial,omitempty"`
	Description string `json:"description,omitempty"`
}

// Link connects a device to the broker:
// events are published to <device>/event,
// commands are received from <device>/cmd,
// and replies are published to <device>/reply.
type Link struct {
	Queue          *Queue
	Device         string
	Executor       bridge.Executor
	PublishTimeout time.Duration
	// Meta is published retained on connect if not nil.
	Meta *Meta

	cmdCh chan []byte
}

// NewLink creates a Link.
func NewLink(q *Queue, device string, executor bridge.Executor) *Link {
	return &Link{
		Queue:          q,
		Device:         device,
		Executor:       executor,
		PublishTimeout: DefaultPublishTimeout,
		cmdCh:          make(chan []byte, 16),
	}
}

// NewLinkFromURL creates the Queue from brokerURL and a Link with presence:
// Meta is published on connect and cleared by the will when the connection
// is lost.
func NewLinkFromURL(brokerURL string, meta *Meta, executor bridge.Executor) (*Link, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+meta.Device+"/"+MetaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("camlink:" + meta.Device)
	}
	l := NewLink(NewQueue(opts, topicPrefix), meta.Device, executor)
	l.Meta = meta
	l.Queue.OnConnect = func(*Queue) {
		if err := l.PublishMeta(); err != nil {
			glog.Warningf("MQTT publish meta: %v", err)
		}
	}
	return l, nil
}

// PublishMeta publishes Meta as retained message.
func (l *Link) PublishMeta() error {
	if l.Meta == nil {
		return nil
	}
	payload, err := json.Marshal(l.Meta)
	if err != nil {
		return err
	}
	return l.wait(l.Queue.PubWith(l.Topic(MetaTopic), payload, 1, true))
}

// Topic returns the topic of the device with suffix.
func (l *Link) Topic(suffix string) string {
	return l.Device + "/" + suffix
}

// Publish implements bridge.Sink.
func (l *Link) Publish(ctx context.Context, ev *msgs.Event) error {
	payload, err := msgs.Encode(ev)
	if err != nil {
		return err
	}
	return l.pub(EventTopic, payload)
}

// Run implements Runnable. Commands are executed one at a time.
func (l *Link) Run(ctx context.Context) error {
	sub := l.Queue.Sub(l.Topic(CmdTopic), Handler(l.handleCmd))
	defer sub.Close()
	if l.Meta != nil {
		defer func() {
			l.wait(l.Queue.PubWith(l.Topic(MetaTopic), nil, 1, true))
		}()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload := <-l.cmdCh:
			l.execute(ctx, payload)
		}
	}
}

func (l *Link) execute(ctx context.Context, payload []byte) {
	cmd, err := msgs.DecodeCommand(payload)
	if err != nil {
		glog.Warningf("MQTT %s: %v", l.Topic(CmdTopic), err)
		return
	}
	reply := l.Executor.Execute(ctx, cmd)
	if !reply.OK() {
		glog.V(1).Infof("command %q failed: %s", cmd.Name, reply.Error)
	}
	out, err := msgs.Encode(reply)
	if err == nil {
		err = l.pub(ReplyTopic, out)
	}
	if err != nil {
		glog.Errorf("MQTT reply %q: %v", cmd.Id, err)
	}
}

func (l *Link) pub(suffix string, payload []byte) error {
	return l.wait(l.Queue.Pub(l.Topic(suffix), payload))
}

func (l *Link) wait(token paho.Token) error {
	if l.PublishTimeout > 0 {
		if !token.WaitTimeout(l.PublishTimeout) {
			return ErrPublishTimeout
		}
	} else {
		token.Wait()
	}
	return token.Error()
}

func (l *Link) handleCmd(_ string, payload []byte) {
	select {
	case l.cmdCh <- payload:
	default:
		glog.Warningf("MQTT %s: command dropped, queue full", l.Topic(CmdTopic))
	}
}
