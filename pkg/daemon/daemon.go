// Package daemon wires the camera link to the bridges and the metrics
// endpoint.
package daemon

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/robotalks/camlink/pkg/bridge"
	"github.com/robotalks/camlink/pkg/bridge/mqtt"
	"github.com/robotalks/camlink/pkg/bridge/websocket"
	"github.com/robotalks/camlink/pkg/cam/comm"
	"github.com/robotalks/camlink/pkg/cam/env"
	"github.com/robotalks/camlink/pkg/cam/provision"
	fx "github.com/robotalks/camlink/pkg/framework"
	"github.com/robotalks/camlink/pkg/monitor"
)

// ConnectTimeout bounds connecting to the MQTT broker.
const ConnectTimeout = 10 * time.Second

// ErrConnectTimeout is returned when the broker can't be reached in time.
var ErrConnectTimeout = errors.New("mqtt connect timeout")

// Config is the daemon configuration.
type Config struct {
	// MQTTURL is the broker URL, empty disables the MQTT bridge.
	MQTTURL string
	// HTTPAddr serves metrics and the websocket stream, empty disables it.
	HTTPAddr      string
	WebsocketPath string
	// Profile is a provisioning profile file applied on start.
	Profile string
	Env     *env.Config
}

var defaultConfig = Config{
	HTTPAddr:      ":9108",
	WebsocketPath: "/ws",
	Env:           env.Default(),
}

func init() {
	if val := os.Getenv("CAMLINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTURL = val
	}
	if val := os.Getenv("CAMLINK_HTTP_ADDR"); val != "" {
		defaultConfig.HTTPAddr = val
	}
	if val := os.Getenv("CAMLINK_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTURL, "mqtt", defaultConfig.MQTTURL, "MQTT broker URL, e.g. mqtt://localhost:1883/camlink/")
	flag.StringVar(&defaultConfig.HTTPAddr, "http", defaultConfig.HTTPAddr, "Listen address of metrics and websocket stream")
	flag.StringVar(&defaultConfig.WebsocketPath, "ws-path", defaultConfig.WebsocketPath, "HTTP path of websocket stream")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "Provisioning profile applied on start")
	env.SetupFlags()
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Env = env.NewConfig()
	return &conf
}

// Daemon is the running camera link.
type Daemon struct {
	Config   *Config
	Env      *env.Env
	Bridge   *bridge.Bridge
	Hub      *websocket.Hub
	Metrics  *monitor.Metrics
	Registry *prometheus.Registry
	Queue    *mqtt.Queue
	Link     *mqtt.Link
	Server   *monitor.Server
	Profile  *provision.Profile
}

// NewDaemonWith creates a Daemon over an opened Env.
func (c *Config) NewDaemonWith(e *env.Env) (*Daemon, error) {
	d := &Daemon{
		Config:   c,
		Env:      e,
		Bridge:   bridge.New(c.Env.ID, e.Session),
		Registry: prometheus.NewRegistry(),
	}
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = monitor.NewMetrics(d.Registry)
	e.Session.SetObserver(d.Metrics)
	e.Session.OnStateChange(d.Metrics)
	e.Session.OnEvent(d.Bridge)

	if c.HTTPAddr != "" {
		d.Hub = websocket.NewHub(d.Bridge)
		d.Bridge.AddSink(d.Hub)
		mux := monitor.NewMux(d.Registry)
		mux.Handle(c.WebsocketPath, d.Hub.Handler())
		d.Server = &monitor.Server{Addr: c.HTTPAddr, Handler: mux}
	}

	if c.MQTTURL != "" {
		meta := &mqtt.Meta{Device: c.Env.ID, Serial: c.Env.Serial.Device}
		link, err := mqtt.NewLinkFromURL(c.MQTTURL, meta, d.Bridge)
		if err != nil {
			return nil, fmt.Errorf("mqtt: %v", err)
		}
		d.Queue, d.Link = link.Queue, link
		d.Bridge.AddSink(link)
	}

	if c.Profile != "" {
		profile, err := provision.LoadProfile(c.Profile)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %v", c.Profile, err)
		}
		d.Profile = profile
	}
	return d, nil
}

// NewDaemon opens the serial device and creates Daemon.
func (c *Config) NewDaemon() (*Daemon, error) {
	e, err := c.Env.NewEnv()
	if err != nil {
		return nil, err
	}
	d, err := c.NewDaemonWith(e)
	if err != nil {
		e.Port.Close()
		return nil, err
	}
	return d, nil
}

// MustNewDaemon creates Daemon and fails on error.
func (c *Config) MustNewDaemon() *Daemon {
	d, err := c.NewDaemon()
	if err != nil {
		log.Fatalln(err)
	}
	return d
}

// Run implements Runnable. Everything stops when any part stops.
func (d *Daemon) Run(ctx context.Context) error {
	if d.Queue != nil {
		token := d.Queue.Connect()
		if !token.WaitTimeout(ConnectTimeout) {
			return ErrConnectTimeout
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connect: %v", err)
		}
		defer d.Queue.Close()
	}

	runner := fx.NewRunnerWith(ctx).GoLinked(fx.NamedRun("env", d.Env))
	if d.Server != nil {
		runner.GoLinked(fx.NamedRun("http", d.Server))
	}
	if d.Link != nil {
		runner.GoLinked(fx.NamedRun("mqtt", d.Link))
	}
	if d.Profile != nil {
		runner.Go(fx.NamedRun("provision", fx.RunFunc(func(ctx context.Context) error {
			err := d.Provision(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				runner.Stop()
			}
			return err
		})))
	}
	return runner.Wait()
}

// Provision runs the bring-up sequence with Profile on the session.
func (d *Daemon) Provision(ctx context.Context) error {
	type result struct {
		info *provision.Info
		err  error
	}
	resultCh := make(chan result, 1)
	err := d.Env.Session.Exec(ctx, func(ctx context.Context, s *comm.Session) {
		info, err := provision.Begin(ctx, s, d.Profile)
		resultCh <- result{info: info, err: err}
	})
	if err != nil {
		return err
	}
	select {
	case r := <-resultCh:
		if r.err != nil {
			return fmt.Errorf("provision: %w", r.err)
		}
		glog.Infof("camera %q ready, remote UI at %s, video at %s",
			d.Profile.Name, r.info.WebsocketURL(), r.info.VideoURL())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
