// Package env sets up the link to the camera module from flags and
// environment variables.
package env

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/camlink/pkg/cam/comm"
	"github.com/robotalks/camlink/pkg/cam/serial"
	"github.com/robotalks/camlink/pkg/cam/widget"
	fx "github.com/robotalks/camlink/pkg/framework"
)

// DefaultSendInterval is the interval of telemetry auto-send.
const DefaultSendInterval = 60 * time.Millisecond

// Config provides common options to set up the link.
type Config struct {
	// ID identifies this device, defaults to the machine ID.
	ID             string
	BufferSize     int
	CommandTimeout time.Duration
	Retries        int
	Debug          comm.DebugLevel
	// SendInterval is the interval of telemetry auto-send, 0 disables it.
	SendInterval time.Duration
	Serial       *serial.Config
}

var defaultConfig = Config{
	BufferSize:     comm.DefaultBufferSize,
	CommandTimeout: comm.DefaultCommandTimeout,
	Retries:        comm.DefaultRetries,
	Debug:          comm.DebugError,
	SendInterval:   DefaultSendInterval,
	Serial:         serial.Default(),
}

func init() {
	if val := os.Getenv("CAMLINK_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
	if val := os.Getenv("CAMLINK_DEBUG"); val != "" {
		if err := defaultConfig.Debug.Set(val); err != nil {
			glog.Warningf("CAMLINK_DEBUG: %v", err)
		}
	}
}

// MachineID retrieves the unique ID identifying the machine, or the host
// name if it's not available.
func MachineID() string {
	id, err := machineid.ID()
	if err == nil && id != "" {
		return id
	}
	glog.V(1).Infof("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "camlink"
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Device ID")
	flag.IntVar(&defaultConfig.BufferSize, "buffer", defaultConfig.BufferSize, "Line buffer capacity in bytes")
	flag.DurationVar(&defaultConfig.CommandTimeout, "cmd-timeout", defaultConfig.CommandTimeout, "Timeout of a command attempt")
	flag.IntVar(&defaultConfig.Retries, "retries", defaultConfig.Retries, "Max attempts of a command")
	flag.Var(&defaultConfig.Debug, "cam-debug", "Log lines from camera module: none, error, info, debug, all")
	flag.DurationVar(&defaultConfig.SendInterval, "send-interval", defaultConfig.SendInterval, "Telemetry auto-send interval, 0 to disable")
	serial.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	s := *defaultConfig.Serial
	conf.Serial = &s
	return &conf
}

// Env is the link to the camera module.
type Env struct {
	Config    *Config
	Port      *comm.Port
	Session   *comm.Session
	Telemetry *widget.Telemetry
}

// NewSession creates a Session over t with the config applied.
func (c *Config) NewSession(t comm.Transport) *comm.Session {
	s := comm.NewSession(t, c.BufferSize)
	s.SetCommandTimeout(c.CommandTimeout)
	s.SetDebugLevel(c.Debug)
	if c.Retries > 0 {
		s.Retries = c.Retries
	}
	return s
}

// NewEnvWith creates an Env over an opened port.
func (c *Config) NewEnvWith(port *comm.Port) *Env {
	e := &Env{Config: c, Port: port, Telemetry: &widget.Telemetry{}}
	if port != nil {
		e.Session = c.NewSession(port)
	}
	if e.Session != nil && c.SendInterval > 0 {
		e.Session.AutoSend(c.SendInterval, e.Telemetry.Bytes)
	}
	return e
}

// NewEnv opens the serial device and creates Env.
func (c *Config) NewEnv() (*Env, error) {
	port, err := c.Serial.Open()
	if err != nil {
		return nil, fmt.Errorf("serial: %v", err)
	}
	return c.NewEnvWith(port), nil
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// Run implements Runnable. It reads the port in background and runs the
// session until ctx is cancelled or reading fails. The port is closed when
// Run returns.
func (e *Env) Run(ctx context.Context) error {
	return fx.NewRunnerWith(ctx).GoLinked(
		fx.NamedRun("port", fx.RunFunc(func(ctx context.Context) error {
			return fx.RunWithContextCloser(ctx, e.Port, func() error {
				return e.Port.Run(ctx)
			})
		})),
		fx.NamedRun("session", e.Session),
	).Wait()
}
