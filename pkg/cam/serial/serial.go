// Package serial opens the serial device connected to the camera module.
package serial

import (
	"flag"
	"fmt"
	"os"
	"time"

	tarm "github.com/tarm/serial"

	"github.com/robotalks/camlink/pkg/cam/comm"
)

// Config defines the serial device.
type Config struct {
	Device      string
	Baud        int
	ReadTimeout time.Duration
	// BufferSize is the number of received bytes buffered ahead.
	BufferSize int
}

var defaultConfig = Config{
	Device:      "/dev/ttyUSB0",
	Baud:        115200,
	ReadTimeout: 100 * time.Millisecond,
	BufferSize:  comm.DefaultPortBuffer,
}

func init() {
	if val := os.Getenv("CAMLINK_SERIAL"); val != "" {
		defaultConfig.Device = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Device, "serial", defaultConfig.Device, "Serial device connected to the camera module")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "serial-read-timeout", defaultConfig.ReadTimeout, "Serial read timeout")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// TarmConfig converts to the config of the serial library.
func (c *Config) TarmConfig() *tarm.Config {
	return &tarm.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		ReadTimeout: c.ReadTimeout,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("serial device not specified")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	return nil
}

// Open opens the device and wraps it as a comm.Port. Port.Run must be
// started to receive data.
func (c *Config) Open() (*comm.Port, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	dev, err := tarm.OpenPort(c.TarmConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s error: %v", c.Device, err)
	}
	port := comm.NewPort(dev, c.BufferSize)
	// tarm returns io.EOF when ReadTimeout expires with no data.
	port.ReadTimeout = c.ReadTimeout > 0
	return port, nil
}
