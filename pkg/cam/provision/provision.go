// Package provision brings up the camera module: it resets the module,
// checks the firmware, configures the access point and starts the
// websocket server.
package provision

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/golang/glog"
)

// Commands understood by the camera module.
const (
	CmdReset = "RESET"
	CmdName  = "NAME"
	CmdType  = "TYPE"
	CmdSSID  = "APSSID"
	CmdPSK   = "APPSK"
	CmdPort  = "PORT"
	CmdStart = "START"
	CmdLamp  = "LAMP"
)

// The MJPEG stream served by the camera module.
const (
	VideoPort = 9000
	VideoPath = "/mjpg"
)

// Default timeouts of Begin.
const (
	DefaultResetTimeout = 3 * time.Second
	DefaultSetupTimeout = time.Second
	DefaultSetupDelay   = time.Second
	DefaultStartTimeout = 10 * time.Second
)

// Device is the command interface of the camera module, implemented by
// *comm.Session.
type Device interface {
	Get(ctx context.Context, name, value string) (string, error)
	Set(ctx context.Context, name, value string) error
	SetNoWait(ctx context.Context, name, value string) error
	CommandTimeout() time.Duration
	SetCommandTimeout(time.Duration)
}

// Info is the result of Begin.
type Info struct {
	Version Version
	IP      string
	Port    int
}

// WebsocketURL is the address of the remote UI websocket server.
func (i *Info) WebsocketURL() string {
	return "ws://" + net.JoinHostPort(i.IP, strconv.Itoa(i.Port))
}

// VideoURL is the address of the MJPEG stream.
func (i *Info) VideoURL() string {
	return "http://" + net.JoinHostPort(i.IP, strconv.Itoa(VideoPort)) + VideoPath
}

// VersionError is returned when the firmware is older than required.
type VersionError struct {
	Actual  Version
	Minimum Version
}

// Error implements error.
func (e *VersionError) Error() string {
	return fmt.Sprintf("firmware version %s not supported, minimal version is %s", e.Actual, e.Minimum)
}

// Provisioner runs the bring-up sequence.
type Provisioner struct {
	Device       Device
	MinVersion   Version
	ResetTimeout time.Duration
	SetupTimeout time.Duration
	SetupDelay   time.Duration
	StartTimeout time.Duration
	// Sleep waits for d, returns early with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Provisioner with defaults.
func New(dev Device) *Provisioner {
	return &Provisioner{
		Device:       dev,
		MinVersion:   DefaultMinVersion,
		ResetTimeout: DefaultResetTimeout,
		SetupTimeout: DefaultSetupTimeout,
		SetupDelay:   DefaultSetupDelay,
		StartTimeout: DefaultStartTimeout,
		Sleep:        Sleep,
	}
}

// Begin resets the module, checks its firmware version, configures it with
// profile and starts the websocket server. The command timeout of Device is
// restored when it returns.
func (p *Provisioner) Begin(ctx context.Context, profile *Profile) (*Info, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	dev := p.Device
	defer dev.SetCommandTimeout(dev.CommandTimeout())

	dev.SetCommandTimeout(p.ResetTimeout)
	reply, err := dev.Get(ctx, CmdReset, "")
	if err != nil {
		return nil, fmt.Errorf("reset: %v", err)
	}
	info := &Info{Port: profile.Port}
	if info.Version, err = ParseVersion(reply); err != nil {
		return nil, err
	}
	glog.Infof("camera firmware version %s", info.Version)
	if !info.Version.AtLeast(p.MinVersion) {
		return info, &VersionError{Actual: info.Version, Minimum: p.MinVersion}
	}

	dev.SetCommandTimeout(p.SetupTimeout)
	if err = p.sleep(ctx, p.SetupDelay); err != nil {
		return info, err
	}
	settings := []struct {
		name, value string
	}{
		{CmdName, profile.Name},
		{CmdType, profile.Type},
		{CmdSSID, profile.SSID},
		{CmdPSK, profile.Password},
		{CmdPort, strconv.Itoa(profile.Port)},
	}
	for _, s := range settings {
		if err = dev.Set(ctx, s.name, s.value); err != nil {
			return info, err
		}
	}

	dev.SetCommandTimeout(p.StartTimeout)
	if info.IP, err = dev.Get(ctx, CmdStart, ""); err != nil {
		return info, fmt.Errorf("start: %v", err)
	}
	glog.Infof("websocket server started on %s", info.WebsocketURL())
	glog.Infof("video streamer started on %s", info.VideoURL())
	if profile.Lamp > 0 {
		if err = Lamp(ctx, dev, profile.Lamp); err != nil {
			return info, err
		}
	}
	return info, nil
}

func (p *Provisioner) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return Sleep(ctx, d)
	}
	return p.Sleep(ctx, d)
}

// Begin runs the bring-up sequence with defaults.
func Begin(ctx context.Context, dev Device, profile *Profile) (*Info, error) {
	return New(dev).Begin(ctx, profile)
}

// Lamp turns on the lamp with brightness level without waiting.
func Lamp(ctx context.Context, dev Device, level int) error {
	return dev.SetNoWait(ctx, CmdLamp, strconv.Itoa(level))
}

// LampOff turns off the lamp without waiting.
func LampOff(ctx context.Context, dev Device) error {
	return dev.SetNoWait(ctx, CmdLamp, "0")
}

// Reset restarts the camera module. If wait is true it waits for the
// acknowledgement.
func Reset(ctx context.Context, dev Device, wait bool) error {
	if wait {
		return dev.Set(ctx, CmdReset, "")
	}
	return dev.SetNoWait(ctx, CmdReset, "")
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
