package sh

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/camlink/pkg/bridge/msgs"
	"github.com/robotalks/camlink/pkg/cam/comm"
	"github.com/robotalks/camlink/pkg/cam/provision"
)

var errUsage = errors.New("invalid arguments, see help")

func execCommand(c *ishell.Context, cmd *msgs.Command) {
	s := ShellFrom(c)
	reply, err := s.Execute(cmd)
	if err != nil {
		c.Err(err)
		return
	}
	s.PrintReply(c, reply)
}

func doCommand(c *ishell.Context, fn func(context.Context, *comm.Session) error) {
	if err := ShellFrom(c).Do(fn); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func setCommandFunc(wait bool) func(c *ishell.Context) {
	return MustBeConnected(func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(errUsage)
			return
		}
		execCommand(c, &msgs.Command{
			Name:  c.Args[0],
			Value: strings.Join(c.Args[1:], " "),
			Wait:  wait,
		})
	})
}

var (
	// ConnectCmd opens the serial device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			var device string
			if len(c.Args) > 0 {
				device = c.Args[0]
			}
			if err := ShellFrom(c).Connect(device); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd closes the serial device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			if err := ShellFrom(c).Disconnect(); err != nil {
				c.Err(err)
			}
		},
	}

	// StatusCmd prints the state of the link.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			st, err := s.Status()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.PrintJSON(c, st)
				return
			}
			c.Printf("device:    %s\nserial:    %s\nconnected: %v\nline:      %s\n",
				st.Device, st.Serial, st.Connected, st.Line)
		}),
	}

	// SetCmd sends SET+NAMEVALUE and waits for OK.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "NAME [VALUE]",
		Func:    setCommandFunc(true),
	}

	// GetCmd is the same as set, for commands answering with a value.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "NAME [VALUE]",
		Func:    setCommandFunc(true),
	}

	// SendCmd sends a remote UI data line.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"ws"},
		Help:    "DATA",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errUsage)
				return
			}
			execCommand(c, &msgs.Command{Data: []byte(strings.Join(c.Args, " "))})
		}),
	}

	// ResetCmd restarts the camera module.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "[nowait]",
		Func: MustBeConnected(func(c *ishell.Context) {
			wait := len(c.Args) == 0 || c.Args[0] != "nowait"
			doCommand(c, func(ctx context.Context, sess *comm.Session) error {
				return provision.Reset(ctx, sess, wait)
			})
		}),
	}

	// LampCmd sets the lamp brightness.
	LampCmd = ishell.Cmd{
		Name: "lamp",
		Help: "LEVEL|off",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			if c.Args[0] == "off" {
				doCommand(c, func(ctx context.Context, sess *comm.Session) error {
					return provision.LampOff(ctx, sess)
				})
				return
			}
			level, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			doCommand(c, func(ctx context.Context, sess *comm.Session) error {
				return provision.Lamp(ctx, sess, level)
			})
		}),
	}

	// ProvisionCmd runs the bring-up sequence with a YAML profile.
	ProvisionCmd = ishell.Cmd{
		Name:    "provision",
		Aliases: []string{"begin"},
		Help:    "PROFILE.yaml",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errUsage)
				return
			}
			profile, err := provision.LoadProfile(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			info, err := s.Provision(profile)
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				s.PrintJSON(c, map[string]string{
					"version":   info.Version.String(),
					"websocket": info.WebsocketURL(),
					"video":     info.VideoURL(),
				})
				return
			}
			c.Printf("firmware:  %s\nwebsocket: %s\nvideo:     %s\n",
				info.Version, info.WebsocketURL(), info.VideoURL())
		}),
	}

	// WatchCmd toggles printing of events.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "on|off",
		Func: func(c *ishell.Context) {
			en := len(c.Args) == 0 || c.Args[0] != "off"
			ShellFrom(c).Watch(en)
		},
	}
)
