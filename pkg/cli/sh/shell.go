package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/camlink/pkg/bridge"
	"github.com/robotalks/camlink/pkg/bridge/msgs"
	"github.com/robotalks/camlink/pkg/cam/comm"
	"github.com/robotalks/camlink/pkg/cam/env"
	"github.com/robotalks/camlink/pkg/cam/provision"
)

// ErrNotConnected is returned by commands requiring an open link.
var ErrNotConnected = errors.New("not connected")

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool
	// CommandTimeout bounds a single shell command, including retries.
	CommandTimeout time.Duration
	// NewProvisioner creates the Provisioner used by Provision.
	NewProvisioner func(provision.Device) *provision.Provisioner
	Out            io.Writer

	Shell  *ishell.Shell
	Config *env.Config
	Link   *Link

	watching atomic.Bool
}

// Link is an open link to the camera module.
type Link struct {
	Env    *env.Env
	Bridge *bridge.Bridge

	cancel func()
	done   chan struct{}
	err    error
}

// Status is the state of the link.
type Status struct {
	Device    string `json:"device"`
	Serial    string `json:"serial"`
	Connected bool   `json:"connected"`
	Line      string `json:"line,omitempty"`
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// DefaultCommandTimeout is the default of Shell.CommandTimeout.
	DefaultCommandTimeout = 30 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	commandsLock sync.Mutex
	commands     = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatusCmd,
		&SetCmd,
		&GetCmd,
		&SendCmd,
		&ResetCmd,
		&LampCmd,
		&ProvisionCmd,
		&WatchCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commandsLock.Lock()
	commands = append(commands, cmds...)
	commandsLock.Unlock()
}

// NewWith creates a Shell without the interactive console.
func NewWith(conf *env.Config) *Shell {
	return &Shell{
		Interactive:    !evalOnly,
		OutputJSON:     outputJSON,
		CommandTimeout: DefaultCommandTimeout,
		NewProvisioner: provision.New,
		Out:            os.Stdout,
		Config:         conf,
	}
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := NewWith(conf)
	s.Shell = ishell.New()
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	commandsLock.Lock()
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	commandsLock.Unlock()
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if !ShellFrom(c).Connected() {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connected tells if the link is open.
func (s *Shell) Connected() bool {
	if s.Link == nil {
		return false
	}
	select {
	case <-s.Link.done:
		return false
	default:
		return true
	}
}

// Connect opens the serial device. A non-empty device overrides the
// configured one.
func (s *Shell) Connect(device string) error {
	if device != "" {
		s.Config.Serial.Device = device
	}
	e, err := s.Config.NewEnv()
	if err != nil {
		return err
	}
	s.Attach(e)
	return nil
}

// Attach runs e in background and makes it the current link.
func (s *Shell) Attach(e *env.Env) {
	s.Disconnect()
	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		Env:    e,
		Bridge: bridge.New(s.Config.ID, e.Session),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	e.Session.OnEvent(comm.HandleEventFunc(s.handleEvent))
	go func() {
		defer close(l.done)
		l.err = e.Run(ctx)
	}()
	s.Link = l
	if s.Shell != nil {
		s.Shell.SetPrompt(fmt.Sprintf("%s > ", s.Config.Serial.Device))
	}
}

// Disconnect closes the current link and returns the error which stopped
// it, if any.
func (s *Shell) Disconnect() error {
	l := s.Link
	if l == nil {
		return nil
	}
	s.Link = nil
	l.cancel()
	<-l.done
	if s.Shell != nil {
		s.Shell.SetPrompt(unconnectedPrompt)
	}
	if errors.Is(l.err, context.Canceled) {
		return nil
	}
	return l.err
}

// Watch enables or disables printing events from the camera module.
func (s *Shell) Watch(en bool) {
	s.watching.Store(en)
}

func (s *Shell) handleEvent(_ context.Context, ev comm.Event) {
	if !s.watching.Load() {
		return
	}
	switch ev.Kind {
	case comm.EventText, comm.EventUnknown:
		fmt.Fprintf(s.Out, "[%s] %s\n", ev.Kind, ev.Data)
	case comm.EventBinary:
		fmt.Fprintf(s.Out, "[%s] % x\n", ev.Kind, ev.Data)
	default:
		fmt.Fprintf(s.Out, "[%s]\n", ev.Kind)
	}
}

func (s *Shell) context() (context.Context, context.CancelFunc) {
	if s.CommandTimeout > 0 {
		return context.WithTimeout(context.Background(), s.CommandTimeout)
	}
	return context.WithCancel(context.Background())
}

// Do runs fn on the session goroutine and waits for it.
func (s *Shell) Do(fn func(context.Context, *comm.Session) error) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	ctx, cancel := s.context()
	defer cancel()
	errCh := make(chan error, 1)
	if err := s.Link.Env.Session.Exec(ctx, func(ctx context.Context, sess *comm.Session) {
		errCh <- fn(ctx, sess)
	}); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.Link.done:
		return ErrNotConnected
	}
}

// Execute runs a command through the bridge.
func (s *Shell) Execute(cmd *msgs.Command) (*msgs.CommandReply, error) {
	if !s.Connected() {
		return nil, ErrNotConnected
	}
	ctx, cancel := s.context()
	defer cancel()
	return s.Link.Bridge.Execute(ctx, cmd), nil
}

// Status retrieves the state of the link.
func (s *Shell) Status() (*Status, error) {
	stCh := make(chan *Status, 1)
	err := s.Do(func(_ context.Context, sess *comm.Session) error {
		stCh <- &Status{
			Device:    s.Config.ID,
			Serial:    s.Config.Serial.Device,
			Connected: sess.Connected(),
			Line:      sess.Line(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return <-stCh, nil
}

// Provision runs the bring-up sequence with profile.
func (s *Shell) Provision(profile *provision.Profile) (*provision.Info, error) {
	infoCh := make(chan *provision.Info, 1)
	err := s.Do(func(ctx context.Context, sess *comm.Session) error {
		info, err := s.NewProvisioner(sess).Begin(ctx, profile)
		infoCh <- info
		return err
	})
	if err != nil {
		return nil, err
	}
	return <-infoCh, nil
}

// PrintReply prints the reply of a command.
func (s *Shell) PrintReply(c *ishell.Context, reply *msgs.CommandReply) {
	if s.OutputJSON {
		s.PrintJSON(c, reply)
		return
	}
	if !reply.OK() {
		c.Err(errors.New(reply.Error))
		return
	}
	if reply.Result == "" {
		c.Println("OK")
		return
	}
	c.Println("OK " + reply.Result)
}

// PrintJSON prints v in JSON.
func (s *Shell) PrintJSON(c *ishell.Context, v interface{}) {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Serial.Device)
		}
		if err := s.Connect(""); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Serial.Device, err)
		}
		defer s.Disconnect()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
