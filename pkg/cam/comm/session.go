package comm

import (
	"context"
	"time"

	"github.com/golang/glog"
)

// Defaults of Session.
const (
	DefaultCommandTimeout = 100 * time.Millisecond
	DefaultRetries        = 3
	DefaultPollInterval   = time.Millisecond
)

// Clock provides monotonic time.
type Clock interface {
	Now() time.Time
}

// ClockFunc is func type of Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock uses time.Now which carries a monotonic reading.
var SystemClock Clock = ClockFunc(time.Now)

// Session owns the line buffer, the reader and the dispatcher of one link
// to the camera module.
type Session struct {
	Transport Transport
	Clock     Clock
	// Retries is the max number of attempts of a command.
	Retries int
	// PollInterval is the idle wait between polls with nothing received.
	PollInterval time.Duration

	buf        *LineBuffer
	reader     *Reader
	dispatcher Dispatcher
	observer   Observer
	timeout    time.Duration
	execCh     chan execRequest

	sendInterval time.Duration
	sendSource   func() []byte
	lastSend     time.Time
}

// NewSession creates a Session over t. bufferSize is the capacity of the
// line buffer, 0 for DefaultBufferSize.
func NewSession(t Transport, bufferSize int) *Session {
	s := &Session{
		Transport:    t,
		Clock:        SystemClock,
		Retries:      DefaultRetries,
		PollInterval: DefaultPollInterval,
		buf:          NewLineBuffer(bufferSize),
		timeout:      DefaultCommandTimeout,
		execCh:       make(chan execRequest, 16),
	}
	s.reader = NewReader(t, s.buf)
	return s
}

// Reader gets the underlying Reader.
func (s *Session) Reader() *Reader {
	return s.reader
}

// Line returns a copy of the line buffer. After EventText it's the data
// line without TextHeader.
func (s *Session) Line() string {
	return s.buf.String()
}

// CommandTimeout gets the per-attempt timeout of commands.
func (s *Session) CommandTimeout() time.Duration {
	return s.timeout
}

// SetCommandTimeout sets the per-attempt timeout of commands.
func (s *Session) SetCommandTimeout(d time.Duration) {
	s.timeout = d
}

// SetObserver installs an Observer for statistics.
func (s *Session) SetObserver(o Observer) {
	s.observer = o
	s.reader.Observer = o
}

// SetDebugLevel sets which log lines from the camera module are logged.
func (s *Session) SetDebugLevel(l DebugLevel) {
	s.reader.Debug = l
}

// OnText registers the handler of remote UI data. It replaces the previous one.
func (s *Session) OnText(h TextHandler) {
	s.dispatcher.Text = h
}

// OnBinary registers the handler of binary payloads. It replaces the previous one.
func (s *Session) OnBinary(h BinaryHandler) {
	s.dispatcher.Binary = h
}

// OnStateChange registers the notifier of link state changes.
func (s *Session) OnStateChange(n StateNotifier) {
	s.dispatcher.Notifier = n
}

// OnEvent registers a handler receiving all events.
func (s *Session) OnEvent(h EventHandler) {
	s.dispatcher.Events = h
}

// Connected reports whether the remote app is connected.
func (s *Session) Connected() bool {
	return s.dispatcher.Connected()
}

// AutoSend sends the payload from source with SendData at most once per
// interval, after a unit is received. A nil source disables it.
func (s *Session) AutoSend(interval time.Duration, source func() []byte) {
	s.sendInterval, s.sendSource = interval, source
}

// Poll reads at most one unit and dispatches it. It never blocks.
func (s *Session) Poll(ctx context.Context) Event {
	unit := s.reader.Read()
	if unit.Kind == UnitNone {
		return Event{}
	}
	ev := Classify(unit)
	if ev.Kind == EventText {
		s.buf.TrimFront(len(TextHeader))
		ev.Data = s.buf.Bytes()
	}
	s.dispatcher.Dispatch(ctx, ev)
	s.autoSend()
	return ev
}

type execRequest struct {
	ctx context.Context
	fn  func(context.Context, *Session)
}

// Exec queues fn to be run on the goroutine calling Run. It's the only
// Session method safe to call from other goroutines. The context passed to
// fn is cancelled when either ctx or the context of Run is done, and fn is
// skipped if ctx is done before it's dequeued.
func (s *Session) Exec(ctx context.Context, fn func(context.Context, *Session)) error {
	select {
	case s.execCh <- execRequest{ctx: ctx, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls until ctx is cancelled, running functions queued by Exec
// between polls.
func (s *Session) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-s.execCh:
			s.exec(ctx, req)
			continue
		default:
		}
		if ev := s.Poll(ctx); ev.Kind != EventNone || s.Transport.Available() > 0 {
			continue
		}
		timer := time.NewTimer(s.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case req := <-s.execCh:
			timer.Stop()
			s.exec(ctx, req)
		case <-timer.C:
		}
	}
}

func (s *Session) exec(runCtx context.Context, req execRequest) {
	if req.ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(runCtx)
	defer cancel()
	stopCh := make(chan struct{})
	defer close(stopCh)
	go func() {
		select {
		case <-req.ctx.Done():
			cancel()
		case <-stopCh:
		}
	}()
	req.fn(ctx, s)
}

// Start sends a command and returns it for the caller to drive with Step or
// Wait.
func (s *Session) Start(name, value string) *PendingCommand {
	retries := s.Retries
	if retries <= 0 {
		retries = 1
	}
	return &PendingCommand{
		Name:        name,
		Value:       value,
		Timeout:     s.timeout,
		MaxAttempts: retries,
		session:     s,
	}
}

// Command sends "SET+<name><value>". If wait is false it returns right after
// sending. Otherwise it waits for the acknowledgement and returns the text
// following it. A *CommandError wrapping ErrExhausted is returned when no
// attempt is acknowledged.
func (s *Session) Command(ctx context.Context, name, value string, wait bool) (string, error) {
	if !wait {
		if err := s.sendCommand(name, value); err != nil {
			return "", &CommandError{Name: name, Attempts: 1, Err: err}
		}
		return "", nil
	}
	return s.Start(name, value).Wait(ctx)
}

// Set sends a command and waits for the acknowledgement.
func (s *Session) Set(ctx context.Context, name, value string) error {
	_, err := s.Command(ctx, name, value, true)
	return err
}

// SetNoWait sends a command without waiting.
func (s *Session) SetNoWait(ctx context.Context, name, value string) error {
	_, err := s.Command(ctx, name, value, false)
	return err
}

// Get sends a command and returns the text of the acknowledgement.
func (s *Session) Get(ctx context.Context, name, value string) (string, error) {
	return s.Command(ctx, name, value, true)
}

// SendData sends a data line "WS+<payload>".
func (s *Session) SendData(payload []byte) error {
	return s.write(TextHeader, payload)
}

// SendBinary sends "WSB+" followed by raw data.
func (s *Session) SendBinary(data []byte) error {
	return s.write(BinaryHeader, data)
}

func (s *Session) write(header string, payload []byte) error {
	line := make([]byte, 0, len(header)+len(payload)+1)
	line = append(line, header...)
	line = append(line, payload...)
	line = append(line, '\n')
	_, err := s.Transport.Write(line)
	return err
}

func (s *Session) sendCommand(name, value string) error {
	if err := s.Transport.Flush(); err != nil {
		return err
	}
	glog.V(2).Infof("TX: %s%s%s", CommandPrefix, name, value)
	_, err := s.Transport.Write([]byte(CommandPrefix + name + value + "\n"))
	return err
}

func (s *Session) autoSend() {
	if s.sendSource == nil {
		return
	}
	now := s.now()
	if now.Sub(s.lastSend) <= s.sendInterval {
		return
	}
	s.lastSend = now
	if err := s.SendData(s.sendSource()); err != nil {
		glog.Warningf("auto send error: %v", err)
	}
}

func (s *Session) commandCompleted(c *PendingCommand) {
	if o := s.observer; o != nil {
		o.CommandCompleted(c.Name, c.attempts, c.err)
	}
}

func (s *Session) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
