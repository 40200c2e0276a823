package comm

import (
	"bytes"
	"context"
	"time"

	"github.com/golang/glog"
)

type commandState int

const (
	cmdSending     commandState = iota // (re)send on next step
	cmdAwaitingAck                     // polling for acknowledgement
	cmdDone                            // acknowledged
	cmdFailed                          // exhausted or aborted
)

// PendingCommand is a command waiting for acknowledgement. It's driven by
// Step, which never blocks, so a caller can interleave other work between
// steps. Wait drives it to completion.
type PendingCommand struct {
	Name        string
	Value       string
	Timeout     time.Duration
	MaxAttempts int

	session  *Session
	state    commandState
	attempts int
	deadline time.Time
	busy     bool
	result   string
	err      error
}

// Attempts returns the number of sends so far.
func (c *PendingCommand) Attempts() int {
	return c.attempts
}

// Done indicates the command either succeeded or failed.
func (c *PendingCommand) Done() bool {
	return c.state == cmdDone || c.state == cmdFailed
}

// Result returns the text after the acknowledgement prefix, or the error.
func (c *PendingCommand) Result() (string, error) {
	return c.result, c.err
}

// Step performs one non-blocking step and reports whether the command is
// done.
func (c *PendingCommand) Step() bool {
	c.busy = false
	switch c.state {
	case cmdSending:
		c.attempts++
		c.busy = true
		if err := c.session.sendCommand(c.Name, c.Value); err != nil {
			c.fail(err)
			break
		}
		c.deadline = c.session.now().Add(c.Timeout)
		c.state = cmdAwaitingAck
	case cmdAwaitingAck:
		unit := c.session.reader.Read()
		c.busy = unit.Kind != UnitNone || c.session.Transport.Available() > 0
		if unit.Kind != UnitNone {
			if unit.Kind == UnitText && bytes.HasPrefix(unit.Data, []byte(AckPrefix)) {
				c.acknowledge(unit.Data)
				break
			}
			glog.V(2).Infof("command %s: %s unit dropped while waiting for %s", c.Name, unit.Kind, AckPrefix)
		}
		if !c.session.now().Before(c.deadline) {
			glog.Warningf("command %s attempt %d/%d: %v", c.Name, c.attempts, c.MaxAttempts, ErrAttemptTimeout)
			if c.attempts >= c.MaxAttempts {
				c.fail(ErrExhausted)
				break
			}
			c.state = cmdSending
		}
	}
	return c.Done()
}

// Wait steps the command until it's done or ctx is cancelled. Between idle
// steps it sleeps for the session's PollInterval.
func (c *PendingCommand) Wait(ctx context.Context) (string, error) {
	interval := c.session.PollInterval
	for !c.Step() {
		if c.busy || interval <= 0 {
			if err := ctx.Err(); err != nil {
				c.fail(err)
			}
			continue
		}
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			c.fail(ctx.Err())
		case <-timer.C:
		}
	}
	return c.Result()
}

// Abort fails the command with err if it's not done yet.
func (c *PendingCommand) Abort(err error) {
	c.fail(err)
}

func (c *PendingCommand) acknowledge(line []byte) {
	if _, err := c.session.Transport.Write([]byte(AckPrefix + "\n")); err != nil {
		glog.Warningf("command %s: write %s error: %v", c.Name, AckPrefix, err)
	}
	rest := line[len(AckPrefix):]
	if len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	c.session.buf.TrimFront(len(line) - len(rest))
	c.result = c.session.buf.String()
	c.state = cmdDone
	c.session.commandCompleted(c)
}

func (c *PendingCommand) fail(err error) {
	if c.Done() {
		return
	}
	c.err = &CommandError{Name: c.Name, Attempts: c.attempts, Err: err}
	c.state = cmdFailed
	glog.Errorf("%v", c.err)
	c.session.commandCompleted(c)
}
