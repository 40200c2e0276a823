package comm

import (
	"bytes"
	"time"
)

type fakeTransport struct {
	in      []byte
	out     bytes.Buffer
	flushes int
	onWrite func(t *fakeTransport, p []byte)
}

func (t *fakeTransport) Available() int {
	return len(t.in)
}

func (t *fakeTransport) ReadByte() (byte, error) {
	if len(t.in) == 0 {
		return 0, ErrNoData
	}
	b := t.in[0]
	t.in = t.in[1:]
	return b, nil
}

func (t *fakeTransport) Write(p []byte) (int, error) {
	t.out.Write(p)
	if t.onWrite != nil {
		t.onWrite(t, p)
	}
	return len(p), nil
}

func (t *fakeTransport) Flush() error {
	t.flushes++
	return nil
}

func (t *fakeTransport) inject(data ...[]byte) {
	for _, d := range data {
		t.in = append(t.in, d...)
	}
}

func (t *fakeTransport) injectString(lines ...string) {
	for _, l := range lines {
		t.in = append(t.in, l...)
	}
}

// stepClock advances by step every time it's read.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func mustFrame(payload ...byte) []byte {
	f, err := EncodeFrame(payload)
	if err != nil {
		panic(err)
	}
	return f
}
