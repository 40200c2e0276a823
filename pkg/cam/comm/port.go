package comm

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
)

// DefaultPortBuffer is the default number of bytes Port buffers ahead.
const DefaultPortBuffer = 4096

// ErrNoData is returned by ReadByte when nothing is buffered.
var ErrNoData = errors.New("no data available")

// Port adapts a blocking io.ReadWriter (e.g. a serial port) into a
// Transport. Run reads in the background and buffers bytes.
type Port struct {
	ReadWriter  io.ReadWriter
	ReadTimeout bool // set to true if ReadWriter returns EOF/timeout when idle

	byteCh    chan byte
	writeLock sync.Mutex
}

// NewPort creates a Port buffering up to size bytes, 0 for DefaultPortBuffer.
func NewPort(rw io.ReadWriter, size int) *Port {
	if size <= 0 {
		size = DefaultPortBuffer
	}
	return &Port{ReadWriter: rw, byteCh: make(chan byte, size)}
}

// Available implements Transport.
func (p *Port) Available() int {
	return len(p.byteCh)
}

// ReadByte implements Transport.
func (p *Port) ReadByte() (byte, error) {
	select {
	case b := <-p.byteCh:
		return b, nil
	default:
		return 0, ErrNoData
	}
}

// Write implements Transport.
func (p *Port) Write(b []byte) (int, error) {
	p.writeLock.Lock()
	defer p.writeLock.Unlock()
	return p.ReadWriter.Write(b)
}

// Flush implements Transport. It waits for written data to be transmitted
// if the underlying ReadWriter supports Sync.
func (p *Port) Flush() error {
	if s, ok := p.ReadWriter.(interface{ Sync() error }); ok {
		p.writeLock.Lock()
		defer p.writeLock.Unlock()
		return s.Sync()
	}
	return nil
}

// Close closes the underlying ReadWriter if it's an io.Closer.
func (p *Port) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Run reads from ReadWriter until ctx is cancelled or a read fails.
func (p *Port) Run(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := p.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.byteCh <- b:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err != nil {
			if p.ReadTimeout && (err == io.EOF || os.IsTimeout(err)) {
				continue
			}
			return err
		}
	}
}
