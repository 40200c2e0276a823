package comm

import (
	"github.com/golang/glog"
)

// Markers exchanged with the camera module.
const (
	// TextHeader prefixes remote UI data lines.
	TextHeader = "WS+"
	// BinaryHeader switches the reader into binary frame mode.
	BinaryHeader = "WSB+"
	// AckPrefix prefixes the acknowledgement of a command.
	AckPrefix = "OK"
	// CommandPrefix prefixes commands sent to the module.
	CommandPrefix = "SET+"

	DeviceResetMarker  = "[Init]"
	ConnectedMarker    = "[CONNECTED]"
	DisconnectedMarker = "[DISCONNECTED]"
	AppStopMarker      = "[APPSTOP]"
)

// Transport is the byte oriented link to the camera module.
// Available and ReadByte must not block.
type Transport interface {
	Available() int
	ReadByte() (byte, error)
	Write([]byte) (int, error)
	Flush() error
}

// UnitKind classifies the content of the line buffer.
type UnitKind int

const (
	// UnitNone means nothing was completed.
	UnitNone UnitKind = iota
	// UnitText is a text line without the terminating newline.
	UnitText
	// UnitBinary is the payload of a binary frame.
	UnitBinary
)

// String implements Stringer.
func (k UnitKind) String() string {
	switch k {
	case UnitText:
		return "text"
	case UnitBinary:
		return "binary"
	}
	return "none"
}

// Unit is a completed receive. Data refers to the line buffer and is only
// valid until the next read.
type Unit struct {
	Kind UnitKind
	Data []byte
	// Truncated marks a text line cut at the buffer capacity. The rest of
	// the line is discarded.
	Truncated bool
}

// Observer receives protocol statistics.
type Observer interface {
	UnitReceived(Unit)
	FrameRejected(error)
	CommandCompleted(name string, attempts int, err error)
}

// Reader assembles units from a Transport without blocking.
type Reader struct {
	Transport Transport
	Debug     DebugLevel
	Observer  Observer

	buf       *LineBuffer
	frame     *FrameDecoder
	binary    bool
	discard   bool
	completed bool
	skipped   int
	err       error
}

// NewReader creates a Reader which assembles units in buf.
func NewReader(t Transport, buf *LineBuffer) *Reader {
	return &Reader{
		Transport: t,
		buf:       buf,
		frame:     NewFrameDecoder(buf),
	}
}

// Buffer returns the line buffer.
func (r *Reader) Buffer() *LineBuffer {
	return r.buf
}

// Err returns the last frame error and clears it.
func (r *Reader) Err() (err error) {
	err, r.err = r.err, nil
	return
}

// Read consumes available bytes until one unit is completed. A call consumes
// at most one byte more than the buffer capacity. It returns a UnitNone unit
// when the transport runs dry or the budget is used up first; bytes of a
// partial unit are kept for the next call.
func (r *Reader) Read() Unit {
	for n := 0; n <= r.buf.Cap() && r.Transport.Available() > 0; n++ {
		b, err := r.Transport.ReadByte()
		if err != nil {
			glog.Errorf("serial read error: %v", err)
			break
		}
		if unit, ok := r.consume(b); ok {
			if r.Observer != nil {
				r.Observer.UnitReceived(unit)
			}
			return unit
		}
	}
	return Unit{}
}

func (r *Reader) consume(b byte) (Unit, bool) {
	if r.completed {
		r.buf.Reset()
		r.completed = false
	}
	if r.binary {
		return r.consumeBinary(b)
	}
	if r.discard {
		r.discard = b != '\n'
		return Unit{}, false
	}
	switch {
	case b == '\n':
		if r.buf.Len() == 0 {
			return Unit{}, false
		}
		return r.completeText(false)
	case b < 0x20 || b > 0x7e:
		// '\r' and other control bytes are dropped.
		return Unit{}, false
	}
	if err := r.buf.WriteByte(b); err != nil {
		r.discard = true
		return r.completeText(true)
	}
	if r.buf.Len() == len(BinaryHeader) && r.buf.HasPrefix(BinaryHeader) {
		r.binary, r.skipped = true, 0
		r.frame.Reset()
	}
	return Unit{}, false
}

func (r *Reader) consumeBinary(b byte) (Unit, bool) {
	payload, done, err := r.frame.Decode(b)
	if err != nil {
		r.rejectFrame(err)
		if !r.frame.InFrame() && r.skipped < r.buf.Cap() {
			if fe, ok := err.(*FrameError); ok && fe.Err == ErrStartByteMismatch {
				r.skipped++
				return Unit{}, false
			}
		}
		r.binary = false
		r.buf.Reset()
		return Unit{}, false
	}
	if done {
		r.binary, r.completed = false, true
		return Unit{Kind: UnitBinary, Data: payload}, true
	}
	return Unit{}, false
}

func (r *Reader) rejectFrame(err error) {
	glog.Warningf("%v", err)
	r.err = err
	if r.Observer != nil {
		r.Observer.FrameRejected(err)
	}
}

func (r *Reader) completeText(truncated bool) (Unit, bool) {
	r.completed = true
	line := r.buf.Bytes()
	if truncated {
		glog.Warningf("line exceeds %d bytes, truncated", r.buf.Cap())
	}
	if r.Debug.logLine(line) {
		return Unit{}, false
	}
	return Unit{Kind: UnitText, Data: line, Truncated: truncated}, true
}
