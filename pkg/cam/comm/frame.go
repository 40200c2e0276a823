package comm

// Binary frame layout: StartByte LEN CHECKSUM PAYLOAD[LEN] EndByte.
const (
	StartByte byte = 0xa0
	EndByte   byte = 0xa1

	// FrameOverhead is the number of framing bytes around the payload.
	FrameOverhead = 4
	// MaxPayloadSize is the largest payload LEN can describe.
	MaxPayloadSize = 0xff
)

type frameState int

const (
	frameStart    frameState = iota // waiting for StartByte
	frameLen                        // waiting for payload length
	frameChecksum                   // waiting for checksum
	framePayload                    // receiving payload
	frameEnd                        // waiting for EndByte
)

// Checksum calculates the XOR of all bytes. The checksum of an empty
// payload is 0.
func Checksum(payload []byte) (sum byte) {
	for _, b := range payload {
		sum ^= b
	}
	return
}

// FrameDecoder decodes a binary frame byte by byte. The payload is written
// into the LineBuffer, so a frame never exceeds the buffer capacity.
type FrameDecoder struct {
	buf      *LineBuffer
	state    frameState
	length   int
	checksum byte
}

// NewFrameDecoder creates a FrameDecoder writing payload into buf.
func NewFrameDecoder(buf *LineBuffer) *FrameDecoder {
	return &FrameDecoder{buf: buf}
}

// Reset discards any frame in progress.
func (d *FrameDecoder) Reset() {
	d.state, d.length, d.checksum = frameStart, 0, 0
	d.buf.Reset()
}

// InFrame indicates a StartByte has been accepted and the frame is not
// finished yet.
func (d *FrameDecoder) InFrame() bool {
	return d.state != frameStart
}

// Decode consumes one byte. When a frame completes, payload is the content
// of the line buffer and done is true. On any error the frame in progress is
// discarded and the decoder waits for the next StartByte.
func (d *FrameDecoder) Decode(b byte) (payload []byte, done bool, err error) {
	switch d.state {
	case frameStart:
		if b != StartByte {
			return nil, false, &FrameError{Err: ErrStartByteMismatch, Expected: int(StartByte), Actual: int(b)}
		}
		d.buf.Reset()
		d.state = frameLen
	case frameLen:
		if int(b)+FrameOverhead > d.buf.Cap() {
			d.Reset()
			return nil, false, &FrameError{Err: ErrLengthOverflow, Expected: d.maxPayload(), Actual: int(b)}
		}
		d.length = int(b)
		d.state = frameChecksum
	case frameChecksum:
		d.checksum = b
		if d.length == 0 {
			d.state = frameEnd
		} else {
			d.state = framePayload
		}
	case framePayload:
		if err = d.buf.WriteByte(b); err != nil {
			d.Reset()
			return nil, false, &FrameError{Err: ErrLengthOverflow, Expected: d.maxPayload(), Actual: d.length}
		}
		if d.buf.Len() >= d.length {
			d.state = frameEnd
		}
	case frameEnd:
		declared := d.checksum
		d.state, d.length, d.checksum = frameStart, 0, 0
		if b != EndByte {
			d.buf.Reset()
			return nil, false, &FrameError{Err: ErrEndByteMismatch, Expected: int(EndByte), Actual: int(b)}
		}
		if sum := Checksum(d.buf.Bytes()); sum != declared {
			d.buf.Reset()
			return nil, false, &FrameError{Err: ErrChecksumMismatch, Expected: int(sum), Actual: int(declared)}
		}
		return d.buf.Bytes(), true, nil
	}
	return nil, false, nil
}

func (d *FrameDecoder) maxPayload() int {
	n := d.buf.Cap() - FrameOverhead
	if n > MaxPayloadSize {
		n = MaxPayloadSize
	}
	return n
}

// DecodeFrame decodes a complete frame from the beginning of stream.
// capacity bounds the frame size like the line buffer does; 0 means
// DefaultBufferSize. The returned payload is a copy.
func DecodeFrame(stream []byte, capacity int) ([]byte, error) {
	d := NewFrameDecoder(NewLineBuffer(capacity))
	for _, b := range stream {
		payload, done, err := d.Decode(b)
		if err != nil {
			return nil, err
		}
		if done {
			return append([]byte{}, payload...), nil
		}
	}
	return nil, &FrameError{Err: ErrIncompleteFrame}
}

// EncodeFrame encodes payload into a binary frame.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{Err: ErrLengthOverflow, Expected: MaxPayloadSize, Actual: len(payload)}
	}
	b := make([]byte, 0, len(payload)+FrameOverhead)
	b = append(b, StartByte, byte(len(payload)), Checksum(payload))
	b = append(b, payload...)
	return append(b, EndByte), nil
}
