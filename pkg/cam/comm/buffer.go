package comm

import "bytes"

// DefaultBufferSize is the default capacity of LineBuffer.
const DefaultBufferSize = 256

// LineBuffer is a fixed capacity buffer holding the most recently received
// unit. It never grows: writes beyond capacity fail with ErrBufferFull.
type LineBuffer struct {
	data []byte
}

// NewLineBuffer creates a LineBuffer with the specified capacity.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &LineBuffer{data: make([]byte, 0, capacity)}
}

// Cap returns the capacity.
func (b *LineBuffer) Cap() int {
	return cap(b.data)
}

// Len returns the number of bytes in the buffer.
func (b *LineBuffer) Len() int {
	return len(b.data)
}

// Bytes returns the content. It's only valid until the next modification.
func (b *LineBuffer) Bytes() []byte {
	return b.data
}

// String returns a copy of the content as string.
func (b *LineBuffer) String() string {
	return string(b.data)
}

// Reset clears the content.
func (b *LineBuffer) Reset() {
	b.data = b.data[:0]
}

// WriteByte appends a byte.
func (b *LineBuffer) WriteByte(c byte) error {
	if len(b.data) >= cap(b.data) {
		return ErrBufferFull
	}
	b.data = append(b.data, c)
	return nil
}

// Set replaces the content. Nothing is changed if p doesn't fit.
func (b *LineBuffer) Set(p []byte) error {
	if len(p) > cap(b.data) {
		return ErrBufferFull
	}
	b.data = append(b.data[:0], p...)
	return nil
}

// SetString is the string form of Set.
func (b *LineBuffer) SetString(s string) error {
	if len(s) > cap(b.data) {
		return ErrBufferFull
	}
	b.data = append(b.data[:0], s...)
	return nil
}

// HasPrefix tests whether the content begins with prefix.
func (b *LineBuffer) HasPrefix(prefix string) bool {
	return bytes.HasPrefix(b.data, []byte(prefix))
}

// TrimFront removes n bytes from the front in place.
func (b *LineBuffer) TrimFront(n int) {
	if n >= len(b.data) {
		b.data = b.data[:0]
		return
	}
	if n > 0 {
		b.data = b.data[:copy(b.data, b.data[n:])]
	}
}
