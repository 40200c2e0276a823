package comm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestReader(capacity int) (*Reader, *fakeTransport) {
	tr := &fakeTransport{}
	return NewReader(tr, NewLineBuffer(capacity)), tr
}

func requireText(t *testing.T, u Unit, text string) {
	require.Equal(t, UnitText, u.Kind)
	require.Equal(t, text, string(u.Data))
}

func TestReaderText(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect []string
	}{
		{"protocol line", "WS+1;0;50\n", []string{"WS+1;0;50"}},
		{"crlf", "OK 1.3.1\r\n", []string{"OK 1.3.1"}},
		{"two lines", "[Init]\n[CONNECTED]\n", []string{"[Init]", "[CONNECTED]"}},
		{"control bytes dropped", "A\x01B\x7fC\xffD\n", []string{"ABCD"}},
		{"empty lines skipped", "\n\r\n\nX\n", []string{"X"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, tr := newTestReader(0)
			tr.injectString(tc.input)
			for _, line := range tc.expect {
				requireText(t, r.Read(), line)
			}
			require.Equal(t, UnitNone, r.Read().Kind)
			require.Zero(t, tr.Available())
		})
	}
}

// readUnit reads until a unit completes or the transport runs dry.
func readUnit(r *Reader, tr *fakeTransport) Unit {
	for {
		u := r.Read()
		if u.Kind != UnitNone || tr.Available() == 0 {
			return u
		}
	}
}

func TestReaderBudget(t *testing.T) {
	r, tr := newTestReader(8)
	tr.injectString(strings.Repeat("\r", 20))
	require.Equal(t, UnitNone, r.Read().Kind)
	require.Equal(t, 11, tr.Available())
	require.Equal(t, UnitNone, r.Read().Kind)
	require.Equal(t, 2, tr.Available())

	tr.injectString("WS+1")
	require.Equal(t, UnitNone, r.Read().Kind)
	require.Zero(t, tr.Available())
	tr.injectString("\n")
	requireText(t, r.Read(), "WS+1")
}

func TestReaderNothingAvailable(t *testing.T) {
	r, _ := newTestReader(0)
	u := r.Read()
	require.Equal(t, UnitNone, u.Kind)
	require.Empty(t, u.Data)
}

func TestReaderPartialLine(t *testing.T) {
	r, tr := newTestReader(0)
	tr.injectString("WS+1;")
	require.Equal(t, UnitNone, r.Read().Kind)
	tr.injectString("0;50\nWS+")
	requireText(t, r.Read(), "WS+1;0;50")
	require.Equal(t, UnitNone, r.Read().Kind)
	tr.injectString("2\n")
	requireText(t, r.Read(), "WS+2")
}

func TestReaderBinary(t *testing.T) {
	r, tr := newTestReader(0)
	tr.injectString(BinaryHeader)
	tr.inject(mustFrame(1, 2, 3), []byte("\nOK\n"))
	u := r.Read()
	require.Equal(t, UnitBinary, u.Kind)
	require.Equal(t, []byte{1, 2, 3}, u.Data)
	requireText(t, r.Read(), "OK")
}

func TestReaderBinaryAcrossReads(t *testing.T) {
	r, tr := newTestReader(0)
	frame := mustFrame(10, 20, 30, 40)
	tr.injectString("WSB")
	require.Equal(t, UnitNone, r.Read().Kind)
	tr.injectString("+")
	tr.inject(frame[:3])
	require.Equal(t, UnitNone, r.Read().Kind)
	tr.inject(frame[3:])
	u := r.Read()
	require.Equal(t, UnitBinary, u.Kind)
	require.Equal(t, []byte{10, 20, 30, 40}, u.Data)
}

func TestReaderBinaryEmptyPayload(t *testing.T) {
	r, tr := newTestReader(0)
	tr.injectString(BinaryHeader)
	tr.inject(mustFrame())
	u := r.Read()
	require.Equal(t, UnitBinary, u.Kind)
	require.Empty(t, u.Data)
}

func TestReaderBinaryChecksumMismatch(t *testing.T) {
	r, tr := newTestReader(0)
	frame := mustFrame(1, 2, 3)
	frame[3] ^= 0x01
	tr.injectString(BinaryHeader)
	tr.inject(frame)
	require.Equal(t, UnitNone, r.Read().Kind)
	require.ErrorIs(t, r.Err(), ErrChecksumMismatch)
	require.NoError(t, r.Err())

	// back to text mode
	tr.injectString("WS+1\n")
	requireText(t, r.Read(), "WS+1")
}

func TestReaderBinaryEndByteMismatch(t *testing.T) {
	r, tr := newTestReader(0)
	frame := mustFrame(1, 2)
	frame[len(frame)-1] = 'x'
	tr.injectString(BinaryHeader)
	tr.inject(frame, []byte("\nWS+2\n"))
	requireText(t, r.Read(), "WS+2")
	require.ErrorIs(t, r.Err(), ErrEndByteMismatch)
}

func TestReaderBinaryStartByteSkipped(t *testing.T) {
	r, tr := newTestReader(0)
	tr.injectString(BinaryHeader)
	tr.inject([]byte{0x00, 0x13}, mustFrame(5))
	u := r.Read()
	require.Equal(t, UnitBinary, u.Kind)
	require.Equal(t, []byte{5}, u.Data)
	require.ErrorIs(t, r.Err(), ErrStartByteMismatch)
}

func TestReaderBinaryNoStartGivesUp(t *testing.T) {
	r, tr := newTestReader(8)
	// 8 bytes are skipped, the 9th leaves binary mode
	tr.injectString(BinaryHeader, "012345678\nWS+\n")
	requireText(t, readUnit(r, tr), "WS+")
	require.ErrorIs(t, r.Err(), ErrStartByteMismatch)
}

func TestReaderBinaryLengthOverflow(t *testing.T) {
	r, tr := newTestReader(16)
	tr.injectString(BinaryHeader)
	tr.inject([]byte{StartByte, 200, 0})
	tr.injectString("WS+3\n")
	requireText(t, r.Read(), "WS+3")
	require.ErrorIs(t, r.Err(), ErrLengthOverflow)
}

func TestReaderTruncated(t *testing.T) {
	r, tr := newTestReader(8)
	tr.injectString("0123456789\nOK\n")
	u := r.Read()
	requireText(t, u, "01234567")
	require.True(t, u.Truncated)
	u = r.Read()
	requireText(t, u, "OK")
	require.False(t, u.Truncated)
}

func TestReaderDebugLines(t *testing.T) {
	r, tr := newTestReader(0)
	r.Debug = DebugAll
	tr.injectString(DebugHeadDebug+" heap 1234\n", DebugHeadError+" oops\n")
	requireText(t, r.Read(), DebugHeadError+" oops")
}

type countingObserver struct {
	units    []UnitKind
	rejected []error
	commands []string
	errs     []error
}

func (o *countingObserver) UnitReceived(u Unit)   { o.units = append(o.units, u.Kind) }
func (o *countingObserver) FrameRejected(e error) { o.rejected = append(o.rejected, e) }
func (o *countingObserver) CommandCompleted(name string, attempts int, err error) {
	o.commands = append(o.commands, name)
	o.errs = append(o.errs, err)
}

func TestReaderObserver(t *testing.T) {
	r, tr := newTestReader(0)
	o := &countingObserver{}
	r.Observer = o
	bad := mustFrame(1)
	bad[2] = 0
	tr.injectString("A\n", BinaryHeader)
	tr.inject(mustFrame(1), []byte(BinaryHeader), bad)
	require.Equal(t, UnitText, r.Read().Kind)
	require.Equal(t, UnitBinary, r.Read().Kind)
	require.Equal(t, UnitNone, r.Read().Kind)
	require.Equal(t, []UnitKind{UnitText, UnitBinary}, o.units)
	require.Len(t, o.rejected, 1)
}

func TestDebugLevelFlag(t *testing.T) {
	var l DebugLevel
	require.NoError(t, l.Set("INFO"))
	require.Equal(t, DebugInfo, l)
	require.Equal(t, "info", l.String())
	require.Error(t, l.Set("verbose"))
	require.Equal(t, "DebugLevel(9)", DebugLevel(9).String())
}

func TestUnitKindString(t *testing.T) {
	require.Equal(t, "none", UnitNone.String())
	require.Equal(t, "text", UnitText.String())
	require.Equal(t, "binary", UnitBinary.String())
}
