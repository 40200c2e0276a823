// Package comm implements the serial protocol spoken with the camera module.
package comm

// The camera module (a wifi co-processor) and the host exchange two kinds of
// units over a byte-serial link:
//
// - Text lines: printable ASCII terminated by '\n'. Status notices ("[Init]",
//   "[CONNECTED]", ...), command acknowledgements ("OK ...") and remote UI
//   data ("WS+...") are all text lines.
// - Binary frames: announced by the text marker "WSB+" and followed by
//   START LEN CHECKSUM PAYLOAD... END, where CHECKSUM is the XOR of PAYLOAD.
//
// The host drives the link with a single Session. Session.Poll reads at most
// one unit per call without blocking, classifies it and invokes the
// registered handlers. Session.Command sends "SET+<name><value>" and waits
// for an "OK" acknowledgement with a bounded number of retries.
//
// A Session is not safe for concurrent use: Poll and Command must be called
// from the same goroutine.
