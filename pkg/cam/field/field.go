// Package field encodes and decodes the positional field records carried in
// remote UI data lines, e.g. "1;0;50,-20;forward".
package field

import (
	"math"
	"strconv"
	"strings"
)

// Dividers used by the remote UI.
const (
	Divider    = ';'
	SubDivider = ','
)

// bounds finds the byte range of field index. ok is false when line has
// fewer fields.
func bounds(line string, index int, divider byte) (start, end int, ok bool) {
	if index < 0 {
		return 0, 0, false
	}
	for n := 0; n < index; n++ {
		i := strings.IndexByte(line[start:], divider)
		if i < 0 {
			return len(line), len(line), false
		}
		start += i + 1
	}
	end = len(line)
	if i := strings.IndexByte(line[start:], divider); i >= 0 {
		end = start + i
	}
	return start, end, true
}

// Lookup returns field index of line.
func Lookup(line string, index int, divider byte) (string, bool) {
	start, end, ok := bounds(line, index, divider)
	if !ok {
		return "", false
	}
	return line[start:end], true
}

// Get returns field index of line, or "" if it doesn't exist.
func Get(line string, index int, divider byte) string {
	s, _ := Lookup(line, index, divider)
	return s
}

// Set replaces field index of line with value. Empty fields are appended
// when line has fewer fields.
func Set(line string, index int, value string, divider byte) string {
	if index < 0 {
		return line
	}
	start, end, ok := bounds(line, index, divider)
	if !ok {
		n := strings.Count(line, string(divider)) + 1
		return line + strings.Repeat(string(divider), index-n+1) + value
	}
	return line[:start] + value + line[end:]
}

// Int parses the leading integer of s: optional whitespace, an optional
// sign and decimal digits. Anything after the digits is ignored. ok is false
// if there are no digits.
func Int(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")
	n := 0
	if n < len(s) && (s[n] == '+' || s[n] == '-') {
		n++
	}
	digits := n
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == digits {
		return 0, false
	}
	// ParseInt saturates on overflow.
	v, _ := strconv.ParseInt(s[:n], 10, 64)
	return int(v), true
}

// Bool parses s as an integer, true when non-zero.
func Bool(s string) (bool, bool) {
	v, ok := Int(s)
	return v != 0, ok
}

// Float parses s as a decimal number. Forms other than decimal, like "nan",
// "inf" or hex floats, are rejected.
func Float(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !isDecimal(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isDecimal(s string) bool {
	digits := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '+' || c == '-' || c == '.' || c == 'e' || c == 'E':
		default:
			return false
		}
	}
	return digits
}

// IntOf decodes field index of line as Int, 0 if invalid.
func IntOf(line string, index int, divider byte) int {
	v, _ := Int(Get(line, index, divider))
	return v
}

// BoolOf decodes field index of line as Bool, false if invalid.
func BoolOf(line string, index int, divider byte) bool {
	v, _ := Bool(Get(line, index, divider))
	return v
}

// FloatOf decodes field index of line as Float, 0 if invalid.
func FloatOf(line string, index int, divider byte) float64 {
	v, _ := Float(Get(line, index, divider))
	return v
}

// FormatFloat formats v with two decimals.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
