// Package widget decodes values of remote UI controls from data lines and
// encodes telemetry shown by the remote UI.
//
// Each control occupies a region of the remote UI. A data line carries one
// field per region in region order, separated by ';'.
package widget

import (
	"fmt"
	"math"

	"github.com/robotalks/camlink/pkg/cam/field"
)

// Region is the position of a control in a data line.
type Region int

// Regions of the remote UI.
const (
	RegionA Region = iota
	RegionB
	RegionC
	RegionD
	RegionE
	RegionF
	RegionG
	RegionH
	RegionI
	RegionJ
	RegionK
	RegionL
	RegionM
	RegionN
	RegionO
	RegionP
	RegionQ

	NumRegions = int(RegionQ) + 1
)

// String implements Stringer.
func (r Region) String() string {
	if r >= RegionA && r <= RegionQ {
		return string(rune('A' + r))
	}
	return fmt.Sprintf("Region(%d)", int(r))
}

// ParseRegion parses a region letter.
func ParseRegion(s string) (Region, error) {
	if len(s) == 1 {
		c := s[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if r := Region(c - 'A'); c >= 'A' && r <= RegionQ {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid region %q", s)
}

// Slider gets the value of a slider.
func Slider(line string, r Region) int {
	return field.IntOf(line, int(r), field.Divider)
}

// Button gets whether a button is pressed.
func Button(line string, r Region) bool {
	return field.BoolOf(line, int(r), field.Divider)
}

// Switch gets whether a switch is on.
func Switch(line string, r Region) bool {
	return field.BoolOf(line, int(r), field.Divider)
}

// Throttle gets the value of a throttle.
func Throttle(line string, r Region) int {
	return field.IntOf(line, int(r), field.Divider)
}

// Speech gets the recognized text of a speech control.
func Speech(line string, r Region) string {
	return field.Get(line, int(r), field.Divider)
}

// JoystickValue is the position of a joystick, encoded as "x,y".
type JoystickValue struct {
	X int
	Y int
}

// Joystick gets the position of a joystick.
func Joystick(line string, r Region) JoystickValue {
	s := field.Get(line, int(r), field.Divider)
	return JoystickValue{
		X: field.IntOf(s, 0, field.SubDivider),
		Y: field.IntOf(s, 1, field.SubDivider),
	}
}

// Angle is the direction in degrees, clockwise from the positive Y axis.
func (v JoystickValue) Angle() float64 {
	return math.Atan2(float64(v.X), float64(v.Y)) * 180 / math.Pi
}

// Radius is the distance from center.
func (v JoystickValue) Radius() float64 {
	return math.Hypot(float64(v.X), float64(v.Y))
}

// Direction is the pressed key of a D-pad.
type Direction int

// D-pad directions.
const (
	DirNone Direction = iota
	DirForward
	DirBackward
	DirLeft
	DirRight
	DirStop
)

var directionNames = [...]string{
	DirNone:     "",
	DirForward:  "forward",
	DirBackward: "backward",
	DirLeft:     "left",
	DirRight:    "right",
	DirStop:     "stop",
}

// String implements Stringer.
func (d Direction) String() string {
	if d > DirNone && int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "none"
}

// DPad gets the pressed key of a D-pad. Unknown text is DirNone.
func DPad(line string, r Region) Direction {
	s := field.Get(line, int(r), field.Divider)
	for d, name := range directionNames {
		if d != int(DirNone) && s == name {
			return Direction(d)
		}
	}
	return DirNone
}
