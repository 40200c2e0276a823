package widget

import (
	"strconv"
	"sync"

	"github.com/robotalks/camlink/pkg/cam/field"
)

// Telemetry builds the data line sent to the remote UI. It's safe for
// concurrent use so sensors can update it while the session sends it.
type Telemetry struct {
	lock sync.Mutex
	line string
}

// Set sets the raw field of a region.
func (t *Telemetry) Set(r Region, value string) {
	t.lock.Lock()
	t.line = field.Set(t.line, int(r), value, field.Divider)
	t.lock.Unlock()
}

// SetMeter sets the value of a meter.
func (t *Telemetry) SetMeter(r Region, v float64) {
	t.Set(r, field.FormatFloat(v))
}

// SetValue sets the value of a number display.
func (t *Telemetry) SetValue(r Region, v float64) {
	t.Set(r, field.FormatFloat(v))
}

// SetRadar sets the angle and distance of an obstacle.
func (t *Telemetry) SetRadar(r Region, angle int, distance float64) {
	t.Set(r, strconv.Itoa(angle)+string(field.SubDivider)+field.FormatFloat(distance))
}

// SetGreyscale sets the readings of a 3-way greyscale sensor.
func (t *Telemetry) SetGreyscale(r Region, v1, v2, v3 int) {
	sep := string(field.SubDivider)
	t.Set(r, strconv.Itoa(v1)+sep+strconv.Itoa(v2)+sep+strconv.Itoa(v3))
}

// String returns the data line without header.
func (t *Telemetry) String() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.line
}

// Bytes returns a copy of the data line. It can be used as the source of
// Session.AutoSend.
func (t *Telemetry) Bytes() []byte {
	return []byte(t.String())
}

// Reset clears all regions.
func (t *Telemetry) Reset() {
	t.lock.Lock()
	t.line = ""
	t.lock.Unlock()
}
