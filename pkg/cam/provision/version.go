package provision

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a firmware version major.minor.patch.
type Version struct {
	Major int
	Minor int
	Patch int
}

// DefaultMinVersion is the oldest firmware Begin accepts.
var DefaultMinVersion = Version{Major: 1, Minor: 4, Patch: 0}

// ParseVersion parses "major.minor.patch". Missing parts are 0 and
// anything after the leading digits of a part is ignored, e.g. "1.4.2-rc".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	parts := strings.SplitN(s, ".", 3)
	var nums [3]int
	for n, part := range parts {
		end := 0
		for end < len(part) && part[end] >= '0' && part[end] <= '9' {
			end++
		}
		if end == 0 {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
		nums[n], _ = strconv.Atoi(part[:end])
		if end < len(part) {
			break
		}
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String implements Stringer.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 when v is older than, same as or newer than o.
func (v Version) Compare(o Version) int {
	for _, d := range [...]int{v.Major - o.Major, v.Minor - o.Minor, v.Patch - o.Patch} {
		if d < 0 {
			return -1
		}
		if d > 0 {
			return 1
		}
	}
	return 0
}

// AtLeast indicates v is min or newer.
func (v Version) AtLeast(min Version) bool {
	return v.Compare(min) >= 0
}

// UnmarshalText implements encoding.TextUnmarshaler, so a Version can be
// read from YAML and flags.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Set implements flag.Value.
func (v *Version) Set(s string) error {
	return v.UnmarshalText([]byte(s))
}
