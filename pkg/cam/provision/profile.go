package provision

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the default websocket port.
const DefaultPort = 8765

// Profile is the configuration written to the camera module by Begin.
type Profile struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	SSID     string `yaml:"ssid"`
	Password string `yaml:"password"`
	Port     int    `yaml:"port"`
	// Lamp is the lamp brightness after start, 0 leaves it off.
	Lamp int `yaml:"lamp,omitempty"`
}

// ErrSSIDMissing is returned when a profile has no SSID.
var ErrSSIDMissing = errors.New("ssid missing")

// ParseProfile parses a YAML profile. Port defaults to DefaultPort.
func ParseProfile(data []byte) (*Profile, error) {
	p := &Profile{Port: DefaultPort}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, p.Validate()
}

// LoadProfile reads a YAML profile from file.
func LoadProfile(fn string) (*Profile, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %v", fn, err)
	}
	return p, nil
}

// Validate checks the profile.
func (p *Profile) Validate() error {
	if p.SSID == "" {
		return ErrSSIDMissing
	}
	if p.Port <= 0 || p.Port > 0xffff {
		return fmt.Errorf("invalid port %d", p.Port)
	}
	if p.Lamp < 0 {
		return fmt.Errorf("invalid lamp level %d", p.Lamp)
	}
	return nil
}

// Marshal encodes the profile as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
