package caseta

import (
	"fmt"
	"strings"
)

// Keys of a bridge configuration in config entry data and flow input.
const (
	KeyHost     = "host"
	KeyKeyfile  = "keyfile"
	KeyCertfile = "certfile"
	KeyCACerts  = "ca_certs"
)

// formFields is the field order of the user step.
var formFields = []string{KeyHost, KeyKeyfile, KeyCertfile, KeyCACerts}

// BridgeConfig is everything needed to open a TLS session to one bridge.
type BridgeConfig struct {
	Host     string
	Keyfile  string
	Certfile string
	CACerts  string
}

// BridgeConfigFromData reads a configuration from config entry data or flow
// input. Unknown keys are ignored.
func BridgeConfigFromData(data map[string]string) BridgeConfig {
	return BridgeConfig{
		Host:     strings.TrimSpace(data[KeyHost]),
		Keyfile:  data[KeyKeyfile],
		Certfile: data[KeyCertfile],
		CACerts:  data[KeyCACerts],
	}
}

// Data returns the configuration as config entry data.
func (c BridgeConfig) Data() map[string]string {
	return map[string]string{
		KeyHost:     c.Host,
		KeyKeyfile:  c.Keyfile,
		KeyCertfile: c.Certfile,
		KeyCACerts:  c.CACerts,
	}
}

// hostOnly reports whether only the host is set, as in entries imported
// from static configuration by older releases.
func (c BridgeConfig) hostOnly() bool {
	return c.Keyfile == "" && c.Certfile == "" && c.CACerts == ""
}

// Validate checks that every field is set.
func (c BridgeConfig) Validate() error {
	var missing []string
	for _, f := range []struct {
		key, value string
	}{
		{KeyHost, c.Host},
		{KeyKeyfile, c.Keyfile},
		{KeyCertfile, c.Certfile},
		{KeyCACerts, c.CACerts},
	} {
		if f.value == "" {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}
