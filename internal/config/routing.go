package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"message-gateway/internal/common/errors"
	"message-gateway/internal/common/validation"
	"message-gateway/internal/flowcontrol"
	"message-gateway/internal/ratelimit"
	"message-gateway/internal/routing"
)

// RoutingFile is the YAML document describing routers and the rate-limited
// channels in front of them.
//
//	routers:
//	  - name: sms-priority
//	    type: priority_keyword
//	    exposed_names: [app1]
//	    transport_mappings:
//	      sms:
//	        default: transport1
//	        high: transport2
//	channels:
//	  - name: app1
//	    router: sms-priority
//	    window_size: 100
//	    per_seconds: 1.5
type RoutingFile struct {
	Routers  []routing.Config `yaml:"routers" validate:"required,min=1,dive"`
	Channels []ChannelConfig  `yaml:"channels" validate:"dive"`
}

// ChannelConfig gates the outbound queue of one exposed name
type ChannelConfig struct {
	Name              string  `yaml:"name" validate:"endpoint_name"`
	Router            string  `yaml:"router" validate:"required"`
	WindowSize        int     `yaml:"window_size" validate:"min=1"`
	PerSeconds        Seconds `yaml:"per_seconds" validate:"gt=0"`
	UnpauseCheckDelay Seconds `yaml:"unpause_check_delay" validate:"min=0"`
}

// Limits returns the limiter settings of the channel
func (c ChannelConfig) Limits() ratelimit.Config {
	return ratelimit.Config{
		WindowSize: c.WindowSize,
		PerSeconds: c.PerSeconds.Duration(),
	}
}

// CheckDelay returns the unpause poll interval, defaulting when unset
func (c ChannelConfig) CheckDelay() time.Duration {
	if c.UnpauseCheckDelay == 0 {
		return flowcontrol.DefaultUnpauseCheckDelay
	}
	return c.UnpauseCheckDelay.Duration()
}

// Seconds is a duration written in YAML as a number of seconds, which may
// be fractional, or as a Go duration string such as "500ms".
type Seconds time.Duration

func (s Seconds) Duration() time.Duration {
	return time.Duration(s)
}

func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number of seconds", node.Line)
	}
	if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*s = Seconds(f * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is neither seconds nor a duration", node.Line, node.Value)
	}
	*s = Seconds(d)
	return nil
}

// LoadRoutingFile reads and validates the routing file at path
func LoadRoutingFile(path string) (*RoutingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfigError("failed to read routing config", err).WithContext("path", path)
	}

	file, err := ParseRoutingFile(data)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	return file, nil
}

// ParseRoutingFile decodes and validates a routing document. Router rules
// themselves are checked when the routers are built.
func ParseRoutingFile(data []byte) (*RoutingFile, error) {
	var file RoutingFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapConfigError("failed to parse routing config", err)
	}

	if err := validation.ValidateStruct(&file); err != nil {
		return nil, errors.WrapConfigError("invalid routing config", err)
	}

	if err := file.checkReferences(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *RoutingFile) checkReferences() error {
	routers := make(map[string]routing.Config, len(f.Routers))
	owners := make(map[string]string)
	for _, r := range f.Routers {
		if _, dup := routers[r.Name]; dup {
			return errors.ConfigErrorf("router %q is defined more than once", r.Name)
		}
		routers[r.Name] = r

		// Each exposed name's outbound queue is consumed by exactly one router
		for _, name := range r.ExposedNames {
			if owner, taken := owners[name]; taken && owner != r.Name {
				return errors.ConfigErrorf("exposed name %q is used by routers %q and %q", name, owner, r.Name)
			}
			owners[name] = r.Name
		}
	}

	channels := make(map[string]bool, len(f.Channels))
	for _, c := range f.Channels {
		if channels[c.Name] {
			return errors.ConfigErrorf("channel %q is defined more than once", c.Name)
		}
		channels[c.Name] = true

		r, ok := routers[c.Router]
		if !ok {
			return errors.ConfigErrorf("channel %q references unknown router %q", c.Name, c.Router)
		}
		if !routing.SliceContains(r.ExposedNames, c.Name) {
			return errors.ConfigErrorf("channel %q is not an exposed name of router %q", c.Name, c.Router)
		}
	}
	return nil
}

// Channel returns the channel settings for an exposed name
func (f *RoutingFile) Channel(name string) (ChannelConfig, bool) {
	for _, c := range f.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelConfig{}, false
}

// Router returns the router definition called name
func (f *RoutingFile) Router(name string) (routing.Config, bool) {
	for _, r := range f.Routers {
		if r.Name == name {
			return r, true
		}
	}
	return routing.Config{}, false
}
