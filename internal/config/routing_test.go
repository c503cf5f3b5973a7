package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "message-gateway/internal/common/errors"
	"message-gateway/internal/flowcontrol"
	"message-gateway/internal/routing"
)

const sampleRouting = `
routers:
  - name: sms-priority
    type: priority_keyword
    exposed_names: [app1, app2]
    transport_mappings:
      sms:
        default: transport1
        high: transport2
  - name: za-numbers
    type: address_pattern
    exposed_names: [app3]
    country_code: "27"
    transport_fallback: transport9
    transport_mappings:
      transport3: "8[2-4]"
channels:
  - name: app1
    router: sms-priority
    window_size: 100
    per_seconds: 1.5
  - name: app3
    router: za-numbers
    window_size: 10
    per_seconds: 60
    unpause_check_delay: 250ms
`

func TestParseRoutingFile(t *testing.T) {
	file, err := ParseRoutingFile([]byte(sampleRouting))
	require.NoError(t, err)

	require.Len(t, file.Routers, 2)
	assert.Equal(t, routing.TypePriorityKeyword, file.Routers[0].Type)
	assert.Equal(t, []string{"app1", "app2"}, file.Routers[0].ExposedNames)
	assert.Equal(t, "27", file.Routers[1].CountryCode)

	app1, ok := file.Channel("app1")
	require.True(t, ok)
	assert.Equal(t, 100, app1.Limits().WindowSize)
	assert.Equal(t, 1500*time.Millisecond, app1.Limits().PerSeconds)
	assert.Equal(t, flowcontrol.DefaultUnpauseCheckDelay, app1.CheckDelay())

	app3, ok := file.Channel("app3")
	require.True(t, ok)
	assert.Equal(t, time.Minute, app3.Limits().PerSeconds)
	assert.Equal(t, 250*time.Millisecond, app3.CheckDelay())

	_, ok = file.Channel("app2")
	assert.False(t, ok)

	r, ok := file.Router("za-numbers")
	require.True(t, ok)
	assert.Equal(t, "transport9", r.TransportFallback)
	_, ok = file.Router("missing")
	assert.False(t, ok)
}

func TestParseRoutingFile_BuildsRouters(t *testing.T) {
	file, err := ParseRoutingFile([]byte(sampleRouting))
	require.NoError(t, err)

	for _, cfg := range file.Routers {
		_, err := routing.New(cfg, nopDispatcher{}, nil, nil)
		assert.NoError(t, err, cfg.Name)
	}
}

func TestParseRoutingFile_Errors(t *testing.T) {
	tests := map[string]string{
		"not yaml":   "routers: [",
		"no routers": "channels: []",
		"router without name": `
routers:
  - type: priority_keyword
    exposed_names: [app1]
`,
		"router without exposed names": `
routers:
  - name: r1
    type: priority_keyword
    exposed_names: []
`,
		"duplicate router": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
  - {name: r1, type: metadata_presence, exposed_names: [app2]}
`,
		"exposed name shared": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
  - {name: r2, type: metadata_presence, exposed_names: [app1]}
`,
		"unknown router reference": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app1, router: r2, window_size: 1, per_seconds: 1}
`,
		"channel not exposed": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app2, router: r1, window_size: 1, per_seconds: 1}
`,
		"zero window": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app1, router: r1, window_size: 0, per_seconds: 1}
`,
		"missing ttl": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app1, router: r1, window_size: 1}
`,
		"bad seconds": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app1, router: r1, window_size: 1, per_seconds: soon}
`,
		"duplicate channel": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: [app1]}
channels:
  - {name: app1, router: r1, window_size: 1, per_seconds: 1}
  - {name: app1, router: r1, window_size: 2, per_seconds: 1}
`,
		"channel name with space": `
routers:
  - {name: r1, type: metadata_presence, exposed_names: ["app 1"]}
channels:
  - {name: "app 1", router: r1, window_size: 1, per_seconds: 1}
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRoutingFile([]byte(doc))
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig), "got %v", err)
		})
	}
}

func TestLoadRoutingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRouting), 0o600))

	file, err := LoadRoutingFile(path)
	require.NoError(t, err)
	assert.Len(t, file.Channels, 2)

	_, err = LoadRoutingFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
