package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microframe-os/microframe/internal/kernel/cap"
)

const sample = `
modules:
  - name: console
    path: modules/console.elf
    caps: [console_write, endpoint_create]
    autostart: true
  - name: shell
    caps: [process_spawn]
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, m.Modules, 2)

	assert.Equal(t, "console", m.Modules[0].Name)
	assert.Equal(t, "modules/console.elf", m.Modules[0].Path)
	assert.True(t, m.Modules[0].Autostart)
	assert.False(t, m.Modules[1].Autostart)

	set, err := m.Modules[0].CapSet()
	require.NoError(t, err)
	assert.Equal(t, cap.NewSet(cap.ConsoleWrite, cap.EndpointCreate), set)

	set, err = m.Modules[1].CapSet()
	require.NoError(t, err)
	assert.Equal(t, cap.NewSet(cap.ProcessSpawn), set)
}

func TestParseRejectsUnknownCapability(t *testing.T) {
	_, err := Parse([]byte(`
modules:
  - name: console
    caps: [fly_spaceship]
`))
	assert.ErrorContains(t, err, "unknown capability")
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
modules:
  - name: console
  - name: console
`))
	assert.ErrorContains(t, err, "duplicate module")
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse([]byte(`modules: []`))
	assert.Error(t, err)

	_, err = Parse([]byte(`modules: [{name: ""}]`))
	assert.Error(t, err)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("modules: ["))
	assert.Error(t, err)
}
