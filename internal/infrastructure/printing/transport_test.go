package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingCUPS() CUPSConfig {
	return CUPSConfig{
		LPPath:     "/nonexistent/bin/lp",
		LPStatPath: "/nonexistent/bin/lpstat",
		CancelPath: "/nonexistent/bin/cancel",
	}
}

func TestSelectTransport(t *testing.T) {
	t.Run("simulated", func(t *testing.T) {
		tr, err := SelectTransport(TransportConfig{Backend: BackendSimulated})
		require.NoError(t, err)
		assert.Equal(t, BackendSimulated, tr.Name())
	})

	t.Run("auto falls back to simulated", func(t *testing.T) {
		tr, err := SelectTransport(TransportConfig{Backend: BackendAuto, CUPS: missingCUPS()})
		require.NoError(t, err)
		assert.Equal(t, BackendSimulated, tr.Name())
		_, inspects := tr.(JobInspector)
		assert.False(t, inspects)
	})

	t.Run("explicit cups requires binaries", func(t *testing.T) {
		_, err := SelectTransport(TransportConfig{Backend: BackendCUPS, CUPS: missingCUPS()})
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := SelectTransport(TransportConfig{Backend: "winspool"})
		assert.Error(t, err)
	})
}

func TestDeviceStatus_Ready(t *testing.T) {
	assert.True(t, DeviceStatus{Found: true, Online: true}.Ready())
	assert.False(t, DeviceStatus{Found: true, Online: false}.Ready())
	assert.False(t, DeviceStatus{Found: false, Online: true}.Ready())
}
