package cli

import (
	"bytes"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSatelliteFlags(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		mode   Mode
		remove bool
	}{
		{name: "default pairs", args: nil, mode: ModePair},
		{name: "disconnect", args: []string{"--disconnect"}, mode: ModeDisconnect},
		{name: "restore", args: []string{"-restore-backup"}, mode: ModeRestore},
		{name: "remove backup then pair", args: []string{"--remove-backup"}, mode: ModePair, remove: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseSatelliteFlags(tt.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.mode, opts.Mode)
			assert.Equal(t, tt.remove, opts.RemoveBackup)
		})
	}
}

func TestParseSatelliteFlagsConflict(t *testing.T) {
	_, err := ParseSatelliteFlags([]string{"-disconnect", "-restore-backup"}, io.Discard)
	require.ErrorIs(t, err, errConflictingModes)
}

func TestParseCoreFlags(t *testing.T) {
	opts, err := ParseCoreFlags([]string{"-config", "/etc/satconnect/core.json", "-snips-config", "/tmp/snips.toml", "-debug"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ModeServe, opts.Mode)
	assert.Equal(t, "/etc/satconnect/core.json", opts.ConfigPath)
	assert.Equal(t, "/tmp/snips.toml", opts.SnipsConfig)
	assert.True(t, opts.Debug)

	opts, err = ParseCoreFlags([]string{"--restore-backup"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, ModeRestore, opts.Mode)

	_, err = ParseCoreFlags([]string{"--disconnect"}, io.Discard)
	require.Error(t, err)
}

func TestHelp(t *testing.T) {
	var out bytes.Buffer

	_, err := ParseCoreFlags([]string{"-h"}, &out)
	require.ErrorIs(t, err, ErrHelp)
	assert.Contains(t, out.String(), "Usage: core")
}

func TestCheckUID(t *testing.T) {
	require.NoError(t, checkUID(0))
	require.ErrorIs(t, checkUID(1000), ErrNotRoot)
}

func TestPickIPv4(t *testing.T) {
	_, loop, err := net.ParseCIDR("127.0.0.1/8")
	require.NoError(t, err)

	lan := &net.IPNet{IP: net.ParseIP("192.168.1.10"), Mask: net.CIDRMask(24, 32)}
	v6 := &net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}

	assert.Equal(t, "192.168.1.10", pickIPv4([]net.Addr{loop, v6, lan}))
	assert.Equal(t, defaultIPAddress, pickIPv4([]net.Addr{loop, v6}))
}

func TestLocalIP(t *testing.T) {
	ip, err := LocalIP()
	require.NoError(t, err)
	assert.NotNil(t, net.ParseIP(ip))
}

func TestBanner(t *testing.T) {
	var out bytes.Buffer

	styles := NewLogStyles()
	styles.Banner(&out, styles.Info, "INFO", "Core ip: 192.168.1.10")

	assert.Contains(t, out.String(), "[INFO] Core ip: 192.168.1.10")
}
