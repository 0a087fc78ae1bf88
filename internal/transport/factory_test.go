package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fmrhost/internal/config"
)

func TestFromConfigTCP(t *testing.T) {
	ep, err := FromConfig(config.Config{Transport: "tcp", TCPHost: "127.0.0.1", TCPPort: 4243})
	require.NoError(t, err)
	_, ok := ep.(*TCP)
	assert.True(t, ok, "expected *TCP, got %T", ep)
}

func TestFromConfigDefaultsToTCP(t *testing.T) {
	ep, err := FromConfig(config.Config{Transport: ""})
	require.NoError(t, err)
	_, ok := ep.(*TCP)
	assert.True(t, ok, "expected *TCP for empty transport, got %T", ep)
}

func TestFromConfigUSB(t *testing.T) {
	ep, err := FromConfig(config.Config{Transport: "usb", USBVendorID: 0x0483, USBProductID: 0x5740})
	require.NoError(t, err)
	_, ok := ep.(*USB)
	assert.True(t, ok, "expected *USB, got %T", ep)
}

func TestFromConfigUnknownTransport(t *testing.T) {
	_, err := FromConfig(config.Config{Transport: "carrier-pigeon"})
	require.Error(t, err)
}
