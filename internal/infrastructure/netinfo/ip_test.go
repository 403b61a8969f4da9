package netinfo

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalIPParseable(t *testing.T) {
	ip := LocalIP()
	parsed := net.ParseIP(ip)
	require.NotNil(t, parsed, "LocalIP returned %q", ip)
	assert.NotNil(t, parsed.To4())
}

func TestUsable(t *testing.T) {
	assert.True(t, usable(net.ParseIP("192.168.1.20")))
	assert.True(t, usable(net.ParseIP("10.0.0.2")))
	assert.False(t, usable(net.ParseIP("127.0.0.1")))
	assert.False(t, usable(net.ParseIP("169.254.10.1")))
	assert.False(t, usable(net.ParseIP("fe80::1")))
	assert.False(t, usable(net.ParseIP("2001:db8::1")))
}
