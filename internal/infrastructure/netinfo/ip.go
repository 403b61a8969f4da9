// Package netinfo discovers the address the kiosk is reachable at on the
// local network, used to build the pairing URL a phone scans.
package netinfo

import (
	"net"
	"strings"
)

// LocalIP returns the non-loopback IPv4 address of this machine. It first
// asks the routing table by dialing out (no packet is sent for UDP), then
// falls back to scanning interfaces. Returns 127.0.0.1 when nothing better
// exists.
func LocalIP() string {
	if conn, err := net.Dial("udp4", "8.8.8.8:80"); err == nil {
		addr, _ := conn.LocalAddr().(*net.UDPAddr)
		conn.Close()
		if addr != nil && usable(addr.IP) {
			return addr.IP.String()
		}
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if usable(ipnet.IP) {
				return ipnet.IP.To4().String()
			}
		}
	}
	return "127.0.0.1"
}

// usable filters loopback, link-local, and non-IPv4 addresses.
func usable(ip net.IP) bool {
	v4 := ip.To4()
	if v4 == nil {
		return false
	}
	s := v4.String()
	return !v4.IsLoopback() && !strings.HasPrefix(s, "169.254.")
}
