// Command kiosk runs the remote-desktop kiosk launcher: an HTTP/WebSocket
// pairing server a phone drives, and a process supervisor that launches a
// pre-installed VNC client toward whatever target the phone submits.
package main
