// Package platform identifies the operating-system family the launcher is
// running on. The client registry is keyed by these tags.
package platform

import "runtime"

// Family is a closed set of operating-system families.
type Family string

const (
	Windows Family = "windows"
	Darwin  Family = "darwin"
	Linux   Family = "linux"
)

// Current returns the family for the running OS. Anything that is not
// Windows or macOS is treated as Linux, matching the lookup behavior of the
// client catalog.
func Current() Family {
	switch runtime.GOOS {
	case "windows":
		return Windows
	case "darwin":
		return Darwin
	default:
		return Linux
	}
}

// String implements fmt.Stringer.
func (f Family) String() string { return string(f) }
