package client

import "github.com/vncqr/kiosk/internal/shared/platform"

// Strategy describes how a client accepts connection details.
type Strategy string

const (
	// StrategyArgs passes the connection string (and optionally the
	// credential) as command-line arguments.
	StrategyArgs Strategy = "args"
	// StrategyURL builds a vnc:// URL with embedded principal/credential.
	StrategyURL Strategy = "url"
	// StrategyEnv passes the connection string as an argument and injects
	// the credential through an environment variable.
	StrategyEnv Strategy = "env"
)

// Descriptor is the static metadata for one known remote-desktop client.
// Descriptors are defined at process start and never mutated.
type Descriptor struct {
	// ID is the stable key clients are requested by.
	ID string `toml:"id"`
	// Name is the human-readable display name.
	Name string `toml:"name"`
	// Executable is the bare binary name resolved on PATH.
	Executable string `toml:"executable"`
	// Locations are fixed install paths checked after PATH.
	Locations []string `toml:"locations"`
	// Globs are doublestar patterns for standalone-distributed binaries
	// with version-numbered filenames, expanded from the working directory.
	Globs []string `toml:"globs"`
	// Platform is the OS family this descriptor applies to.
	Platform platform.Family `toml:"platform"`
	// Strategy selects how host/port/credential reach the client.
	Strategy Strategy `toml:"strategy"`
	// SupportsCredential reports whether the client accepts a credential
	// at all; when false any provided credential is dropped.
	SupportsCredential bool `toml:"supports_credential"`

	// HostFlag, when set, precedes the connection string (e.g. "-host").
	HostFlag string `toml:"host_flag"`
	// CredentialFlag precedes the credential for StrategyArgs clients.
	CredentialFlag string `toml:"credential_flag"`
	// ConnectArgs are fixed arguments placed before the connection string
	// (e.g. Remmina's "-c").
	ConnectArgs []string `toml:"connect_args"`
	// CredentialEnv names the environment variable used by StrategyEnv.
	CredentialEnv string `toml:"credential_env"`
	// FullscreenFlag, when set, is appended for fullscreen requests.
	FullscreenFlag string `toml:"fullscreen_flag"`
	// URLLauncher, when set, is the program that opens the constructed URL
	// (e.g. "open" on macOS). Defaults to Executable.
	URLLauncher string `toml:"url_launcher"`
	// SweepNames are process names covered by the optional kill sweep.
	SweepNames []string `toml:"sweep_names"`
}

// Info is the wire representation of an installed client, reported to the
// paired phone so it can offer a client picker.
type Info struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SupportsCredential bool   `json:"supports_credential"`
}

// Info converts a descriptor to its wire representation.
func (d Descriptor) Info() Info {
	return Info{
		ID:                 d.ID,
		Name:               d.Name,
		SupportsCredential: d.SupportsCredential,
	}
}
