package client

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/vncqr/kiosk/internal/shared/platform"
)

// ErrUnknownClient is returned when a requested identifier is not in the
// catalog for the current platform.
var ErrUnknownClient = fmt.Errorf("unknown client")

// Registry supplies the ordered catalog of known client descriptors per
// platform family. Order is preference order: more reliable clients first.
type Registry struct {
	byPlatform map[platform.Family][]Descriptor
}

// NewRegistry builds the registry from the builtin catalog.
func NewRegistry() *Registry {
	r := &Registry{byPlatform: make(map[platform.Family][]Descriptor)}
	for _, d := range builtinCatalog() {
		r.byPlatform[d.Platform] = append(r.byPlatform[d.Platform], d)
	}
	return r
}

// DescriptorsFor returns the preference-ordered descriptors for a platform.
// The returned slice is a copy; callers cannot mutate the catalog.
func (r *Registry) DescriptorsFor(family platform.Family) []Descriptor {
	descs := r.byPlatform[family]
	out := make([]Descriptor, len(descs))
	copy(out, descs)
	return out
}

// ByID looks up a descriptor by identifier within one platform family.
func (r *Registry) ByID(family platform.Family, id string) (Descriptor, error) {
	for _, d := range r.byPlatform[family] {
		if d.ID == id {
			return d, nil
		}
	}
	return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownClient, id)
}

// SweepNames returns the union of process names covered by the kill sweep
// for a platform family.
func (r *Registry) SweepNames(family platform.Family) []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range r.byPlatform[family] {
		for _, n := range d.SweepNames {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// overlayFile is the shape of a user-provided clients.toml.
type overlayFile struct {
	Clients []Descriptor `toml:"clients"`
}

// LoadOverlay merges user-defined descriptors from a TOML file into the
// registry, appended after the builtin table so builtins keep preference.
// A missing file is not an error.
func (r *Registry) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read client overlay: %w", err)
	}

	var file overlayFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse client overlay: %w", err)
	}

	for _, d := range file.Clients {
		if err := validateDescriptor(d); err != nil {
			return fmt.Errorf("client overlay %q: %w", d.ID, err)
		}
		r.byPlatform[d.Platform] = append(r.byPlatform[d.Platform], d)
	}
	return nil
}

func validateDescriptor(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("missing id")
	}
	if d.Executable == "" && len(d.Locations) == 0 && len(d.Globs) == 0 {
		return fmt.Errorf("no executable, locations, or globs")
	}
	switch d.Platform {
	case platform.Windows, platform.Darwin, platform.Linux:
	default:
		return fmt.Errorf("invalid platform %q", d.Platform)
	}
	switch d.Strategy {
	case StrategyArgs, StrategyURL, StrategyEnv:
	default:
		return fmt.Errorf("invalid strategy %q", d.Strategy)
	}
	if d.Strategy == StrategyEnv && d.SupportsCredential && d.CredentialEnv == "" {
		return fmt.Errorf("env strategy requires credential_env")
	}
	return nil
}
