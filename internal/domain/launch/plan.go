// Package launch turns a connection request plus a located client into a
// ready-to-execute process invocation.
package launch

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/vncqr/kiosk/internal/domain/client"
)

// Request carries the connection details submitted by the paired phone.
// Immutable once constructed; one Request per connection attempt.
type Request struct {
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Principal  string `json:"principal"`
	Credential string `json:"credential,omitempty"`
	// ClientID optionally pins the attempt to one catalog entry.
	ClientID string `json:"client_id,omitempty"`
	// Fullscreen asks the client for fullscreen presentation when it
	// supports a flag for it.
	Fullscreen bool `json:"fullscreen,omitempty"`
}

// Validate checks the request fields the API layer cannot default.
func (r Request) Validate() error {
	if r.Host == "" {
		return fmt.Errorf("host is required")
	}
	if r.Port <= 0 || r.Port > 65535 {
		return fmt.Errorf("port must be in 1-65535, got %d", r.Port)
	}
	if r.Principal == "" {
		return fmt.Errorf("principal is required")
	}
	return nil
}

// Plan is the resolved invocation derived from a request and a descriptor.
// Consumed exactly once by the supervisor.
type Plan struct {
	ClientID string
	Path     string
	Args     []string
	// Env holds variable overrides merged onto the current environment.
	Env map[string]string
}

// Build constructs a plan for a located descriptor. The credential is
// injected per the descriptor's declared strategy and dropped entirely when
// the client does not support one.
func Build(desc client.Descriptor, path string, req Request) (Plan, error) {
	if err := req.Validate(); err != nil {
		return Plan{}, err
	}

	credential := req.Credential
	if !desc.SupportsCredential {
		credential = ""
	}

	plan := Plan{ClientID: desc.ID, Path: path}

	switch desc.Strategy {
	case client.StrategyArgs:
		plan.Args = argsInvocation(desc, req, credential)
	case client.StrategyEnv:
		plan.Args = append([]string{}, desc.ConnectArgs...)
		if req.Fullscreen && desc.FullscreenFlag != "" {
			plan.Args = append(plan.Args, desc.FullscreenFlag)
		}
		plan.Args = append(plan.Args, ConnectionString(req.Host, req.Port))
		if credential != "" {
			plan.Env = map[string]string{desc.CredentialEnv: credential}
		}
	case client.StrategyURL:
		plan.Args = append([]string{}, desc.ConnectArgs...)
		plan.Args = append(plan.Args, connectionURL(req, credential))
	default:
		return Plan{}, fmt.Errorf("descriptor %s: unsupported strategy %q", desc.ID, desc.Strategy)
	}

	return plan, nil
}

func argsInvocation(desc client.Descriptor, req Request, credential string) []string {
	args := append([]string{}, desc.ConnectArgs...)
	if req.Fullscreen && desc.FullscreenFlag != "" {
		args = append(args, desc.FullscreenFlag)
	}
	if desc.HostFlag != "" {
		args = append(args, desc.HostFlag)
	}
	args = append(args, ConnectionString(req.Host, req.Port))
	if credential != "" && desc.CredentialFlag != "" {
		args = append(args, desc.CredentialFlag, credential)
	}
	return args
}

// ConnectionString renders host:port in VNC display notation: the default
// port 5900 collapses to the bare host, ports above 5900 become a display
// number, anything else keeps the explicit port.
func ConnectionString(host string, port int) string {
	switch {
	case port == 5900:
		return host
	case port > 5900:
		return host + ":" + strconv.Itoa(port-5900)
	default:
		return host + "::" + strconv.Itoa(port)
	}
}

func connectionURL(req Request, credential string) string {
	u := url.URL{Scheme: "vnc", Host: ConnectionString(req.Host, req.Port)}
	if req.Principal != "" {
		if credential != "" {
			u.User = url.UserPassword(req.Principal, credential)
		} else {
			u.User = url.User(req.Principal)
		}
	}
	return u.String()
}
