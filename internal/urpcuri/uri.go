// Package urpcuri parses a uRPC endpoint URI into its scheme and
// connection target, per spec.md §6: udp://host:port/, tcp://host:port/,
// or shm://name. This is a pure function, out of the core per spec.md
// §1 ("URI parsing to concrete socket addresses, treated as a pure
// function").
package urpcuri

import (
	"fmt"
	"net"
	"strings"
)

// Scheme identifies the transport an endpoint selects.
type Scheme string

const (
	SchemeUDP Scheme = "udp"
	SchemeTCP Scheme = "tcp"
	SchemeSHM Scheme = "shm"
)

// Endpoint is the resolved form of a uRPC URI.
type Endpoint struct {
	Scheme Scheme

	// HostPort is "host:port" for udp/tcp endpoints, suitable for
	// net.Dial / net.Listen. A bare "*" host is rewritten to "" so
	// net.Listen binds any address, per spec.md §6.
	HostPort string

	// Name is the shared-memory segment name for shm endpoints.
	Name string
}

// Parse decodes uri into an Endpoint. Hosts may be an IPv4 literal, an
// IPv6 literal in square brackets, a hostname, or "*" (server-side
// "bind to any address").
func Parse(uri string) (Endpoint, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return Endpoint{}, fmt.Errorf("urpcuri: %q has no scheme", uri)
	}

	switch strings.ToLower(scheme) {
	case "udp":
		hp, err := parseHostPort(rest)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{Scheme: SchemeUDP, HostPort: hp}, nil

	case "tcp":
		hp, err := parseHostPort(rest)
		if err != nil {
			return Endpoint{}, err
		}
		return Endpoint{Scheme: SchemeTCP, HostPort: hp}, nil

	case "shm":
		name := strings.TrimSuffix(rest, "/")
		if name == "" {
			return Endpoint{}, fmt.Errorf("urpcuri: shm URI %q is missing a name", uri)
		}
		return Endpoint{Scheme: SchemeSHM, Name: name}, nil

	default:
		return Endpoint{}, fmt.Errorf("urpcuri: unknown scheme %q", scheme)
	}
}

func parseHostPort(rest string) (string, error) {
	rest = strings.TrimSuffix(rest, "/")
	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		return "", fmt.Errorf("urpcuri: invalid host:port %q: %w", rest, err)
	}
	if host == "*" {
		host = ""
	}
	return net.JoinHostPort(host, port), nil
}
