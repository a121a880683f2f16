package utils

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Resolver performs reverse DNS lookups. *net.Resolver satisfies it.
type Resolver interface {
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// IsIPAddress reports whether host is a literal IPv4 or IPv6 address.
func IsIPAddress(host string) bool {
	return net.ParseIP(strings.Trim(host, "[]")) != nil
}

// ResolveIPToHostname returns the first reverse-DNS name of host when host is an
// IP address. Hostnames, failed lookups and empty answers return host unchanged.
func ResolveIPToHostname(ctx context.Context, r Resolver, host string) string {
	if r == nil || !IsIPAddress(host) {
		return host
	}
	names, err := r.LookupAddr(ctx, strings.Trim(host, "[]"))
	if err != nil || len(names) == 0 {
		return host
	}
	name := strings.TrimSuffix(names[0], ".")
	if name == "" {
		return host
	}
	return name
}

// ParsePort converts a port given as text into a number.
// Empty input returns 0, meaning "use the default".
// Example: "8443" -> 8443
func ParsePort(port string) (int, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0, fmt.Errorf("invalid port: %s", port)
	}
	if n < 1 || n > 65535 {
		return 0, fmt.Errorf("port out of range: %d", n)
	}
	return n, nil
}

// HostPort joins host and a textual port, omitting the port when empty.
func HostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), port)
}
