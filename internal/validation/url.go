package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// EndpointValidator checks provider API and token endpoints before any
// credential is sent to them.
type EndpointValidator struct {
	// AllowInsecure permits plain http endpoints
	AllowInsecure bool
	// AllowLocalhost permits loopback hosts
	AllowLocalhost bool
	MaxLength      int
}

// NewEndpointValidator requires https on a public host.
func NewEndpointValidator() *EndpointValidator {
	return &EndpointValidator{MaxLength: 2048}
}

// NewPermissiveEndpointValidator accepts local http test servers.
func NewPermissiveEndpointValidator() *EndpointValidator {
	return &EndpointValidator{
		AllowInsecure:  true,
		AllowLocalhost: true,
		MaxLength:      2048,
	}
}

// Validate returns the endpoint without a trailing slash so that API
// paths can be appended to it.
func (v *EndpointValidator) Validate(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("endpoint too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("endpoint contains invalid characters")
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !v.AllowInsecure {
			return "", fmt.Errorf("endpoint %s must use https", input)
		}
	default:
		return "", fmt.Errorf("endpoint %s must use http or https", input)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("endpoint %s has no host", input)
	}
	if u.User != nil {
		return "", fmt.Errorf("endpoint %s must not embed credentials", input)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("endpoint %s must not carry a query or fragment", input)
	}
	if !v.AllowLocalhost && isLocalhost(u.Hostname()) {
		return "", fmt.Errorf("localhost endpoints are not permitted")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// IsWebURL reports whether s is an absolute http or https URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// HasSchemeAndHost reports whether s parses as a URI with both a scheme
// and a host, whatever the scheme.
func HasSchemeAndHost(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

func isLocalhost(hostname string) bool {
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	ip := net.ParseIP(hostname)
	return ip != nil && ip.IsLoopback()
}
