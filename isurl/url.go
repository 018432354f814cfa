// Package isurl parses the connection URLs messaging services accept, e.g.
// tcp://host:port or unix:///path/to/socket. It is a thin wrapper over
// net/url rather than a protocol-specific parser: URL parsing sits outside
// this library's hard design and plain RFC 3986 parsing is all any
// transport factory registered with a messaging service needs.
package isurl

import (
	"net/url"

	"github.com/isml-go/isml/errors"
)

// URL is a parsed connection address. Scheme selects which registered
// transport factory handles the connection; Host/Port/Path are whatever
// that factory needs from the remainder.
type URL struct {
	raw *url.URL
}

// Parse parses raw into a URL, or returns errors.ErrMalformedUrl if raw is
// not a valid URL of the form scheme://[authority][/path][?query].
func Parse(raw string) (URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URL{}, errors.New(errors.ErrMalformedUrl, err)
	}

	// A non-empty Opaque means raw had no "//" after the scheme (e.g.
	// "localhost:9090", which net/url reads as scheme "localhost").
	if u.Scheme == "" || u.Opaque != "" {
		return URL{}, errors.New(errors.ErrMalformedUrl, nil)
	}

	return URL{raw: u}, nil
}

// Scheme returns the URL scheme, e.g. "tcp".
func (u URL) Scheme() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.Scheme
}

// Host returns the host component without the port.
func (u URL) Host() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.Hostname()
}

// Port returns the port component, or "" if none was present.
func (u URL) Port() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.Port()
}

// Authority returns host:port, suitable for passing to net.Dial.
func (u URL) Authority() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.Host
}

// Path returns the URL path component.
func (u URL) Path() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.Path
}

// Query returns the parsed query string as a multi-map.
func (u URL) Query() map[string][]string {
	if u.raw == nil {
		return map[string][]string{}
	}
	return map[string][]string(u.raw.Query())
}

// String renders the URL back to its wire form. Round-trips a Parse'd URL
// modulo query parameter ordering, since net/url sorts query parameters by
// key when re-encoding them.
func (u URL) String() string {
	if u.raw == nil {
		return ""
	}
	return u.raw.String()
}

// IsZero reports whether u was never successfully parsed.
func (u URL) IsZero() bool {
	return u.raw == nil
}

// HasScheme reports whether the URL's scheme exactly matches s. Transport
// protocol identifiers are case-sensitive keys in a messaging service's
// factory registry.
func (u URL) HasScheme(s string) bool {
	return u.Scheme() == s
}
