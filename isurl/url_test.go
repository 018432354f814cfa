package isurl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	u, err := Parse("tcp://localhost:9090/session?name=alice")
	require.NoError(t, err)
	require.Equal(t, "tcp", u.Scheme())
	require.Equal(t, "localhost", u.Host())
	require.Equal(t, "9090", u.Port())
	require.Equal(t, "localhost:9090", u.Authority())
	require.Equal(t, "/session", u.Path())
	require.Equal(t, []string{"alice"}, u.Query()["name"])
}

func TestParseMissingScheme(t *testing.T) {
	_, err := Parse("localhost:9090")
	require.Error(t, err)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("://bad")
	require.Error(t, err)
}

func TestStringRoundTrips(t *testing.T) {
	raw := "tcp://localhost:9090/session"
	u, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, raw, u.String())
}

func TestStringRoundTripsWithQueryParameters(t *testing.T) {
	raw := "protocol://domain/resource?param1=value1&param2=value2"
	u, err := Parse(raw)
	require.NoError(t, err)

	// Query parameters may be re-ordered on output, so equality is over
	// the parsed tuple rather than string identity.
	reparsed, err := Parse(u.String())
	require.NoError(t, err)
	require.Equal(t, u.Scheme(), reparsed.Scheme())
	require.Equal(t, u.Host(), reparsed.Host())
	require.Equal(t, u.Path(), reparsed.Path())
	require.Equal(t, u.Query(), reparsed.Query())
	require.Equal(t, map[string][]string{
		"param1": {"value1"},
		"param2": {"value2"},
	}, reparsed.Query())
}

func TestHasScheme(t *testing.T) {
	u, err := Parse("unix:///tmp/isml.sock")
	require.NoError(t, err)
	require.True(t, u.HasScheme("unix"))
	require.False(t, u.HasScheme("UNIX"))
	require.False(t, u.HasScheme("tcp"))
}

func TestZeroValue(t *testing.T) {
	var u URL
	require.True(t, u.IsZero())
	require.Equal(t, "", u.Scheme())
	require.Equal(t, "", u.String())
}
