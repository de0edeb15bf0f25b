package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersion(t *testing.T) {
	require.Equal(t, "0.3.0-beta", Version())
	require.Equal(t, "beta", sanitize("b e+t_a"))
}

func TestRichVersion(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = ""
	require.Equal(t, "0.3.0-beta", RichVersion())

	Commit = " abc123\n"
	require.Equal(t, "0.3.0-beta commit=abc123", RichVersion())
}
