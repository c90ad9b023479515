//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectClientName ensures hostname and username are both present.
func TestDetectClientName(t *testing.T) {
	t.Parallel()

	name, err := DetectClientName()
	require.NoError(t, err)
	require.Contains(t, name, "@")
	require.NotEqual(t, "@", name)
}

// TestJoinName drops the domain part of Windows account names.
func TestJoinName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "alice@garage-pc", joinName("alice", "garage-pc"))
	require.Equal(t, "bob@office", joinName(`CORP\bob`, "office"))
}
