//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
	"strings"
)

// DetectClientName builds a station name from the current user and host.
// The result looks like "alice@garage-pc".
func DetectClientName() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return joinName(currentUser.Username, hostname), nil
}

// joinName strips the Windows domain prefix from the username.
func joinName(username, hostname string) string {
	if i := strings.LastIndex(username, `\`); i >= 0 {
		username = username[i+1:]
	}

	return username + "@" + hostname
}
