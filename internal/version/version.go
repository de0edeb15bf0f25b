// Package version reports the kixsync version.
//
// Commit is set with -ldflags "-X github.com/bhandras/kixsync/internal/version.Commit=...".
package version

import (
	"fmt"
	"strings"
)

// Commit is the git commit of this build, if known.
var Commit string

// preReleaseAlphabet holds the characters semver allows in a pre-release tag.
const preReleaseAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	major uint = 0
	minor uint = 3
	patch uint = 0

	preRelease = "beta"
)

// Version returns the semantic version, e.g. "0.3.0-beta".
func Version() string {
	v := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if tag := sanitize(preRelease); tag != "" {
		v += "-" + tag
	}
	return v
}

// RichVersion returns Version followed by the commit when one was linked in.
func RichVersion() string {
	commit := strings.TrimSpace(Commit)
	if commit == "" {
		return Version()
	}
	return fmt.Sprintf("%s commit=%s", Version(), commit)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(preReleaseAlphabet, r) {
			return r
		}
		return -1
	}, s)
}
