package bootstrap

import "unicode"

// Version of this release. Set with -ldflags "-X ...bootstrap.Version=...".
var Version = "4.0.0"

// IsTestRelease reports whether version is an alpha, beta or release
// candidate, which is any version containing a letter.
func IsTestRelease(version string) bool {
	for _, r := range version {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
