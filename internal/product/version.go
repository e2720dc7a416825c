package product

import version "github.com/knqyf263/go-rpm-version"

// CompareVersion orders two product versions the way rpm does. It returns
// -1, 0 or 1.
func CompareVersion(a, b string) int {
	switch version.NewVersion(a).Compare(version.NewVersion(b)) {
	case version.GREATER:
		return 1
	case version.LESS:
		return -1
	default:
		return 0
	}
}
