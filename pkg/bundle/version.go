package bundle

import (
	"github.com/Masterminds/semver/v3"
)

// CurrentVersion is the bundle format version written by the compiler.
const CurrentVersion = "1.0.0"

// SupportedVersions is the range of bundle format versions this loader reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var supportedConstraint = mustConstraint(SupportedVersions)

func mustConstraint(c string) *semver.Constraints {
	sc, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return sc
}

// CheckVersion returns a *VersionError unless v is a semantic version inside
// SupportedVersions.
func CheckVersion(v string) error {
	sv, err := semver.StrictNewVersion(v)
	if err != nil || !supportedConstraint.Check(sv) {
		return &VersionError{Version: v, Supported: SupportedVersions}
	}
	return nil
}
