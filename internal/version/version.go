// Package version parses runtime release names into semantic versions.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// String constants for operations (used in ErrVersionParseFailed)
const (
	OpParseRelease = "parse_release"
	OpParseMajor   = "parse_major"
)

// Custom error types for better error handling and comparison
var (
	ErrInvalidVersion     = errors.New("invalid version format")
	ErrNoVersionsProvided = errors.New("no versions provided")
)

// ErrVersionParseFailed represents a version parsing error
type ErrVersionParseFailed struct {
	Version string
	Op      string
	Cause   error
}

func (e ErrVersionParseFailed) Error() string {
	return fmt.Sprintf("failed to parse version %s in operation %s: %v", e.Version, e.Op, e.Cause)
}

func (e ErrVersionParseFailed) Unwrap() error {
	return e.Cause
}

func (e ErrVersionParseFailed) Is(target error) bool {
	var parseErr ErrVersionParseFailed
	return errors.As(target, &parseErr)
}

// legacyRelease matches JDK 8 style names such as "8u382-b05" or "8u382b05".
var legacyRelease = regexp.MustCompile(`^(\d+)u(\d+)(?:-?b(\d+))?$`)

// ParseRelease parses a runtime version or release name. Accepted forms
// include "17", "17.0.8", "jdk-17.0.8+7", "jdk-21+35", "jdk8u382-b05" and "8u382b05".
func ParseRelease(s string) (*semver.Version, error) {
	raw := s
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"jdk-", "jre-", "jdk", "jre"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}

	if m := legacyRelease.FindStringSubmatch(s); m != nil {
		s = fmt.Sprintf("%s.0.%s", m[1], m[2])
		if m[3] != "" {
			s += "+b" + m[3]
		}
	}

	if s == "" {
		return nil, ErrVersionParseFailed{Version: raw, Op: OpParseRelease, Cause: ErrInvalidVersion}
	}

	// Four-part versions such as "17.0.4.1+1" keep the extra part as build metadata.
	core, build, hasBuild := strings.Cut(s, "+")
	if parts := strings.Split(core, "."); len(parts) > 3 {
		extra := strings.Join(parts[3:], ".")
		s = strings.Join(parts[:3], ".") + "+" + extra
		if hasBuild {
			s += "." + build
		}
	}

	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, ErrVersionParseFailed{Version: raw, Op: OpParseRelease, Cause: err}
	}
	return v, nil
}

// ParseMajor returns the major component of a version or release name.
func ParseMajor(s string) (int, error) {
	v, err := ParseRelease(s)
	if err != nil {
		return 0, ErrVersionParseFailed{Version: s, Op: OpParseMajor, Cause: err}
	}
	if v.Major() == 0 {
		return 0, ErrVersionParseFailed{Version: s, Op: OpParseMajor, Cause: ErrInvalidVersion}
	}
	return int(v.Major()), nil
}

// Latest returns the highest release name in versions. Unparsable entries are skipped.
func Latest(versions []string) (string, error) {
	if len(versions) == 0 {
		return "", ErrNoVersionsProvided
	}

	var (
		latest    string
		latestVer *semver.Version
	)
	for _, v := range versions {
		parsed, err := ParseRelease(v)
		if err != nil {
			continue // Skip invalid versions
		}
		if latestVer == nil || parsed.GreaterThan(latestVer) {
			latest, latestVer = v, parsed
		}
	}
	if latestVer == nil {
		return "", ErrInvalidVersion
	}
	return latest, nil
}
