// Package version implements the loosely structured editor version used for
// detection and resolution. A version always has a major component; minor and
// patch are optional and, when absent, sort below any concrete value.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidVersion is returned by Parse for malformed input.
var ErrInvalidVersion = errors.New("invalid version")

// Version is an immutable major[.minor[.patch]] triple. The zero value is not
// a valid version; use Parse or one of the constructors.
type Version struct {
	major int
	minor int
	patch int
	parts int
}

// New returns a major-only version.
func New(major int) Version {
	return Version{major: major, parts: 1}
}

// NewMinor returns a major.minor version.
func NewMinor(major, minor int) Version {
	return Version{major: major, minor: minor, parts: 2}
}

// NewPatch returns a fully qualified version.
func NewPatch(major, minor, patch int) Version {
	return Version{major: major, minor: minor, patch: patch, parts: 3}
}

// pre-release and build suffixes: 2022.3.10f1, 2023.1.0b14, 6000.0.0a3, 5.6.7p4, 1.2rc1
var suffixPattern = regexp.MustCompile(`(?:rc|[abpfx])[0-9]*`)

// Parse reads major[.minor[.patch]] discarding everything from the first
// pre-release marker onward.
func Parse(text string) (Version, error) {
	raw := strings.TrimSpace(text)
	cleaned := strings.TrimPrefix(strings.TrimPrefix(raw, "v"), "V")
	if loc := suffixPattern.FindStringIndex(cleaned); loc != nil {
		cleaned = cleaned[:loc[0]]
	}
	cleaned = strings.TrimRight(cleaned, "-_ ")
	if cleaned == "" {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, text)
	}

	fields := strings.Split(cleaned, ".")
	if len(fields) > 3 {
		return Version{}, fmt.Errorf("%w: %q has more than three components", ErrInvalidVersion, text)
	}

	var values [3]int
	for i, field := range fields {
		if field == "" {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, text)
		}
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("%w: %q", ErrInvalidVersion, text)
		}
		values[i] = n
	}

	return Version{major: values[0], minor: values[1], patch: values[2], parts: len(fields)}, nil
}

// TryParse is Parse without the error.
func TryParse(text string) (Version, bool) {
	v, err := Parse(text)
	if err != nil {
		return Version{}, false
	}
	return v, true
}

// MustParse panics on malformed input. Intended for constants and tests.
func MustParse(text string) Version {
	v, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return v
}

// IsZero reports whether v was never assigned.
func (v Version) IsZero() bool { return v.parts == 0 }

// Major returns the major component.
func (v Version) Major() int { return v.major }

// Minor returns the minor component and whether it is present.
func (v Version) Minor() (int, bool) { return v.minor, v.parts >= 2 }

// Patch returns the patch component and whether it is present.
func (v Version) Patch() (int, bool) { return v.patch, v.parts >= 3 }

// HasMinor reports whether the minor component is present.
func (v Version) HasMinor() bool { return v.parts >= 2 }

// HasPatch reports whether the patch component is present.
func (v Version) HasPatch() bool { return v.parts >= 3 }

// NextMajor returns (major+1).0.0.
func (v Version) NextMajor() Version {
	return NewPatch(v.major+1, 0, 0)
}

// NextMinor returns major.(minor+1).0, or NextMajor when minor is absent.
func (v Version) NextMinor() Version {
	if !v.HasMinor() {
		return v.NextMajor()
	}
	return NewPatch(v.major, v.minor+1, 0)
}

// Compare orders versions lexicographically; a missing component sorts
// below any present one at the same level.
func Compare(a, b Version) int {
	if c := compareInt(a.major, b.major); c != 0 {
		return c
	}
	if c := compareLevel(a.minor, a.HasMinor(), b.minor, b.HasMinor()); c != 0 {
		return c
	}
	return compareLevel(a.patch, a.HasPatch(), b.patch, b.HasPatch())
}

func compareLevel(a int, aok bool, b int, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	default:
		return compareInt(a, b)
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool { return Compare(v, other) < 0 }

// Equal reports structural equality.
func (v Version) Equal(other Version) bool { return Compare(v, other) == 0 }

// String prints only the components that are present.
func (v Version) String() string {
	switch v.parts {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(v.major)
	case 2:
		return fmt.Sprintf("%d.%d", v.major, v.minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Sort orders versions ascending in place.
func Sort(vs []Version) {
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
}
