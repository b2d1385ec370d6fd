// Package license activates and returns editor licenses around builds.
package license

import (
	"fmt"
	"strings"
)

// Type selects the license flow.
type Type string

const (
	TypeNone         Type = ""
	TypePersonal     Type = "personal"
	TypeProfessional Type = "professional"
)

// Scope selects when activation happens.
type Scope string

const (
	// ScopeBuildStep activates around every editor step sequence.
	ScopeBuildStep Scope = "build_step"
	// ScopeBuildConfiguration activates once for the whole build.
	ScopeBuildConfiguration Scope = "build_configuration"
)

// Settings is the license section of the build configuration.
type Settings struct {
	Type     Type
	Scope    Scope
	Serial   string
	Username string
	Password string
	// Content is the personal license file body.
	Content string
}

func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeNone, "none":
		return TypeNone, nil
	case TypePersonal:
		return TypePersonal, nil
	case TypeProfessional:
		return TypeProfessional, nil
	}
	return TypeNone, fmt.Errorf("unknown license type %q", s)
}

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeBuildStep:
		return ScopeBuildStep, nil
	case ScopeBuildConfiguration:
		return ScopeBuildConfiguration, nil
	}
	return ScopeBuildStep, fmt.Errorf("unknown license scope %q", s)
}

// PerConfiguration reports whether the license is handled by BuildHooks
// instead of steps inside each session.
func (s Settings) PerConfiguration() bool {
	return s.Type == TypeProfessional && s.Scope == ScopeBuildConfiguration
}

// Validate checks that the credentials required by Type are present.
func (s Settings) Validate() error {
	switch s.Type {
	case TypeNone:
		return nil
	case TypeProfessional:
		var missing []string
		if strings.TrimSpace(s.Serial) == "" {
			missing = append(missing, "serial")
		}
		if strings.TrimSpace(s.Username) == "" {
			missing = append(missing, "username")
		}
		if s.Password == "" {
			missing = append(missing, "password")
		}
		if len(missing) > 0 {
			return fmt.Errorf("professional license requires %s", strings.Join(missing, ", "))
		}
	case TypePersonal:
		if strings.TrimSpace(s.Content) == "" {
			return fmt.Errorf("personal license requires license file content")
		}
	default:
		return fmt.Errorf("unknown license type %q", s.Type)
	}
	return nil
}
