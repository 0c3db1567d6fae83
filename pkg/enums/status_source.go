package enums

import "fmt"

// StatusSource distinguishes precomputed timeline entries from administrative
// overrides.
type StatusSource string

const (
	StatusSourceScheduled StatusSource = "scheduled"
	StatusSourceOverride  StatusSource = "override"
)

var validStatusSources = []StatusSource{
	StatusSourceScheduled,
	StatusSourceOverride,
}

// String implements fmt.Stringer.
func (s StatusSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StatusSource.
func (s StatusSource) IsValid() bool {
	for _, candidate := range validStatusSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatusSource converts raw input into a StatusSource.
func ParseStatusSource(value string) (StatusSource, error) {
	for _, candidate := range validStatusSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status source %q", value)
}
