package enums

import "fmt"

// PreferenceKey names a row of the preferences table.
type PreferenceKey string

const (
	PreferenceKeyGlobalDefaultMargin    PreferenceKey = "globalDefaultMargin"
	PreferenceKeyDefaultProductCategory PreferenceKey = "defaultProductCategory"
)

var validPreferenceKeys = []PreferenceKey{
	PreferenceKeyGlobalDefaultMargin,
	PreferenceKeyDefaultProductCategory,
}

// PreferenceKeys returns every known key.
func PreferenceKeys() []PreferenceKey {
	out := make([]PreferenceKey, len(validPreferenceKeys))
	copy(out, validPreferenceKeys)
	return out
}

// IsValid reports whether the value is a known PreferenceKey.
func (k PreferenceKey) IsValid() bool {
	for _, candidate := range validPreferenceKeys {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePreferenceKey converts raw input into a PreferenceKey.
func ParsePreferenceKey(value string) (PreferenceKey, error) {
	for _, candidate := range validPreferenceKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid preference key %q", value)
}
