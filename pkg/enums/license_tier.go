package enums

import "fmt"

// LicenseTier describes the purchased plan for a license.
type LicenseTier string

const (
	LicenseTierPersonal LicenseTier = "personal"
	LicenseTierTeam     LicenseTier = "team"
	LicenseTierSite     LicenseTier = "site"
)

var validLicenseTiers = []LicenseTier{
	LicenseTierPersonal,
	LicenseTierTeam,
	LicenseTierSite,
}

// String implements fmt.Stringer.
func (t LicenseTier) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical license tier enum.
func (t LicenseTier) IsValid() bool {
	for _, candidate := range validLicenseTiers {
		if candidate == t {
			return true
		}
	}
	return false
}

// MaxActivations returns the activation quota granted by the tier.
func (t LicenseTier) MaxActivations() int {
	switch t {
	case LicenseTierPersonal:
		return 1
	case LicenseTierTeam:
		return 5
	case LicenseTierSite:
		return 10
	default:
		return 0
	}
}

// Label returns the customer-facing plan name used in email copy.
func (t LicenseTier) Label() string {
	switch t {
	case LicenseTierPersonal:
		return "Personal"
	case LicenseTierTeam:
		return "Team"
	case LicenseTierSite:
		return "Site License"
	default:
		return string(t)
	}
}

// ParseLicenseTier converts the raw string to LicenseTier.
func ParseLicenseTier(value string) (LicenseTier, error) {
	for _, candidate := range validLicenseTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license tier %q", value)
}
