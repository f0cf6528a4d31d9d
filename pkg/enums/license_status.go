package enums

import "fmt"

// LicenseStatus describes the allowed values for the `status` column in licenses.
// Status only ever moves active -> revoked or active -> refunded, driven by an
// administrative process outside this service.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusRevoked  LicenseStatus = "revoked"
	LicenseStatusRefunded LicenseStatus = "refunded"
)

var validLicenseStatuses = []LicenseStatus{
	LicenseStatusActive,
	LicenseStatusRevoked,
	LicenseStatusRefunded,
}

// String implements fmt.Stringer.
func (s LicenseStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical license status enum.
func (s LicenseStatus) IsValid() bool {
	for _, candidate := range validLicenseStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLicenseStatus converts the raw string to LicenseStatus.
func ParseLicenseStatus(value string) (LicenseStatus, error) {
	for _, candidate := range validLicenseStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid license status %q", value)
}
