package local

import (
	"fmt"
	"regexp"
)

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateDeviceID rejects identifiers that cannot be used as a storage key.
func ValidateDeviceID(deviceID string) error {
	if !deviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("invalid device id %q", deviceID)
	}
	return nil
}
