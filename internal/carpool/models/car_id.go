package models

import (
	"regexp"

	dErrors "rescar/pkg/domain-errors"
)

// Internal car IDs are a C prefix followed by 1 to 10 decimal digits.
var carIDPattern = regexp.MustCompile(`^C\d{1,10}$`)

// ValidateCarID rejects identifiers that do not match the internal car ID
// format. Called before any store access in every operation that accepts a
// raw identifier.
func ValidateCarID(carID string) error {
	if !carIDPattern.MatchString(carID) {
		return dErrors.New(dErrors.CodeInvalidFormat, "invalid car id").With("car_id", carID)
	}
	return nil
}
