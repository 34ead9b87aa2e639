package registry

import (
	"fmt"
	"time"

	"github.com/campoalegre/unibus/core"
)

const minVehicleYear = 1980

var nowFunc = time.Now // mockable

// validateYear accepts model years from 1980 up to next year.
func validateYear(year int) error {
	maxYear := nowFunc().Year() + 1
	if year < minVehicleYear || year > maxYear {
		return core.NewValidationError(nil, core.FieldError{
			Field: "year",
			Error: fmt.Sprintf("year must be between %d and %d", minVehicleYear, maxYear),
		})
	}
	return nil
}
