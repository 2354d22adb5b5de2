package transit

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateRoute checks a route record where collaborator data enters the
// engine. A route that fails validation must not be handed to detectors.
func ValidateRoute(r *Route) error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("route %q: %w", r.ID, err)
	}
	return nil
}

// ValidateSchedule checks a schedule record at the boundary.
func ValidateSchedule(s *Schedule) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("schedule %q: %w", s.ID, err)
	}
	return nil
}

// ValidateTrip checks a trip record at the boundary.
func ValidateTrip(t *Trip) error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("trip %q: %w", t.TripID, err)
	}
	return nil
}
