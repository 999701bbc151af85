package dashboard

import "errors"

var (
	// ErrLoginRequired indicates a protected operation ran without a valid
	// session. Views redirect to the login screen on it.
	ErrLoginRequired = errors.New("dashboard: login required")

	// ErrValidation indicates input was rejected before reaching the network.
	ErrValidation = errors.New("dashboard: invalid input")

	// ErrMissingDependency indicates New was called without a required
	// collaborator.
	ErrMissingDependency = errors.New("dashboard: missing dependency")
)

// ValidationError names the field that failed client-side validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "dashboard: " + e.Field + " " + e.Reason
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func required(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "is required"}
	}
	return nil
}

// firstErr returns the first non-nil error.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
