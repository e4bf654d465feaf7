package governor

import (
	"errors"
	"fmt"
)

var (
	// ErrInactiveCore is returned when ticking a core which has no
	// controller, either because it was never requested or because its
	// activation failed
	ErrInactiveCore = errors.New("governor: core is not active")

	// ErrShutdown is returned when ticking after shutdown
	ErrShutdown = errors.New("governor: controller has been shut down")
)

// ActivationError records why the controller of a core could not be
// activated
type ActivationError struct {
	Core int
	Err  error
}

func (a *ActivationError) Error() string {
	return fmt.Sprintf("governor: activate core %d: %v", a.Core, a.Err)
}

// Unwrap returns the underlying error
func (a *ActivationError) Unwrap() error {
	return a.Err
}
