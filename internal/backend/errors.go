package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/conicdev/conic/cone"
)

// UnsupportedConeError rejects a cone mix an adapter cannot express. It
// names the adapters that could, so callers can retarget instead of
// guessing. Adapter is empty when no adapter in a policy qualified.
type UnsupportedConeError struct {
	Adapter string
	Dims    cone.Dims
	Capable []string
}

func (e *UnsupportedConeError) Error() string {
	capable := strings.Join(e.Capable, ", ")
	if capable == "" {
		capable = "none"
	}
	if e.Adapter == "" {
		return fmt.Sprintf("no adapter in policy supports %s (capable: %s)", e.Dims, capable)
	}
	return fmt.Sprintf("adapter %s cannot express %s (capable: %s)", e.Adapter, e.Dims, capable)
}

// IsUnsupportedConeError reports whether err is a cone-capability
// rejection.
func IsUnsupportedConeError(err error) bool {
	var ue *UnsupportedConeError
	return errors.As(err, &ue)
}
