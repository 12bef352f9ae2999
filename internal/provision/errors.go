package provision

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anvil-platform/provisioner/internal/resource"
)

var (
	// ErrInvalidArgument indicates a missing environment or requirement set.
	ErrInvalidArgument = errors.New("invalid argument")
)

// UnsatisfiedError is returned by Provision when the closure left requirements
// without a provider. Result holds the partial resolution.
type UnsatisfiedError struct {
	Result *Result
}

func (e *UnsatisfiedError) Error() string {
	reqs := e.Result.Unsatisfied()
	parts := make([]string, 0, len(reqs))
	for _, r := range reqs {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%d unsatisfied requirement(s): %s", len(reqs), strings.Join(parts, ", "))
}

// Requirements returns the unsatisfied requirements.
func (e *UnsatisfiedError) Requirements() []*resource.Requirement {
	return e.Result.Unsatisfied()
}
