package probe

import (
	"context"

	"github.com/vigilhq/vigil/internal/domain"
)

// Checker performs a single check against one monitor. Implementations
// never return an error: every failure mode collapses into the outcome.
type Checker interface {
	Check(ctx context.Context, m domain.Monitor) domain.CheckOutcome
}
