package repo_test

import (
	"testing"

	"github.com/vigilhq/vigil/internal/repo"
	"github.com/vigilhq/vigil/internal/repo/memory"
	pg "github.com/vigilhq/vigil/internal/repo/postgres"
)

// Compile-time interface satisfaction checks.
// Using external test package avoids import cycle.
func TestInterfaceSatisfaction(t *testing.T) {
	var _ repo.MonitorStore = memory.New()
	var _ repo.ResultStore = memory.New()
	var _ repo.StatusPageStore = memory.New()
	var _ repo.IncidentStore = memory.New()

	// Postgres store types compile against the interfaces, too.
	var _ repo.MonitorStore = (*pg.Store)(nil)
	var _ repo.ResultStore = (*pg.Store)(nil)
	var _ repo.StatusPageStore = (*pg.Store)(nil)
	var _ repo.IncidentStore = (*pg.Store)(nil)
}
