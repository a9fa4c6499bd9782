package store

import (
	"context"
	"fmt"
)

// RuntimeSettings is the admin-configured singleton settings row: which
// models to route generations to and the paid fair-use ceiling. It is
// fetched per request scope, never cached process-wide, so admin changes
// take effect on the next request and tests can substitute values freely.
type RuntimeSettings struct {
	PrimaryModel  string
	FallbackModel string
	FairUseLimit  int
}

// RuntimeSettings fetches the single settings row.
func (s *Store) RuntimeSettings(ctx context.Context) (RuntimeSettings, error) {
	var settings RuntimeSettings
	err := s.pool.QueryRow(ctx,
		`SELECT primary_model, fallback_model, fair_use_limit FROM runtime_settings WHERE id = 1`,
	).Scan(&settings.PrimaryModel, &settings.FallbackModel, &settings.FairUseLimit)
	if err != nil {
		return RuntimeSettings{}, fmt.Errorf("failed to fetch runtime settings: %w", err)
	}
	return settings, nil
}
