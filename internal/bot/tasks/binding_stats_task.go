package tasks

import (
	"context"
	"fmt"
)

// newBindingStatsTask logs how many users currently own a staff thread.
func newBindingStatsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "binding_stats")

	return func(ctx context.Context) error {
		count, err := deps.Store.CountBindings(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Failed to count bindings", "error", err)
			return fmt.Errorf("count bindings: %w", err)
		}

		log.InfoContext(ctx, "Binding statistics", "bindings", count)
		return nil
	}
}
