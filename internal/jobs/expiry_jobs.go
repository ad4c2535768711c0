package jobs

import (
	"context"
	"time"

	"bluecollar-backend/internal/logger"
)

const jobTimeout = 5 * time.Minute

// ExpireStaleAssignments closes assignment attempts the worker never answered
// and hands each booking to the next candidate.
func (jr *JobRunner) ExpireStaleAssignments() {
	jr.runWithRecovery("ExpireStaleAssignments", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		ttl := jr.config.Assignment.ResponseTTL
		count, err := jr.services.Bookings.ExpireStaleAssignments(ctx, ttl)
		if err != nil {
			logger.Error("Failed to expire some assignments", "expired", count, "error", err)
			return
		}
		logger.Info("Expired stale assignments", "count", count, "ttl", ttl)
	})
}

// ExpireStaleNegotiations closes price proposals left unanswered past their TTL.
func (jr *JobRunner) ExpireStaleNegotiations() {
	jr.runWithRecovery("ExpireStaleNegotiations", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		ttl := jr.config.Negotiation.TTL
		count, err := jr.services.Negotiations.ExpireStaleNegotiations(ctx, ttl)
		if err != nil {
			logger.Error("Failed to expire some negotiations", "expired", count, "error", err)
			return
		}
		logger.Info("Expired stale negotiations", "count", count, "ttl", ttl)
	})
}
