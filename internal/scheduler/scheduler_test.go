package scheduler

import (
	"testing"

	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler(t *testing.T) {
	t.Run("Registers both jobs", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduler.ExpireAssignments = "0 */5 * * * *"
		cfg.Scheduler.ExpireNegotiations = "0 0 * * * *"

		s, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
		require.NoError(t, err)
		assert.True(t, s.IsRunning())

		s.Start()
		defer s.Stop()
		next := s.NextRuns()
		require.Len(t, next, 2)
		for _, at := range next {
			assert.False(t, at.IsZero())
			assert.Equal(t, "UTC", at.Location().String())
		}
	})

	t.Run("Rejects five-field schedule", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Scheduler.ExpireAssignments = "*/5 * * * *"
		cfg.Scheduler.ExpireNegotiations = "0 0 * * * *"

		_, err := NewScheduler(jobs.NewJobRunner(&jobs.Services{}, cfg))
		assert.Error(t, err)
	})
}
