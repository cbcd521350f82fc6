package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"sstaudit/internal/platform/repositories"
)

const DefaultReaperInterval = time.Hour

// Reaper periodically deletes expired session rows. Validation already
// rejects expired sessions, so the sweep is pure housekeeping and a
// double run is harmless.
type Reaper struct {
	sessions *repositories.SessionRepository
	interval time.Duration
}

func NewReaper(sessions *repositories.SessionRepository, interval time.Duration) *Reaper {
	if interval == 0 {
		interval = DefaultReaperInterval
	}
	return &Reaper{sessions: sessions, interval: interval}
}

// Run blocks, sweeping on each tick until the context is canceled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", r.interval).Msg("session reaper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep deletes every expired session and logs the count.
func (r *Reaper) Sweep() {
	deleted, err := r.sessions.DeleteExpired(time.Now().Unix())
	if err != nil {
		log.Error().Err(err).Msg("session sweep failed")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("swept expired sessions")
	}
}
