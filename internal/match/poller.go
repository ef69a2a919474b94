package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"valoripper/internal/config"
	"valoripper/internal/domain"
	"valoripper/internal/history"

	"github.com/rs/zerolog"
)

// Status of the last completed poll cycle, for the consumer's "waiting" and
// transient-error states.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusInMatch Status = "in_match"
	StatusError   Status = "error"
)

// Poller re-runs match discovery on a fixed interval. Every cycle starts from
// scratch; the only thing carried over is the latest snapshot for readers.
type Poller struct {
	service  *Service
	sessions *history.Repository
	interval time.Duration
	logger   zerolog.Logger

	mu      sync.RWMutex
	status  Status
	latest  *domain.MatchState
	lastErr string
}

func NewPoller(service *Service, sessions *history.Repository, cfg *config.Config, logger zerolog.Logger) *Poller {
	return &Poller{
		service:  service,
		sessions: sessions,
		interval: cfg.PollInterval,
		logger:   logger,
		status:   StatusWaiting,
	}
}

// Run polls until ctx is cancelled. Intended to be started once from the
// application lifecycle.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	state, err := p.service.Snapshot(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case err == nil:
		p.status = StatusInMatch
		p.latest = state
		p.lastErr = ""
	case errors.Is(err, ErrNotInMatch):
		p.status = StatusWaiting
		p.latest = nil
		p.lastErr = ""
	default:
		// Transient; keep the previous snapshot off the API and retry next tick.
		p.status = StatusError
		p.latest = nil
		p.lastErr = err.Error()
		p.logger.Warn().Err(err).Msg("poll cycle failed")
	}

	if p.status == StatusInMatch && p.sessions != nil {
		if err := p.sessions.Record(ctx, state); err != nil {
			p.logger.Warn().Err(err).Str("match_id", state.MatchID).Msg("failed to record session")
		}
	}
}

// Current returns the outcome of the last poll cycle. The snapshot is nil
// unless the status is in_match.
func (p *Poller) Current() (Status, *domain.MatchState, string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status, p.latest, p.lastErr
}
