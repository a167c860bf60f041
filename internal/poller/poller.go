package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voyage/internal/config"
	"voyage/internal/domain"
)

// ErrAlreadyWatching is returned when a trip already has an active watch.
var ErrAlreadyWatching = errors.New("trip already being watched")

// Status is one observation of a trip's generation state.
type Status struct {
	State   domain.GenerationStatus
	Message string
	ETA     int // estimated minutes remaining
}

// Source provides the two reads a watch needs: the generation status and
// the finished itinerary.
type Source interface {
	GenerationStatus(ctx context.Context, tripID string) (Status, error)
	FetchItinerary(ctx context.Context, tripID string) (domain.RawItinerary, error)
}

// Outcome is the terminal result of a watch.
type Outcome struct {
	State     domain.GenerationStatus
	Itinerary domain.RawItinerary
	Message   string
	Degraded  bool // itinerary was fetched directly because status reads failed
	Attempts  int
}

// Watch is a handle on one trip's polling loop.
type Watch struct {
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
	outcome  Outcome
	finished bool
}

// Cancel stops the watch. Safe to call multiple times and after the
// watch has finished.
func (w *Watch) Cancel() {
	w.once.Do(w.cancel)
}

// Done is closed when the watch terminates, by outcome or cancellation.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Outcome returns the terminal result. Valid only after Done is closed;
// the second return is false when the watch was cancelled before
// reaching an outcome.
func (w *Watch) Outcome() (Outcome, bool) {
	return w.outcome, w.finished
}

// Poller drives periodic generation-status checks, one watch per trip.
// When a watch observes completion it fetches the itinerary and hands it
// to the watch's callback, so downstream caches warm up without the
// client asking.
type Poller struct {
	source      Source
	interval    time.Duration
	maxAttempts int
	log         zerolog.Logger

	mu     sync.Mutex
	active map[string]*Watch
}

// New creates a poller over the given status source.
func New(source Source, cfg config.PollConfig, logger zerolog.Logger) *Poller {
	return &Poller{
		source:      source,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		log:         logger.With().Str("component", "poller").Logger(),
		active:      make(map[string]*Watch),
	}
}

// Watch starts polling a trip's generation status. At most one watch per
// trip may be active; a second call returns ErrAlreadyWatching. onDone
// runs once with the terminal outcome unless the watch is cancelled.
func (p *Poller) Watch(ctx context.Context, tripID string, onDone func(Outcome)) (*Watch, error) {
	p.mu.Lock()
	if _, ok := p.active[tripID]; ok {
		p.mu.Unlock()
		return nil, ErrAlreadyWatching
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w := &Watch{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.active[tripID] = w
	p.mu.Unlock()

	go p.run(watchCtx, tripID, w, onDone)
	return w, nil
}

// Cancel stops the active watch for a trip, if any.
func (p *Poller) Cancel(tripID string) bool {
	p.mu.Lock()
	w, ok := p.active[tripID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	w.Cancel()
	return true
}

func (p *Poller) run(ctx context.Context, tripID string, w *Watch, onDone func(Outcome)) {
	defer func() {
		p.mu.Lock()
		delete(p.active, tripID)
		p.mu.Unlock()
		w.Cancel()
		close(w.done)
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			p.log.Debug().Str("trip_id", tripID).Msg("watch cancelled")
			return
		case <-ticker.C:
		}

		attempts++
		if outcome, done := p.poll(ctx, tripID, attempts); done {
			w.outcome = outcome
			w.finished = true
			p.log.Info().Str("trip_id", tripID).Str("state", string(outcome.State)).
				Int("attempts", attempts).Bool("degraded", outcome.Degraded).
				Msg("watch finished")
			onDone(outcome)
			return
		}

		if attempts >= p.maxAttempts {
			outcome := Outcome{
				State:    domain.GenerationFailed,
				Message:  "generation timed out",
				Attempts: attempts,
			}
			w.outcome = outcome
			w.finished = true
			p.log.Warn().Str("trip_id", tripID).Int("attempts", attempts).
				Msg("watch exhausted attempts")
			onDone(outcome)
			return
		}
	}
}

// poll performs one status check. A transport failure on the status read
// degrades to fetching the itinerary directly; generation may well have
// finished even if the status endpoint is down.
func (p *Poller) poll(ctx context.Context, tripID string, attempts int) (Outcome, bool) {
	status, err := p.source.GenerationStatus(ctx, tripID)
	if err != nil {
		p.log.Warn().Err(err).Str("trip_id", tripID).Msg("status check failed, trying direct fetch")
		itinerary, ferr := p.source.FetchItinerary(ctx, tripID)
		if ferr != nil || len(itinerary) == 0 {
			return Outcome{}, false
		}
		return Outcome{
			State:     domain.GenerationCompleted,
			Itinerary: itinerary,
			Degraded:  true,
			Attempts:  attempts,
		}, true
	}

	switch status.State {
	case domain.GenerationCompleted:
		itinerary, ferr := p.source.FetchItinerary(ctx, tripID)
		if ferr != nil {
			p.log.Warn().Err(ferr).Str("trip_id", tripID).Msg("itinerary fetch failed, will retry")
			return Outcome{}, false
		}
		return Outcome{
			State:     domain.GenerationCompleted,
			Itinerary: itinerary,
			Attempts:  attempts,
		}, true
	case domain.GenerationFailed:
		return Outcome{
			State:    domain.GenerationFailed,
			Message:  status.Message,
			Attempts: attempts,
		}, true
	default:
		return Outcome{}, false
	}
}
