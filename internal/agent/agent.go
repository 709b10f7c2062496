package agent

import (
	"context"
	"time"

	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/autopost"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/models"
	"github.com/sofelijo/ai-agent-sekolah-sub001/internal/state"
	"go.uber.org/zap"
)

// Options are the polling loop tunables.
type Options struct {
	PollInterval    time.Duration
	MentionsEnabled bool
	AutopostEnabled bool
	AutopostForce   bool
}

// Agent owns the durable state document and supervises both surfaces from a
// single goroutine: reactive mention replies and proactive autoposting.
type Agent struct {
	identity  models.AgentIdentity
	store     *state.Store
	processor *MentionProcessor
	scheduler *autopost.Scheduler
	opts      Options
	logger    *zap.Logger

	state models.AgentState
}

func New(identity models.AgentIdentity, store *state.Store, processor *MentionProcessor, scheduler *autopost.Scheduler, opts Options, logger *zap.Logger) *Agent {
	return &Agent{
		identity:  identity,
		store:     store,
		processor: processor,
		scheduler: scheduler,
		opts:      opts,
		logger:    logger,
		state:     store.Load(),
	}
}

// State exposes the current in-memory state document. Used by tests.
func (a *Agent) State() models.AgentState {
	return a.state
}

// Run drives the polling loop until the context is cancelled. No error from
// either surface escapes a cycle.
func (a *Agent) Run(ctx context.Context) {
	a.logger.Info("Agent started",
		zap.Uint64("user_id", a.identity.UserID),
		zap.String("username", a.identity.Username),
		zap.Duration("poll_interval", a.opts.PollInterval),
		zap.Bool("mentions", a.opts.MentionsEnabled),
		zap.Bool("autopost", a.opts.AutopostEnabled))

	// Make sure a cold start leaves a state file behind even before the
	// first side effect.
	if err := a.store.Save(a.state); err != nil {
		a.logger.Error("Failed to persist initial state", zap.Error(err))
	}

	if a.opts.AutopostEnabled {
		a.cycle(ctx, "autopost warm-up", func() {
			a.scheduler.MaybeAutopost(ctx, &a.state, a.opts.AutopostForce)
		})
	}

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	for {
		if a.opts.MentionsEnabled {
			a.cycle(ctx, "mentions", func() {
				a.processor.Process(ctx, &a.state)
			})
		}
		if a.opts.AutopostEnabled {
			a.cycle(ctx, "autopost", func() {
				a.scheduler.MaybeAutopost(ctx, &a.state, false)
			})
		}

		select {
		case <-ctx.Done():
			a.logger.Info("Agent stopping", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// cycle is the last-resort fault boundary: a panic in either surface is
// logged with its stack and the loop keeps going.
func (a *Agent) cycle(ctx context.Context, surface string, fn func()) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Surface panicked",
				zap.String("surface", surface),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()
	fn()
}
