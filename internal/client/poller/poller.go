// Package poller runs the periodic background sync: the same reconcile the
// UI triggers, fired on a fixed schedule so new missions surface even while
// the technician is not looking at the list.
package poller

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// Syncer is the slice of the sync engine the poller drives.
type Syncer interface {
	FetchAndReconcile(ctx context.Context, technicianID string) []models.Booking
}

// Poller periodically reconciles bookings for the logged-in technician.
// Ticks never overlap: a schedule entry firing while the previous run is
// still in flight is skipped, and ticks observed while the app is inactive
// or logged out are skipped rather than queued.
type Poller struct {
	syncer Syncer
	log    logging.Logger

	// session returns the technician to sync for, or false when logged out.
	session func(ctx context.Context) (string, bool)
	// onNew receives each tick's newly-observed bookings.
	onNew func(ctx context.Context, fresh []models.Booking)

	active atomic.Bool
	cron   *cron.Cron
}

func New(syncer Syncer, interval time.Duration, session func(ctx context.Context) (string, bool), onNew func(ctx context.Context, fresh []models.Booking), log logging.Logger) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %s", interval)
	}

	p := &Poller{
		syncer:  syncer,
		log:     log,
		session: session,
		onNew:   onNew,
	}
	p.active.Store(true)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	// @every keeps the schedule anchored to the previous tick's start, the
	// SkipIfStillRunning wrapper guarantees a slow cycle is never overlapped.
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() { p.tick(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduling sync every %s: %w", interval, err)
	}
	p.cron = c
	return p, nil
}

func (p *Poller) tick(ctx context.Context) {
	if !p.active.Load() {
		return
	}
	technicianID, ok := p.session(ctx)
	if !ok {
		return
	}

	fresh := p.syncer.FetchAndReconcile(ctx, technicianID)
	if len(fresh) > 0 && p.onNew != nil {
		p.onNew(ctx, fresh)
	}
}

// SetActive records the foreground/background lifecycle signal. While
// inactive, ticks are dropped.
func (p *Poller) SetActive(active bool) {
	p.active.Store(active)
}

// Start begins the schedule and stops it when ctx is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.cron.Start()
	go func() {
		<-ctx.Done()
		p.cron.Stop()
	}()
}

// Stop halts the schedule. A running tick finishes; no new ones fire.
func (p *Poller) Stop() {
	p.cron.Stop()
}

// cronLogger adapts logging.Logger to cron's logging interface.
type cronLogger struct {
	log logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.log.Info(context.Background(), msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(context.Background(), msg, append(keysAndValues, "error", err)...)
}
