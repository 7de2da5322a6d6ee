// Package cli is the interactive terminal front end of the technician
// client: login, mission list, and the per-mission workflow.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/zeroeau/washpro-technician/internal/client/api"
	"github.com/zeroeau/washpro-technician/internal/client/config"
	"github.com/zeroeau/washpro-technician/internal/client/location"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/notify"
	"github.com/zeroeau/washpro-technician/internal/client/poller"
	"github.com/zeroeau/washpro-technician/internal/client/services"
	"github.com/zeroeau/washpro-technician/internal/client/storage"
	"github.com/zeroeau/washpro-technician/internal/client/upload"
	"github.com/zeroeau/washpro-technician/internal/common"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// Fallback destination when a booking was never geocoded: Casablanca city
// center, same as the mobile app's map default.
var defaultPosition = models.Location{Latitude: 33.5731, Longitude: -7.5898}

type App struct {
	config     *config.Config
	log        logging.Logger
	repos      *storage.Repositories
	engine     *services.SyncEngine
	session    *services.SessionService
	dispatcher *notify.Dispatcher
	uploader   upload.Uploader
	sampler    location.Sampler
	poller     *poller.Poller

	reader *bufio.Reader

	// technician is the logged-in session. The poller's cron goroutine
	// reads it while the repl goroutine writes it on login and logout.
	technician atomic.Pointer[models.Technician]
}

func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if cfg.AdminKey == "" {
		key, err := GetServiceKey(os.Stdout)
		if err != nil {
			return nil, fmt.Errorf("reading service key: %w", err)
		}
		cfg.AdminKey = key
	}

	repos, err := storage.InitDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing local database: %w", err)
	}

	apiClient := api.NewRESTClient(cfg.APIBaseURL, cfg.AdminKey)
	engine := services.NewSyncEngine(apiClient, repos.Bookings, repos.SyncState, log)
	session := services.NewSessionService(apiClient, repos.SyncState, log)
	dispatcher := notify.NewDispatcher(&notify.LogSink{Log: log}, apiClient, log)

	uploader, err := upload.NewS3Uploader(ctx, cfg.Photos)
	if err != nil {
		return nil, fmt.Errorf("initializing photo uploader: %w", err)
	}

	a := &App{
		config:     cfg,
		log:        log,
		repos:      repos,
		engine:     engine,
		session:    session,
		dispatcher: dispatcher,
		uploader:   uploader,
		sampler:    &location.StaticSampler{Position: defaultPosition},
		reader:     bufio.NewReader(os.Stdin),
	}

	a.poller, err = poller.New(engine, cfg.PollInterval,
		func(ctx context.Context) (string, bool) {
			t := a.technician.Load()
			if t == nil {
				return "", false
			}
			return t.ID, true
		},
		func(ctx context.Context, fresh []models.Booking) {
			dispatcher.OnNewBookings(ctx, fresh)
		},
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("configuring background sync: %w", err)
	}
	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	defer a.repos.DB.Close()

	// Stay logged in across restarts.
	if t, err := a.session.Current(ctx); err == nil {
		a.technician.Store(t)
		a.dispatcher.RegisterDeliveryChannel(ctx, t.ID)
	} else if !errors.Is(err, common.ErrNotLoggedIn) {
		a.log.Warn(ctx, "restoring session failed", "error", err)
	}

	// Show the last snapshot immediately, even before the first sync.
	if err := a.engine.LoadCache(ctx); err != nil {
		a.log.Warn(ctx, "priming booking cache failed", "error", err)
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	a.poller.Start(pollCtx)

	a.repl(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.technician.Load() != nil
}
