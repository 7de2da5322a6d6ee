// Package services contains the application services of the technician
// client: booking synchronization, new-mission notification and the
// per-mission workflow controller.
package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/zeroeau/washpro-technician/internal/client/api"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/repositories/bookings"
	"github.com/zeroeau/washpro-technician/internal/client/repositories/syncstate"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// SyncEngine owns the authoritative booking list: the in-memory copy read by
// the UI and the persisted snapshot that survives restarts and outages. It is
// the only writer of the booking cache, the known-id set and the unread
// counter; everything else mutates bookings through its methods.
type SyncEngine struct {
	remote api.Client
	cache  bookings.Repository
	state  syncstate.Repository
	log    logging.Logger
	now    func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	list     []models.Booking
	knownIDs map[string]struct{}
	hydrated bool
	unread   int
	unreadOK bool
	offline  bool
	lastSync time.Time
}

func NewSyncEngine(remote api.Client, cache bookings.Repository, state syncstate.Repository, log logging.Logger) *SyncEngine {
	return &SyncEngine{
		remote: remote,
		cache:  cache,
		state:  state,
		log:    log,
		now:    time.Now,
	}
}

// FetchAndReconcile pulls the full booking list from the backend, keeps only
// the given technician's bookings (empty id means no filtering), replaces the
// persisted snapshot and returns the bookings never seen before. On the very
// first sync of an account nothing is reported as new: every current id is
// recorded as known instead, so a fresh login does not produce a burst of
// notifications for bookings that predate it.
//
// On a fetch failure the engine flips to offline, reloads the last persisted
// snapshot as the readable list and returns nothing; known ids, the unread
// counter and the snapshot are left untouched.
//
// The known-id set and the unread counter are persisted as two separate
// writes in that order. A crash between them can leave the counter behind
// the set; that best-effort pairing is deliberate and matches the production
// behavior this client replaces.
//
// Concurrent calls for the same technician share a single flight. Only the
// caller whose call executed the flight receives the new bookings; callers
// that joined an in-progress flight get an empty result, so one arrival is
// never dispatched twice.
func (e *SyncEngine) FetchAndReconcile(ctx context.Context, technicianID string) []models.Booking {
	var owner bool
	v, _, _ := e.group.Do("reconcile:"+technicianID, func() (any, error) {
		owner = true
		return e.reconcile(ctx, technicianID), nil
	})
	if !owner {
		return nil
	}
	fresh, _ := v.([]models.Booking)
	return fresh
}

func (e *SyncEngine) reconcile(ctx context.Context, technicianID string) []models.Booking {
	all, err := e.remote.ListBookings(ctx)
	if err != nil {
		e.log.Warn(ctx, "booking fetch failed, falling back to cache", "error", err)
		e.fallbackToCache(ctx)
		return nil
	}

	filtered := all
	if technicianID != "" {
		filtered = filtered[:0:0]
		for _, b := range all {
			if b.TechnicianID == technicianID {
				filtered = append(filtered, b)
			}
		}
	}

	if err := e.cache.ReplaceAll(ctx, filtered); err != nil {
		// Keep going on in-memory state for this cycle.
		e.log.Error(ctx, "persisting booking snapshot failed", "error", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.hydrateLocked(ctx)

	var fresh []models.Booking
	if len(e.knownIDs) > 0 {
		for _, b := range filtered {
			if _, seen := e.knownIDs[b.ID]; !seen {
				fresh = append(fresh, b)
			}
		}
	}

	if e.knownIDs == nil {
		e.knownIDs = make(map[string]struct{}, len(filtered))
	}
	for _, b := range filtered {
		e.knownIDs[b.ID] = struct{}{}
	}
	if err := e.state.SetKnownIDs(ctx, e.knownIDs); err != nil {
		e.log.Error(ctx, "persisting known ids failed", "error", err)
	}

	e.unread += len(fresh)
	if err := e.state.SetUnreadCount(ctx, e.unread); err != nil {
		e.log.Error(ctx, "persisting unread count failed", "error", err)
	}

	e.list = filtered
	e.offline = false
	e.lastSync = e.now()
	if err := e.state.SetLastSync(ctx, e.lastSync); err != nil {
		e.log.Error(ctx, "persisting last sync time failed", "error", err)
	}

	return fresh
}

// fallbackToCache surfaces the last persisted snapshot as the readable list.
// If even the local store is unreachable the current in-memory list stays.
func (e *SyncEngine) fallbackToCache(ctx context.Context) {
	cached, err := e.cache.GetAll(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.offline = true
	if err != nil {
		e.log.Error(ctx, "reading cached bookings failed", "error", err)
		return
	}
	e.list = cached
}

// hydrateLocked loads the known-id set and unread counter from durable
// storage the first time they are needed, so a process restart does not
// re-notify bookings that were already surfaced. Loaded at most once per
// process; a failed read leaves the in-memory state empty for this cycle,
// which errs on the side of notifying nothing.
func (e *SyncEngine) hydrateLocked(ctx context.Context) {
	if !e.hydrated {
		ids, err := e.state.KnownIDs(ctx)
		if err != nil {
			e.log.Error(ctx, "loading known ids failed", "error", err)
		} else {
			if len(e.knownIDs) == 0 {
				e.knownIDs = ids
			}
			e.hydrated = true
		}
	}
	if !e.unreadOK {
		n, err := e.state.UnreadCount(ctx)
		if err != nil {
			e.log.Error(ctx, "loading unread count failed", "error", err)
		} else {
			if e.unread == 0 {
				e.unread = n
			}
			e.unreadOK = true
		}
	}
}

// SetOffline records an external connectivity signal. Fetch outcomes set the
// flag too; this path lets a connectivity listener flip it without waiting
// for a request to fail.
func (e *SyncEngine) SetOffline(offline bool) {
	e.mu.Lock()
	e.offline = offline
	e.mu.Unlock()
}

func (e *SyncEngine) Online() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.offline
}

func (e *SyncEngine) LastSync() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastSync
}

// Bookings returns a copy of the current readable booking list.
func (e *SyncEngine) Bookings() []models.Booking {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.Booking, len(e.list))
	copy(out, e.list)
	return out
}

// BookingByID returns one booking from the current readable list.
func (e *SyncEngine) BookingByID(id string) (*models.Booking, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for i := range e.list {
		if e.list[i].ID == id {
			b := e.list[i]
			return &b, true
		}
	}
	return nil, false
}

// UnreadCount returns the number of arrivals not yet acknowledged. It counts
// observed arrivals, not open bookings, and is reset only by MarkAllRead.
func (e *SyncEngine) UnreadCount(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hydrateLocked(ctx)
	return e.unread
}

// MarkAllRead zeroes the unread counter and persists it immediately. No
// network involved.
func (e *SyncEngine) MarkAllRead(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unread = 0
	e.unreadOK = true
	return e.state.SetUnreadCount(ctx, 0)
}

// UpdateStatus writes the new status to the backend first and only mirrors
// it into the cache once the backend accepted it, so the UI never shows a
// status the server rejected. On failure the cache is untouched and the
// error goes back to the caller, which must not advance its workflow.
func (e *SyncEngine) UpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	if _, err := e.remote.UpdateBookingStatus(ctx, bookingID, status); err != nil {
		return err
	}

	if err := e.cache.UpdateStatus(ctx, bookingID, status); err != nil {
		e.log.Error(ctx, "updating cached booking status failed", "booking", bookingID, "error", err)
	}

	e.mu.Lock()
	for i := range e.list {
		if e.list[i].ID == bookingID {
			e.list[i].Status = status
			break
		}
	}
	e.mu.Unlock()
	return nil
}

// RecordPhoto registers an uploaded photo with the backend and mirrors it
// into the cache. This is the mission controller's write path for photos;
// it never touches the cache directly.
func (e *SyncEngine) RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error) {
	photo, err := e.remote.RecordPhoto(ctx, bookingID, url, kind)
	if err != nil {
		return nil, err
	}

	if err := e.cache.AddPhoto(ctx, bookingID, *photo); err != nil {
		e.log.Error(ctx, "caching booking photo failed", "booking", bookingID, "error", err)
	}

	e.mu.Lock()
	for i := range e.list {
		if e.list[i].ID == bookingID {
			e.list[i].Photos = append(e.list[i].Photos, *photo)
			break
		}
	}
	e.mu.Unlock()
	return photo, nil
}

// LoadCache primes the readable list from the persisted snapshot without
// going to the network, for showing something immediately at startup.
func (e *SyncEngine) LoadCache(ctx context.Context) error {
	cached, err := e.cache.GetAll(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.list = cached
	e.mu.Unlock()
	return nil
}
