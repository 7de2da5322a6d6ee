package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zeroeau/washpro-technician/internal/client/location"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/client/upload"
	"github.com/zeroeau/washpro-technician/internal/common"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// Step is the position of a mission session in the on-site workflow.
type Step int

const (
	StepTravel Step = iota
	StepPhotosBefore
	StepPhotosAfter
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepTravel:
		return "travel"
	case StepPhotosBefore:
		return "photos-before"
	case StepPhotosAfter:
		return "photos-after"
	case StepDone:
		return "done"
	}
	return "unknown"
}

// BookingWriter is the slice of the sync engine the mission session mutates
// bookings through. The session never touches the cache directly.
type BookingWriter interface {
	UpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) error
	RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error)
}

// MissionSession is the ephemeral workflow state of one opened booking. It
// exists only while the mission screen is open; reopening re-derives the
// step from the booking's persisted status and photos, never from memory.
//
// Workflow: travel → before-photos → after-photos → done. Each photo phase
// has a fixed number of slots that must all hold an image before the forward
// transition unlocks, and each forward transition past the photo phases is
// additionally gated on the backend accepting the status change.
type MissionSession struct {
	booking  models.Booking
	writer   BookingWriter
	uploader upload.Uploader
	sampler  location.Sampler
	log      logging.Logger

	// OnUploadError, when set, receives upload failures for display. The
	// failed slot keeps its local preview and stays re-capturable.
	OnUploadError func(kind models.PhotoKind, slot int, err error)

	mu       sync.Mutex
	step     Step
	before   [common.PhotoSlotCount]string
	after    [common.PhotoSlotCount]string
	distance string
	position *models.Location

	watchCancel context.CancelFunc
	watchDone   chan struct{}

	inFlight atomic.Int32
	uploads  sync.WaitGroup
}

// NewMissionSession opens a session for the booking. The step comes from the
// persisted status: a completed booking reopens directly in the done step, a
// booking in progress reopens at after-photos, anything else starts at
// travel. Photo slots are refilled from the booking's persisted photos in
// arrival order.
func NewMissionSession(booking models.Booking, writer BookingWriter, uploader upload.Uploader, sampler location.Sampler, log logging.Logger) *MissionSession {
	s := &MissionSession{
		booking:  booking,
		writer:   writer,
		uploader: uploader,
		sampler:  sampler,
		log:      log,
		distance: "...",
	}

	switch booking.Status {
	case models.StatusCompleted:
		s.step = StepDone
	case models.StatusInProgress:
		s.step = StepPhotosAfter
	default:
		s.step = StepTravel
	}

	fillSlots(&s.before, booking.PhotosOfKind(models.PhotoBefore))
	fillSlots(&s.after, booking.PhotosOfKind(models.PhotoAfter))
	return s
}

func fillSlots(slots *[common.PhotoSlotCount]string, photos []models.BookingPhoto) {
	for i, p := range photos {
		if i >= len(slots) {
			break
		}
		slots[i] = p.URL
	}
}

func (s *MissionSession) Booking() models.Booking { return s.booking }

func (s *MissionSession) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// StartTravel begins live location sampling. Valid only in the travel step.
// Each sample recomputes the distance label to the booking's destination;
// bookings without coordinates show no distance. Sampling stops when the
// travel step is exited or the session closes, and no sample landing after
// teardown mutates the session.
func (s *MissionSession) StartTravel(ctx context.Context) error {
	s.mu.Lock()
	if s.step != StepTravel {
		s.mu.Unlock()
		return fmt.Errorf("start travel in step %s: %w", s.step, common.ErrInvalidStep)
	}
	if s.watchCancel != nil {
		s.mu.Unlock()
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel
	s.watchDone = make(chan struct{})
	s.mu.Unlock()

	samples, err := s.sampler.Watch(watchCtx)
	if err != nil {
		s.mu.Lock()
		s.watchCancel = nil
		close(s.watchDone)
		s.mu.Unlock()
		cancel()
		// A denied permission degrades the distance display, nothing else.
		s.log.Warn(ctx, "location sampling unavailable", "booking", s.booking.ID, "error", err)
		return err
	}

	go func() {
		defer close(s.watchDone)
		for loc := range samples {
			s.observePosition(watchCtx, loc)
		}
	}()
	return nil
}

func (s *MissionSession) observePosition(watchCtx context.Context, loc models.Location) {
	if watchCtx.Err() != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.position = &loc
	if !s.booking.HasCoordinates() {
		s.distance = "—"
		return
	}
	km := location.Distance(loc.Latitude, loc.Longitude, s.booking.Latitude, s.booking.Longitude)
	s.distance = location.FormatDistance(km)
}

// DistanceLabel returns the latest formatted distance to the destination.
func (s *MissionSession) DistanceLabel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distance
}

func (s *MissionSession) stopTravelLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
}

// BeginPhotos moves from travel to the before-photos step on the
// technician's action. No gating condition; it only tears down sampling.
func (s *MissionSession) BeginPhotos() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.step != StepTravel {
		return fmt.Errorf("begin photos in step %s: %w", s.step, common.ErrInvalidStep)
	}
	s.stopTravelLocked()
	s.step = StepPhotosBefore
	return nil
}

// Photos returns the slot contents for one phase.
func (s *MissionSession) Photos(kind models.PhotoKind) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.slotsFor(kind)
	out := make([]string, len(slots))
	copy(out, slots[:])
	return out
}

func (s *MissionSession) slotsFor(kind models.PhotoKind) *[common.PhotoSlotCount]string {
	if kind == models.PhotoBefore {
		return &s.before
	}
	return &s.after
}

// PhotosComplete reports whether every slot of the phase holds an image.
func (s *MissionSession) PhotosComplete(kind models.PhotoKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.slotsFor(kind) {
		if slot == "" {
			return false
		}
	}
	return true
}

// CapturePhoto stores a captured image in a slot. The local preview shows
// immediately; the upload and the backend photo record happen in the
// background without blocking further captures or navigation. An upload
// failure is surfaced through OnUploadError but keeps the preview and never
// rolls anything back; each slot's upload is independent and there is no
// automatic retry.
func (s *MissionSession) CapturePhoto(ctx context.Context, kind models.PhotoKind, slot int, localRef string, data []byte, contentType string) error {
	if slot < 0 || slot >= common.PhotoSlotCount {
		return fmt.Errorf("photo slot %d out of range", slot)
	}

	s.mu.Lock()
	switch {
	case kind == models.PhotoBefore && s.step != StepPhotosBefore:
		s.mu.Unlock()
		return fmt.Errorf("before-photo in step %s: %w", s.step, common.ErrInvalidStep)
	case kind == models.PhotoAfter && s.step != StepPhotosAfter:
		s.mu.Unlock()
		return fmt.Errorf("after-photo in step %s: %w", s.step, common.ErrInvalidStep)
	}
	s.slotsFor(kind)[slot] = localRef
	s.mu.Unlock()

	// The upload must survive the capture call and the screen closing.
	uploadCtx := context.WithoutCancel(ctx)

	s.inFlight.Add(1)
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		defer s.inFlight.Add(-1)

		url, err := s.uploader.Upload(uploadCtx, data, contentType)
		if err == nil {
			_, err = s.writer.RecordPhoto(uploadCtx, s.booking.ID, url, kind)
		}
		if err != nil {
			s.log.Warn(uploadCtx, "photo upload failed", "booking", s.booking.ID, "kind", kind, "slot", slot, "error", err)
			if s.OnUploadError != nil {
				s.OnUploadError(kind, slot, err)
			}
		}
	}()
	return nil
}

// InFlightUploads returns the number of photo uploads still running.
func (s *MissionSession) InFlightUploads() int {
	return int(s.inFlight.Load())
}

// StartWork transitions before-photos → after-photos. It requires every
// before slot to be filled and the backend to accept the IN_PROGRESS status;
// if either fails the session stays in before-photos and the error is
// returned for the technician to retry.
func (s *MissionSession) StartWork(ctx context.Context) error {
	s.mu.Lock()
	if s.step != StepPhotosBefore {
		s.mu.Unlock()
		return fmt.Errorf("start work in step %s: %w", s.step, common.ErrInvalidStep)
	}
	for _, slot := range s.before {
		if slot == "" {
			s.mu.Unlock()
			return fmt.Errorf("before photos: %w", common.ErrPhotosIncomplete)
		}
	}
	s.mu.Unlock()

	if err := s.writer.UpdateStatus(ctx, s.booking.ID, models.StatusInProgress); err != nil {
		return err
	}

	s.mu.Lock()
	s.booking.Status = models.StatusInProgress
	s.step = StepPhotosAfter
	s.mu.Unlock()
	return nil
}

// Finish transitions after-photos → done. It requires every after slot to be
// filled and the backend to accept the COMPLETED status; on failure the
// session stays in after-photos.
func (s *MissionSession) Finish(ctx context.Context) error {
	s.mu.Lock()
	if s.step != StepPhotosAfter {
		s.mu.Unlock()
		return fmt.Errorf("finish in step %s: %w", s.step, common.ErrInvalidStep)
	}
	for _, slot := range s.after {
		if slot == "" {
			s.mu.Unlock()
			return fmt.Errorf("after photos: %w", common.ErrPhotosIncomplete)
		}
	}
	s.mu.Unlock()

	if err := s.writer.UpdateStatus(ctx, s.booking.ID, models.StatusCompleted); err != nil {
		return err
	}

	s.mu.Lock()
	s.booking.Status = models.StatusCompleted
	s.step = StepDone
	s.mu.Unlock()
	return nil
}

// Close tears down location sampling. In-flight uploads keep running; they
// do not belong to the screen.
func (s *MissionSession) Close() {
	s.mu.Lock()
	s.stopTravelLocked()
	done := s.watchDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// DrainUploads blocks until all background uploads have finished. Intended
// for shutdown paths and tests.
func (s *MissionSession) DrainUploads() {
	s.uploads.Wait()
}
