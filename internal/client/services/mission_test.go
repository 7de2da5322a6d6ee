package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/common"
)

type fakeWriter struct {
	mu        sync.Mutex
	statuses  []models.BookingStatus
	statusErr error
	photos    []string
	photoErr  error
}

func (f *fakeWriter) UpdateStatus(ctx context.Context, bookingID string, status models.BookingStatus) error {
	if f.statusErr != nil {
		return f.statusErr
	}
	f.mu.Lock()
	f.statuses = append(f.statuses, status)
	f.mu.Unlock()
	return nil
}

func (f *fakeWriter) RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return nil, f.photoErr
	}
	f.photos = append(f.photos, url)
	return &models.BookingPhoto{ID: "p", URL: url, Kind: kind}, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	uploads int
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn/photo.jpg", nil
}

type fakeSampler struct {
	samples []models.Location
	err     error
}

func (f *fakeSampler) Watch(ctx context.Context) (<-chan models.Location, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan models.Location)
	go func() {
		defer close(out)
		for _, s := range f.samples {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func newSession(t *testing.T, b models.Booking, w *fakeWriter, u *fakeUploader) *MissionSession {
	t.Helper()
	if w == nil {
		w = &fakeWriter{}
	}
	if u == nil {
		u = &fakeUploader{}
	}
	return NewMissionSession(b, w, u, &fakeSampler{}, testLogger())
}

func mission(status models.BookingStatus) models.Booking {
	return models.Booking{
		ID:        "m1",
		FullName:  "Client",
		Status:    status,
		Latitude:  33.5731,
		Longitude: -7.5898,
	}
}

func fillPhase(t *testing.T, s *MissionSession, kind models.PhotoKind, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.CapturePhoto(context.Background(), kind, i, "local.jpg", []byte("img"), "image/jpeg"))
	}
	s.DrainUploads()
}

func TestSession_StepDerivedFromPersistedStatus(t *testing.T) {
	tests := []struct {
		status models.BookingStatus
		want   Step
	}{
		{models.StatusPending, StepTravel},
		{models.StatusConfirmed, StepTravel},
		{models.StatusInProgress, StepPhotosAfter},
		{models.StatusCompleted, StepDone},
	}
	for _, tc := range tests {
		s := newSession(t, mission(tc.status), nil, nil)
		assert.Equal(t, tc.want, s.Step(), "status %s", tc.status)
	}
}

func TestSession_CompletedWithPhotosReopensDone(t *testing.T) {
	b := mission(models.StatusCompleted)
	for i := 0; i < 5; i++ {
		b.Photos = append(b.Photos,
			models.BookingPhoto{ID: "b" + string(rune('0'+i)), URL: "u", Kind: models.PhotoBefore},
			models.BookingPhoto{ID: "a" + string(rune('0'+i)), URL: "u", Kind: models.PhotoAfter},
		)
	}
	s := newSession(t, b, nil, nil)
	assert.Equal(t, StepDone, s.Step(), "never travel for a completed mission")
	assert.True(t, s.PhotosComplete(models.PhotoBefore))
	assert.True(t, s.PhotosComplete(models.PhotoAfter))
}

func TestSession_SlotsRefilledFromPersistedPhotos(t *testing.T) {
	b := mission(models.StatusConfirmed)
	b.Photos = []models.BookingPhoto{
		{ID: "1", URL: "u1", Kind: models.PhotoBefore},
		{ID: "2", URL: "u2", Kind: models.PhotoBefore},
	}
	s := newSession(t, b, nil, nil)
	photos := s.Photos(models.PhotoBefore)
	assert.Equal(t, "u1", photos[0])
	assert.Equal(t, "u2", photos[1])
	assert.False(t, s.PhotosComplete(models.PhotoBefore))
}

func TestSession_StartWorkGatedOnSlots(t *testing.T) {
	w := &fakeWriter{}
	s := newSession(t, mission(models.StatusConfirmed), w, nil)
	require.NoError(t, s.BeginPhotos())

	fillPhase(t, s, models.PhotoBefore, 4)
	err := s.StartWork(context.Background())
	require.ErrorIs(t, err, common.ErrPhotosIncomplete)
	assert.Equal(t, StepPhotosBefore, s.Step())
	assert.Empty(t, w.statuses, "no remote call before the slots are full")

	fillPhase(t, s, models.PhotoBefore, 5)
	require.NoError(t, s.StartWork(context.Background()))
	assert.Equal(t, StepPhotosAfter, s.Step())
	assert.Equal(t, []models.BookingStatus{models.StatusInProgress}, w.statuses)
}

func TestSession_StartWorkBlockedByRemoteRejection(t *testing.T) {
	w := &fakeWriter{statusErr: common.ErrRejected}
	s := newSession(t, mission(models.StatusConfirmed), w, nil)
	require.NoError(t, s.BeginPhotos())
	fillPhase(t, s, models.PhotoBefore, 5)

	err := s.StartWork(context.Background())
	require.ErrorIs(t, err, common.ErrRejected)
	assert.Equal(t, StepPhotosBefore, s.Step(), "no silent advance on rejection")
}

func TestSession_FinishGatedOnSlotsAndRemote(t *testing.T) {
	w := &fakeWriter{}
	s := newSession(t, mission(models.StatusInProgress), w, nil)
	require.Equal(t, StepPhotosAfter, s.Step())

	err := s.Finish(context.Background())
	require.ErrorIs(t, err, common.ErrPhotosIncomplete)

	fillPhase(t, s, models.PhotoAfter, 5)

	w.statusErr = common.ErrRejected
	err = s.Finish(context.Background())
	require.ErrorIs(t, err, common.ErrRejected)
	assert.Equal(t, StepPhotosAfter, s.Step())

	w.statusErr = nil
	require.NoError(t, s.Finish(context.Background()))
	assert.Equal(t, StepDone, s.Step())
}

func TestSession_CaptureRejectedOutsidePhotoSteps(t *testing.T) {
	s := newSession(t, mission(models.StatusConfirmed), nil, nil)
	err := s.CapturePhoto(context.Background(), models.PhotoBefore, 0, "x", nil, "")
	assert.ErrorIs(t, err, common.ErrInvalidStep, "travel step takes no photos")

	err = s.CapturePhoto(context.Background(), models.PhotoAfter, 0, "x", nil, "")
	assert.ErrorIs(t, err, common.ErrInvalidStep)
}

func TestSession_InFlightCounterTracksUploads(t *testing.T) {
	u := &fakeUploader{block: make(chan struct{})}
	s := newSession(t, mission(models.StatusInProgress), &fakeWriter{}, u)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CapturePhoto(context.Background(), models.PhotoAfter, i, "x.jpg", []byte("img"), "image/jpeg"))
	}

	require.Eventually(t, func() bool { return s.InFlightUploads() == 3 },
		time.Second, 5*time.Millisecond)

	close(u.block)
	s.DrainUploads()
	assert.Equal(t, 0, s.InFlightUploads(), "counter decrements on every exit path")
}

func TestSession_UploadFailureKeepsPreviewAndCounter(t *testing.T) {
	u := &fakeUploader{err: common.ErrUploadFailed}
	s := newSession(t, mission(models.StatusInProgress), &fakeWriter{}, u)

	var mu sync.Mutex
	var failures []int
	s.OnUploadError = func(kind models.PhotoKind, slot int, err error) {
		mu.Lock()
		failures = append(failures, slot)
		mu.Unlock()
	}

	require.NoError(t, s.CapturePhoto(context.Background(), models.PhotoAfter, 0, "local.jpg", []byte("img"), "image/jpeg"))
	s.DrainUploads()

	assert.Equal(t, 0, s.InFlightUploads())
	assert.Equal(t, []int{0}, failures)
	assert.Equal(t, "local.jpg", s.Photos(models.PhotoAfter)[0], "local preview survives a failed upload")

	// The failed slot does not block further captures.
	u.err = nil
	require.NoError(t, s.CapturePhoto(context.Background(), models.PhotoAfter, 1, "next.jpg", []byte("img"), "image/jpeg"))
	s.DrainUploads()
}

func TestSession_RecordPhotoFailureSurfacedNotFatal(t *testing.T) {
	w := &fakeWriter{photoErr: common.ErrUnavailable}
	s := newSession(t, mission(models.StatusInProgress), w, &fakeUploader{})

	var got error
	var mu sync.Mutex
	s.OnUploadError = func(kind models.PhotoKind, slot int, err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	}

	require.NoError(t, s.CapturePhoto(context.Background(), models.PhotoAfter, 0, "local.jpg", []byte("img"), "image/jpeg"))
	s.DrainUploads()

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, got, common.ErrUnavailable)
}

func TestSession_TravelDistanceUpdatesAndTeardown(t *testing.T) {
	sampler := &fakeSampler{samples: []models.Location{
		{Latitude: 33.5731, Longitude: -7.5898},
	}}
	s := NewMissionSession(mission(models.StatusConfirmed), &fakeWriter{}, &fakeUploader{}, sampler, testLogger())

	require.NoError(t, s.StartTravel(context.Background()))
	require.Eventually(t, func() bool { return s.DistanceLabel() == "0 m" },
		time.Second, 5*time.Millisecond, "same point formats as 0 m")

	require.NoError(t, s.BeginPhotos())
	assert.Equal(t, StepPhotosBefore, s.Step())

	label := s.DistanceLabel()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, label, s.DistanceLabel(), "no sample mutates state after teardown")
}

func TestSession_TravelWithoutCoordinatesShowsNoDistance(t *testing.T) {
	b := mission(models.StatusConfirmed)
	b.Latitude, b.Longitude = 0, 0
	sampler := &fakeSampler{samples: []models.Location{{Latitude: 1, Longitude: 1}}}
	s := NewMissionSession(b, &fakeWriter{}, &fakeUploader{}, sampler, testLogger())

	require.NoError(t, s.StartTravel(context.Background()))
	require.Eventually(t, func() bool { return s.DistanceLabel() == "—" },
		time.Second, 5*time.Millisecond)
	s.Close()
}

func TestSession_LocationPermissionDeniedDegrades(t *testing.T) {
	sampler := &fakeSampler{err: common.ErrPermissionDenied}
	s := NewMissionSession(mission(models.StatusConfirmed), &fakeWriter{}, &fakeUploader{}, sampler, testLogger())

	err := s.StartTravel(context.Background())
	require.ErrorIs(t, err, common.ErrPermissionDenied)

	// The rest of the workflow is unaffected.
	require.NoError(t, s.BeginPhotos())
	assert.Equal(t, StepPhotosBefore, s.Step())
}

func TestSession_BeginPhotosOnlyFromTravel(t *testing.T) {
	s := newSession(t, mission(models.StatusInProgress), nil, nil)
	err := s.BeginPhotos()
	assert.True(t, errors.Is(err, common.ErrInvalidStep))
}
