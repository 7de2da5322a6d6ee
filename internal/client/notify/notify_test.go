package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/common"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

type recordingSink struct {
	delivered []string
	failFor   map[string]bool
}

func (s *recordingSink) Notify(ctx context.Context, title, body, bookingID string) error {
	if s.failFor[bookingID] {
		return errors.New("channel closed")
	}
	s.delivered = append(s.delivered, bookingID)
	return nil
}

type tokenRemote struct {
	tokens []string
	err    error
}

func (r *tokenRemote) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	return nil, nil
}
func (r *tokenRemote) ListBookings(ctx context.Context) ([]models.Booking, error) { return nil, nil }
func (r *tokenRemote) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.Booking, error) {
	return nil, nil
}
func (r *tokenRemote) RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error) {
	return nil, nil
}
func (r *tokenRemote) SavePushToken(ctx context.Context, technicianID, token string) error {
	if r.err != nil {
		return r.err
	}
	r.tokens = append(r.tokens, token)
	return nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestOnNewBookings_OnePerBooking(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, &tokenRemote{}, testLogger())

	d.OnNewBookings(context.Background(), []models.Booking{
		{ID: "a", FullName: "Nadia K.", Time: "10:00", Address: "Rue 1"},
		{ID: "b", FullName: "Omar B.", Time: "11:00", Address: "Rue 2"},
	})

	assert.ElementsMatch(t, []string{"a", "b"}, sink.delivered)
}

func TestOnNewBookings_SinkFailureDoesNotStopBatch(t *testing.T) {
	sink := &recordingSink{failFor: map[string]bool{"b": true}}
	d := NewDispatcher(sink, &tokenRemote{}, testLogger())

	d.OnNewBookings(context.Background(), []models.Booking{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	})

	assert.ElementsMatch(t, []string{"a", "c"}, sink.delivered)
}

func TestOnNewBookings_EmptyBatchIsSilent(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, &tokenRemote{}, testLogger())

	d.OnNewBookings(context.Background(), nil)

	assert.Empty(t, sink.delivered)
}

func TestRegisterDeliveryChannel_Once(t *testing.T) {
	remote := &tokenRemote{}
	d := NewDispatcher(&recordingSink{}, remote, testLogger())

	d.RegisterDeliveryChannel(context.Background(), "t1")
	d.RegisterDeliveryChannel(context.Background(), "t1")

	require.Len(t, remote.tokens, 1)
	assert.Contains(t, remote.tokens[0], "washpro-device-")
}

func TestRegisterDeliveryChannel_RetriesAfterFailure(t *testing.T) {
	remote := &tokenRemote{err: common.ErrUnavailable}
	d := NewDispatcher(&recordingSink{}, remote, testLogger())

	d.RegisterDeliveryChannel(context.Background(), "t1")
	require.Empty(t, remote.tokens)

	remote.err = nil
	d.RegisterDeliveryChannel(context.Background(), "t1")
	require.Len(t, remote.tokens, 1)
}
