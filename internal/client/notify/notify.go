// Package notify turns newly-arrived bookings into device notifications and
// handles push-token registration with the backend.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeroeau/washpro-technician/internal/client/api"
	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/logging"
)

// Sink delivers one notification to the device. Implementations wrap
// whatever the platform offers (local notification center, a terminal bell,
// a log line).
type Sink interface {
	Notify(ctx context.Context, title, body string, bookingID string) error
}

// Dispatcher emits one notification per genuinely-new booking. The sync
// engine commits new ids to the known-id set before handing them over, so a
// crash between commit and delivery loses the notification rather than
// duplicating it on the next sync.
type Dispatcher struct {
	sink   Sink
	remote api.Client
	log    logging.Logger

	registered bool
}

func NewDispatcher(sink Sink, remote api.Client, log logging.Logger) *Dispatcher {
	return &Dispatcher{sink: sink, remote: remote, log: log}
}

// OnNewBookings emits one notification for each booking in the batch. Order
// within a batch carries no meaning. A sink failure for one booking does not
// stop delivery of the rest.
func (d *Dispatcher) OnNewBookings(ctx context.Context, fresh []models.Booking) {
	for _, b := range fresh {
		title := "Nouvelle mission assignée"
		body := fmt.Sprintf("%s · %s\n%s", b.FullName, b.Time, b.Address)
		if err := d.sink.Notify(ctx, title, body, b.ID); err != nil {
			d.log.Warn(ctx, "notification delivery failed", "booking", b.ID, "error", err)
		}
	}
}

// RegisterDeliveryChannel obtains a delivery token for this device and hands
// it to the technician's server-side record, once per session. Failure is
// logged and never fatal; sync does not depend on it.
func (d *Dispatcher) RegisterDeliveryChannel(ctx context.Context, technicianID string) {
	if d.registered {
		return
	}
	token := "washpro-device-" + uuid.NewString()
	if err := d.remote.SavePushToken(ctx, technicianID, token); err != nil {
		d.log.Warn(ctx, "push token registration failed", "technician", technicianID, "error", err)
		return
	}
	d.registered = true
	d.log.Info(ctx, "push token registered", "technician", technicianID)
}

// LogSink writes notifications to the logger. It stands in on platforms
// without a notification center.
type LogSink struct {
	Log logging.Logger
}

func (s *LogSink) Notify(ctx context.Context, title, body, bookingID string) error {
	s.Log.Info(ctx, "notification", "title", title, "body", body, "booking", bookingID)
	return nil
}
