// Package api talks to the WashPro dispatch backend. The backend exposes a
// plain JSON admin API authenticated with a service key header; there is no
// delta endpoint, bookings are always returned as the full current list.
package api

import (
	"context"

	"github.com/zeroeau/washpro-technician/internal/client/models"
)

// Client is the remote dispatch API as the rest of the client sees it.
type Client interface {
	// ListTechnicians returns the full technician roster.
	ListTechnicians(ctx context.Context) ([]models.Technician, error)

	// ListBookings returns the full current booking list for the account,
	// all technicians included. Filtering happens client-side.
	ListBookings(ctx context.Context) ([]models.Booking, error)

	// UpdateBookingStatus writes a new status for one booking and returns
	// the updated booking on success.
	UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.Booking, error)

	// RecordPhoto attaches an uploaded photo URL to a booking.
	RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error)

	// SavePushToken hands a delivery token to the technician's server-side
	// record.
	SavePushToken(ctx context.Context, technicianID, token string) error
}
