// Package bookings persists the local snapshot of the technician's assigned
// booking list. The snapshot is replaced wholesale on every successful sync;
// between syncs it is the only readable state when the backend is down.
package bookings

import (
	"context"

	"github.com/zeroeau/washpro-technician/internal/client/models"
)

type Repository interface {
	// ReplaceAll atomically swaps the entire cached list for the given one.
	ReplaceAll(ctx context.Context, list []models.Booking) error

	// GetAll returns the cached list ordered by received_at, newest first.
	GetAll(ctx context.Context) ([]models.Booking, error)

	// GetByID returns one cached booking with its photos, or
	// common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// UpdateStatus rewrites the cached status of one booking.
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error

	// AddPhoto appends a photo record to a cached booking.
	AddPhoto(ctx context.Context, bookingID string, photo models.BookingPhoto) error
}
