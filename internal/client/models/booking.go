// Package models defines the client-side data model: bookings assigned to a
// technician, their photos, and supporting records. Field names follow the
// dispatch API's JSON payloads.
package models

import "time"

// BookingStatus is the lifecycle status of a booking as the backend sees it.
type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusInProgress BookingStatus = "IN_PROGRESS"
	StatusCompleted  BookingStatus = "COMPLETED"
	StatusCancelled  BookingStatus = "CANCELLED"
)

// PhotoKind distinguishes the two photo phases of a mission.
type PhotoKind string

const (
	PhotoBefore PhotoKind = "BEFORE"
	PhotoAfter  PhotoKind = "AFTER"
)

// BookingPhoto is one uploaded photo attached to a booking, ordered by
// arrival (CreatedAt).
type BookingPhoto struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      PhotoKind `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// Booking is one scheduled service engagement. ID is assigned by the backend
// and is the sole identity key for cache merges and new-arrival detection.
type Booking struct {
	ID           string         `json:"id"`
	FullName     string         `json:"fullName"`
	Phone        string         `json:"phone"`
	VehicleType  string         `json:"vehicleType"`
	VehicleBrand string         `json:"vehicleBrand"`
	VehicleModel string         `json:"vehicleModel"`
	ServiceTier  string         `json:"serviceTier"`
	Amount       float64        `json:"amount"`
	Address      string         `json:"address"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Date         string         `json:"date"`
	Time         string         `json:"time"`
	Status       BookingStatus  `json:"status"`
	TechnicianID string         `json:"technicianId"`
	ReceivedAt   time.Time      `json:"receivedAt"`
	Photos       []BookingPhoto `json:"photos"`
}

// HasCoordinates reports whether the booking carries a usable destination.
// The backend sends null island (0,0) when the customer address was never
// geocoded.
func (b *Booking) HasCoordinates() bool {
	return b.Latitude != 0 || b.Longitude != 0
}

// PhotosOfKind returns the booking's photos of one kind, preserving arrival
// order.
func (b *Booking) PhotosOfKind(kind PhotoKind) []BookingPhoto {
	var out []BookingPhoto
	for _, p := range b.Photos {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// IsActive reports whether the booking still needs work from the technician.
func (b *Booking) IsActive() bool {
	switch b.Status {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}
