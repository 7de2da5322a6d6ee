package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/common"
)

// RESTClient is the HTTP implementation of Client.
type RESTClient struct {
	baseURL  string
	adminKey string
	http     *http.Client
}

var _ Client = (*RESTClient)(nil)

func NewRESTClient(baseURL, adminKey string) *RESTClient {
	return &RESTClient{
		baseURL:  baseURL,
		adminKey: adminKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// do runs one JSON request. Failures are mapped onto the common sentinels:
// transport problems and 5xx become ErrUnavailable, 4xx becomes ErrRejected
// (ErrUnauthorized for 401/403).
func (c *RESTClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.AdminKeyHeaderName, c.adminKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s: %s", common.ErrUnauthorized, method, path, resp.Status)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s: %s", common.ErrUnavailable, method, path, resp.Status)
	case resp.StatusCode >= 400:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: %s: %s", common.ErrRejected, method, path, resp.Status, string(b))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", common.ErrUnavailable, err)
	}
	return nil
}

// The admin API wraps collection responses in an envelope:
// { "success": true, "bookings": [...] }.
type bookingsEnvelope struct {
	Success  bool             `json:"success"`
	Bookings []models.Booking `json:"bookings"`
}

type techniciansEnvelope struct {
	Success     bool                `json:"success"`
	Technicians []models.Technician `json:"technicians"`
}

func (c *RESTClient) ListTechnicians(ctx context.Context) ([]models.Technician, error) {
	var env techniciansEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/admin/technicians", nil, &env); err != nil {
		return nil, err
	}
	return env.Technicians, nil
}

func (c *RESTClient) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var env bookingsEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/admin/bookings", nil, &env); err != nil {
		return nil, err
	}
	return env.Bookings, nil
}

func (c *RESTClient) UpdateBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus) (*models.Booking, error) {
	payload := map[string]any{"bookingId": bookingID, "status": status}
	var booking models.Booking
	if err := c.do(ctx, http.MethodPut, "/api/admin/bookings", payload, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *RESTClient) RecordPhoto(ctx context.Context, bookingID, url string, kind models.PhotoKind) (*models.BookingPhoto, error) {
	payload := map[string]any{"bookingId": bookingID, "url": url, "type": kind}
	var photo models.BookingPhoto
	if err := c.do(ctx, http.MethodPost, "/api/bookings/photos", payload, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *RESTClient) SavePushToken(ctx context.Context, technicianID, token string) error {
	payload := map[string]any{"technicianId": technicianID, "token": token}
	return c.do(ctx, http.MethodPost, "/api/technicians/push-token", payload, nil)
}
