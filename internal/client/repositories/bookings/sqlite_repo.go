package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zeroeau/washpro-technician/internal/client/models"
	"github.com/zeroeau/washpro-technician/internal/common"
	"github.com/zeroeau/washpro-technician/internal/dbx"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const bookingColumns = `id, full_name, phone, vehicle_type, vehicle_brand, vehicle_model,
	service_tier, amount, address, latitude, longitude, date, time, status, technician_id, received_at`

func (r *SQLiteRepository) ReplaceAll(ctx context.Context, list []models.Booking) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM booking_photos`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
			return err
		}

		for _, b := range list {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bookings (`+bookingColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				b.ID, b.FullName, b.Phone, b.VehicleType, b.VehicleBrand, b.VehicleModel,
				b.ServiceTier, b.Amount, b.Address, b.Latitude, b.Longitude,
				b.Date, b.Time, string(b.Status), b.TechnicianID, b.ReceivedAt.Format(time.RFC3339))
			if err != nil {
				return err
			}
			for _, p := range b.Photos {
				if err := insertPhoto(ctx, tx, b.ID, p); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: replacing booking snapshot: %v", common.ErrStorage, err)
	}
	return nil
}

func insertPhoto(ctx context.Context, tx dbx.DBTX, bookingID string, p models.BookingPhoto) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO booking_photos (id, booking_id, url, kind, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, bookingID, p.URL, string(p.Kind), p.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings ORDER BY received_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting bookings: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating bookings: %v", common.ErrStorage, err)
	}

	for i := range result {
		photos, err := r.photosFor(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Photos = photos
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)

	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", id, common.ErrNotFound)
		}
		return nil, err
	}

	photos, err := r.photosFor(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Photos = photos
	return b, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("%w: updating booking status: %v", common.ErrStorage, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrStorage, err)
	}
	if n == 0 {
		return fmt.Errorf("booking %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AddPhoto(ctx context.Context, bookingID string, photo models.BookingPhoto) error {
	if err := insertPhoto(ctx, r.db, bookingID, photo); err != nil {
		return fmt.Errorf("%w: inserting photo: %v", common.ErrStorage, err)
	}
	return nil
}

func (r *SQLiteRepository) photosFor(ctx context.Context, bookingID string) ([]models.BookingPhoto, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, url, kind, created_at FROM booking_photos
		WHERE booking_id = ? ORDER BY created_at, id`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: selecting photos: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var photos []models.BookingPhoto
	for rows.Next() {
		var p models.BookingPhoto
		var kind, createdAt string
		if err := rows.Scan(&p.ID, &p.URL, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scanning photo: %v", common.ErrStorage, err)
		}
		p.Kind = models.PhotoKind(kind)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating photos: %v", common.ErrStorage, err)
	}
	return photos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var status, receivedAt string
	err := row.Scan(&b.ID, &b.FullName, &b.Phone, &b.VehicleType, &b.VehicleBrand,
		&b.VehicleModel, &b.ServiceTier, &b.Amount, &b.Address, &b.Latitude,
		&b.Longitude, &b.Date, &b.Time, &status, &b.TechnicianID, &receivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: scanning booking: %v", common.ErrStorage, err)
	}
	b.Status = models.BookingStatus(status)
	b.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt)
	return b, nil
}
