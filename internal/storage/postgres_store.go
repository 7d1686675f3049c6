package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/example/carpool-search/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) ListScheduled(ctx context.Context, notBefore time.Time, limit int) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT r.id, r.origin_label, r.destination_label,
		       r.origin_lat, r.origin_lon, r.dest_lat, r.dest_lon,
		       r.departure_time, r.total_seats, r.price_per_seat, r.status, r.driver_arrived,
		       d.id, d.name, d.verified, d.rating
		FROM rides r
		JOIN drivers d ON d.id = r.driver_id
		WHERE r.status = 'scheduled' AND r.departure_time >= $1
		ORDER BY r.departure_time ASC
		LIMIT $2`, notBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []models.Ride
	var ids []string
	byID := map[string]int{}
	for rows.Next() {
		var r models.Ride
		var oLat, oLon, dLat, dLon sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.OriginLabel, &r.DestinationLabel,
			&oLat, &oLon, &dLat, &dLon,
			&r.DepartureTime, &r.TotalSeats, &r.PricePerSeat, &r.Status, &r.DriverArrived,
			&r.Driver.ID, &r.Driver.Name, &r.Driver.Verified, &r.Driver.Rating); err != nil {
			return nil, err
		}
		if oLat.Valid && oLon.Valid {
			r.Origin = &models.Coordinates{Lat: oLat.Float64, Lon: oLon.Float64}
		}
		if dLat.Valid && dLon.Valid {
			r.Destination = &models.Coordinates{Lat: dLat.Float64, Lon: dLon.Float64}
		}
		byID[r.ID] = len(rides)
		ids = append(ids, r.ID)
		rides = append(rides, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return rides, nil
	}

	brows, err := p.db.QueryContext(ctx, `
		SELECT id, ride_id, rider_id, seats, status, amount_minor, payment_ref, created_at
		FROM bookings
		WHERE ride_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var b models.Booking
		if err := brows.Scan(&b.ID, &b.RideID, &b.RiderID, &b.Seats, &b.Status, &b.AmountMinor, &b.PaymentRef, &b.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := byID[b.RideID]; ok {
			rides[i].Bookings = append(rides[i].Bookings, b)
		}
	}
	return rides, brows.Err()
}

func (p *PostgresStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT r.id, r.origin_label, r.destination_label,
		       r.origin_lat, r.origin_lon, r.dest_lat, r.dest_lon,
		       r.departure_time, r.total_seats, r.price_per_seat, r.status, r.driver_arrived,
		       d.id, d.name, d.verified, d.rating
		FROM rides r
		JOIN drivers d ON d.id = r.driver_id
		WHERE r.id = $1`, id)

	var r models.Ride
	var oLat, oLon, dLat, dLon sql.NullFloat64
	err := row.Scan(&r.ID, &r.OriginLabel, &r.DestinationLabel,
		&oLat, &oLon, &dLat, &dLon,
		&r.DepartureTime, &r.TotalSeats, &r.PricePerSeat, &r.Status, &r.DriverArrived,
		&r.Driver.ID, &r.Driver.Name, &r.Driver.Verified, &r.Driver.Rating)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if oLat.Valid && oLon.Valid {
		r.Origin = &models.Coordinates{Lat: oLat.Float64, Lon: oLon.Float64}
	}
	if dLat.Valid && dLon.Valid {
		r.Destination = &models.Coordinates{Lat: dLat.Float64, Lon: dLon.Float64}
	}

	brows, err := p.db.QueryContext(ctx, `
		SELECT id, ride_id, rider_id, seats, status, amount_minor, payment_ref, created_at
		FROM bookings WHERE ride_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer brows.Close()
	for brows.Next() {
		var b models.Booking
		if err := brows.Scan(&b.ID, &b.RideID, &b.RiderID, &b.Seats, &b.Status, &b.AmountMinor, &b.PaymentRef, &b.CreatedAt); err != nil {
			return nil, err
		}
		r.Bookings = append(r.Bookings, b)
	}
	return &r, brows.Err()
}

func (p *PostgresStore) SaveRide(ctx context.Context, r *models.Ride) error {
	var oLat, oLon, dLat, dLon interface{}
	if r.Origin != nil {
		oLat, oLon = r.Origin.Lat, r.Origin.Lon
	}
	if r.Destination != nil {
		dLat, dLon = r.Destination.Lat, r.Destination.Lon
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rides(id, driver_id, origin_label, destination_label,
		                  origin_lat, origin_lon, dest_lat, dest_lon,
		                  departure_time, total_seats, price_per_seat, status, driver_arrived)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		r.ID, r.Driver.ID, r.OriginLabel, r.DestinationLabel,
		oLat, oLon, dLat, dLon,
		r.DepartureTime, r.TotalSeats, r.PricePerSeat, r.Status, r.DriverArrived)
	return err
}

func (p *PostgresStore) UpdateRideStatus(ctx context.Context, id string, status models.RideStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET status=$1, updated_at=$2 WHERE id=$3`,
		status, time.Now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *PostgresStore) SetDriverArrived(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET driver_arrived=TRUE, updated_at=$1 WHERE id=$2`,
		time.Now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func (p *PostgresStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bookings(id, ride_id, rider_id, seats, status, amount_minor, payment_ref, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		b.ID, b.RideID, b.RiderID, b.Seats, b.Status, b.AmountMinor, b.PaymentRef, b.CreatedAt)
	return err
}

func (p *PostgresStore) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bookings SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// checkAffected maps a zero-row update to ErrNotFound so the Postgres and
// memory stores report missing rows the same way.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }
