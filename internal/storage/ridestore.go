package storage

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/example/carpool-search/internal/models"
)

var ErrNotFound = errors.New("storage: not found")

// RideStore defines persistence operations for rides and bookings.
type RideStore interface {
	// ListScheduled returns scheduled rides departing at or after the grace
	// cutoff, with driver profile and bookings attached, soonest first.
	ListScheduled(ctx context.Context, notBefore time.Time, limit int) ([]models.Ride, error)
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	SaveRide(ctx context.Context, r *models.Ride) error
	UpdateRideStatus(ctx context.Context, id string, status models.RideStatus) error
	SetDriverArrived(ctx context.Context, id string) error
	SaveBooking(ctx context.Context, b *models.Booking) error
	UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error
}

// cloneRide copies a ride including its bookings so callers never alias
// stored state.
func cloneRide(r *models.Ride) models.Ride {
	cp := *r
	if len(r.Bookings) > 0 {
		cp.Bookings = append([]models.Booking(nil), r.Bookings...)
	}
	return cp
}

// MemoryStore is the in-process RideStore used in tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*models.Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*models.Ride)}
}

func (m *MemoryStore) ListScheduled(ctx context.Context, notBefore time.Time, limit int) ([]models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		if r.Status != models.RideScheduled {
			continue
		}
		if r.DepartureTime.Before(notBefore) {
			continue
		}
		out = append(out, cloneRide(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetRide(ctx context.Context, id string) (*models.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneRide(r)
	return &cp, nil
}

func (m *MemoryStore) SaveRide(ctx context.Context, r *models.Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := cloneRide(r)
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateRideStatus(ctx context.Context, id string, status models.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	return nil
}

func (m *MemoryStore) SetDriverArrived(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[id]
	if !ok {
		return ErrNotFound
	}
	r.DriverArrived = true
	return nil
}

func (m *MemoryStore) SaveBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[b.RideID]
	if !ok {
		return ErrNotFound
	}
	r.Bookings = append(r.Bookings, *b)
	return nil
}

func (m *MemoryStore) UpdateBookingStatus(ctx context.Context, id string, status models.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rides {
		for i := range r.Bookings {
			if r.Bookings[i].ID == id {
				r.Bookings[i].Status = status
				return nil
			}
		}
	}
	return ErrNotFound
}
