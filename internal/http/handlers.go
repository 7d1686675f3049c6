package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/carpool-search/internal/dispatch"
	"github.com/example/carpool-search/internal/fare"
	"github.com/example/carpool-search/internal/models"
	"github.com/example/carpool-search/internal/observability"
	"github.com/example/carpool-search/internal/payments"
	"github.com/example/carpool-search/internal/routing"
	"github.com/example/carpool-search/internal/search"
	"github.com/example/carpool-search/internal/storage"
)

// EventPublisher pushes domain events onto the message bus; optional.
type EventPublisher interface {
	PublishBooking(b *models.Booking) error
	PublishRideUpdate(r *models.Ride) error
}

// Deps are the collaborators the API server needs. Everything is injected so
// tests can substitute fakes; nil optional deps degrade to no-ops.
type Deps struct {
	Logger   *slog.Logger
	Store    storage.RideStore
	Search   *search.Service
	Router   routing.Client
	Payments payments.Provider
	Events   EventPublisher
	Notifier dispatch.Notifier
	WSReg    *dispatch.WSRegistry
	Currency string
}

type Server struct {
	logger   *slog.Logger
	store    storage.RideStore
	search   *search.Service
	router   routing.Client
	payments payments.Provider
	events   EventPublisher
	notifier dispatch.Notifier
	wsreg    *dispatch.WSRegistry
	currency string
	mux      *mux.Router
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	s := &Server{
		logger:   d.Logger,
		store:    d.Store,
		search:   d.Search,
		router:   d.Router,
		payments: d.Payments,
		events:   d.Events,
		notifier: d.Notifier,
		wsreg:    d.WSReg,
		currency: d.Currency,
		mux:      mux.NewRouter(),
	}
	if s.search != nil && s.notifier != nil {
		s.search.OnRefined = s.pushRefined
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides", s.handleCreateRide).Methods("POST")
	s.mux.HandleFunc("/api/v1/rides/search", s.handleSearch).Methods("POST")
	s.mux.HandleFunc("/api/v1/searches/{search_id}", s.handleGetSearch).Methods("GET")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/status", s.handleUpdateRideStatus).Methods("PATCH")
	s.mux.HandleFunc("/api/v1/rides/{ride_id}/bookings", s.handleCreateBooking).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{user_id}", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type searchResponse struct {
	SearchID string                `json:"search_id"`
	Refined  bool                  `json:"refined"`
	Results  []models.SearchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchID: sess.ID,
		Refined:  sess.Refined(),
		Results:  sess.Results(),
	})
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["search_id"]
	sess, ok := s.search.Get(id)
	if !ok {
		http.Error(w, "search not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		SearchID: sess.ID,
		Refined:  sess.Refined(),
		Results:  sess.Results(),
	})
}

func (s *Server) handleCreateRide(w http.ResponseWriter, r *http.Request) {
	var ride models.Ride
	if err := json.NewDecoder(r.Body).Decode(&ride); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ride.Driver.ID == "" || ride.TotalSeats <= 0 || ride.DepartureTime.IsZero() {
		http.Error(w, "driver, seats and departure time are required", http.StatusBadRequest)
		return
	}
	if ride.ID == "" {
		ride.ID = newID()
	}
	ride.Status = models.RideScheduled
	ride.Bookings = nil

	if err := s.store.SaveRide(r.Context(), &ride); err != nil {
		s.logger.Error("ride save failed", "ride_id", ride.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if s.events != nil {
		if err := s.events.PublishRideUpdate(&ride); err != nil {
			s.logger.Warn("ride event publish failed", "ride_id", ride.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusCreated, ride)
}

type statusRequest struct {
	Status models.RideStatus `json:"status"`
}

// statusDriverArrived is a pseudo-status on the status endpoint: it flips the
// ride's driver-arrived flag instead of replacing the lifecycle status.
const statusDriverArrived models.RideStatus = "driver-arrived"

func (s *Server) handleUpdateRideStatus(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var err error
	switch req.Status {
	case statusDriverArrived:
		err = s.store.SetDriverArrived(r.Context(), rideID)
	case models.RideScheduled, models.RideActive, models.RideCompleted, models.RideCancelled:
		err = s.store.UpdateRideStatus(r.Context(), rideID, req.Status)
	default:
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "ride not found", http.StatusNotFound)
			return
		}
		s.logger.Error("status update failed", "ride_id", rideID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	ride, err := s.store.GetRide(r.Context(), rideID)
	if err != nil {
		s.logger.Error("ride reload failed", "ride_id", rideID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	// collect rider IDs before settlement flips booking statuses
	var riders []string
	for _, b := range ride.Bookings {
		if b.Status == models.BookingConfirmed {
			riders = append(riders, b.RiderID)
		}
	}
	if req.Status == models.RideCompleted || req.Status == models.RideCancelled {
		s.settleBookings(r.Context(), ride, req.Status)
	}
	if s.events != nil {
		if err := s.events.PublishRideUpdate(ride); err != nil {
			s.logger.Warn("ride event publish failed", "ride_id", rideID, "error", err)
		}
	}
	if s.notifier != nil {
		for _, riderID := range riders {
			_ = s.notifier.Notify(riderID, dispatch.Event{Type: dispatch.EventRideUpdated, Payload: ride})
		}
	}
	writeJSON(w, http.StatusOK, ride)
}

// settleBookings resolves payment holds when a ride reaches a terminal state:
// completion captures each confirmed booking's hold, cancellation releases it.
// A failed capture or release leaves the booking confirmed for reconciliation.
func (s *Server) settleBookings(ctx context.Context, ride *models.Ride, status models.RideStatus) {
	next := models.BookingCompleted
	if status == models.RideCancelled {
		next = models.BookingCancelled
	}
	for i := range ride.Bookings {
		b := &ride.Bookings[i]
		if b.Status != models.BookingConfirmed {
			continue
		}
		if s.payments != nil && b.PaymentRef != "" {
			var err error
			if status == models.RideCompleted {
				err = s.payments.Capture(ctx, b.PaymentRef)
			} else {
				err = s.payments.Cancel(ctx, b.PaymentRef)
			}
			if err != nil {
				s.logger.Error("payment settlement failed", "booking_id", b.ID, "ref", b.PaymentRef, "error", err)
				continue
			}
		}
		if err := s.store.UpdateBookingStatus(ctx, b.ID, next); err != nil {
			s.logger.Error("booking status update failed", "booking_id", b.ID, "error", err)
			continue
		}
		b.Status = next
	}
}

type bookingRequest struct {
	RiderID      string `json:"rider_id"`
	Seats        int    `json:"seats"`
	VehicleClass string `json:"vehicle_class"`
	CustomerID   string `json:"customer_id"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	rideID := mux.Vars(r)["ride_id"]
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Seats <= 0 {
		req.Seats = 1
	}

	ride, err := s.store.GetRide(r.Context(), rideID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "ride not found", http.StatusNotFound)
			return
		}
		s.logger.Error("ride lookup failed", "ride_id", rideID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if ride.Status != models.RideScheduled {
		http.Error(w, "ride not bookable", http.StatusConflict)
		return
	}
	if ride.AvailableSeats() < req.Seats {
		http.Error(w, "not enough seats", http.StatusConflict)
		return
	}

	amount := s.bookingAmount(r, ride, req)

	b := &models.Booking{
		ID:          newID(),
		RideID:      ride.ID,
		RiderID:     req.RiderID,
		Seats:       req.Seats,
		Status:      models.BookingConfirmed,
		AmountMinor: amount,
		CreatedAt:   time.Now(),
	}

	if s.payments != nil && amount > 0 {
		ref, err := s.payments.Hold(r.Context(), amount, s.currency, req.CustomerID)
		if err != nil {
			observability.PaymentHoldsFailed.Inc()
			s.logger.Error("payment hold failed", "ride_id", ride.ID, "error", err)
			http.Error(w, "payment failed", http.StatusPaymentRequired)
			return
		}
		b.PaymentRef = ref
	}

	if err := s.store.SaveBooking(r.Context(), b); err != nil {
		s.logger.Error("booking save failed", "ride_id", ride.ID, "error", err)
		// release the hold so the rider is not left with frozen funds
		if s.payments != nil && b.PaymentRef != "" {
			_ = s.payments.Cancel(r.Context(), b.PaymentRef)
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	observability.BookingsTotal.Inc()

	if s.events != nil {
		if err := s.events.PublishBooking(b); err != nil {
			s.logger.Warn("booking event publish failed", "booking_id", b.ID, "error", err)
		}
	}
	if s.notifier != nil {
		_ = s.notifier.Notify(ride.Driver.ID, dispatch.Event{Type: dispatch.EventBookingCreated, Payload: b})
	}

	writeJSON(w, http.StatusCreated, b)
}

// bookingAmount prices the booking: the fare model over real routing stats
// when a route is available, otherwise the driver's per-seat price.
func (s *Server) bookingAmount(r *http.Request, ride *models.Ride, req bookingRequest) int64 {
	if s.router != nil && ride.Origin != nil && ride.Destination != nil {
		stats, err := s.router.Route(r.Context(), *ride.Origin, *ride.Destination)
		if err != nil {
			observability.RouteLookupErrors.Inc()
			s.logger.Debug("fare route lookup failed", "ride_id", ride.ID, "error", err)
		} else if f := fare.Estimate(stats, fare.MultiplierFor(req.VehicleClass)); f > 0 {
			return f * int64(req.Seats)
		}
	}
	return ride.PricePerSeat * int64(req.Seats)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsreg == nil {
		http.Error(w, "realtime disabled", http.StatusServiceUnavailable)
		return
	}
	userID := mux.Vars(r)["user_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(userID, conn)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.wsreg.Remove(userID)
				_ = conn.Close()
				return
			}
		}
	}()
}

func (s *Server) pushRefined(sess *search.Session) {
	ev := dispatch.Event{
		Type: dispatch.EventSearchRefined,
		Payload: searchResponse{
			SearchID: sess.ID,
			Refined:  true,
			Results:  sess.Results(),
		},
	}
	if err := s.notifier.Notify(sess.Query.RiderID, ev); err != nil {
		s.logger.Debug("refined push skipped", "search_id", sess.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
