package search

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/carpool-search/internal/geocode"
	"github.com/example/carpool-search/internal/match"
	"github.com/example/carpool-search/internal/models"
	"github.com/example/carpool-search/internal/observability"
	"github.com/example/carpool-search/internal/routing"
)

// CandidateSource supplies the scheduled rides a search scores. The storage
// layer implements it; tests substitute fakes.
type CandidateSource interface {
	ListScheduled(ctx context.Context, notBefore time.Time, limit int) ([]models.Ride, error)
}

// Prefilter narrows candidates to those near the pickup point before scoring.
// Optional; the Redis geo index implements it.
type Prefilter interface {
	NearbyRideIDs(ctx context.Context, c models.Coordinates, radiusKm float64, limit int) ([]string, error)
}

// Service runs two-phase ride searches: a synchronous scoring pass over all
// candidates, then an asynchronous refinement of the top results with real
// routing distances. All collaborators are injected.
type Service struct {
	Source   CandidateSource
	Router   routing.Client
	Geocoder geocode.Client
	Prefilt  Prefilter
	Logger   *slog.Logger

	RefineTopN     int
	CandidateLimit int
	RouteTimeout   time.Duration
	SessionTTL     time.Duration
	Now            func() time.Time

	// OnRefined fires after a refinement pass patches a session, so callers
	// can fan the refined snapshot out to connected clients.
	OnRefined func(sess *Session)

	gen      atomic.Uint64
	mu       sync.Mutex
	sessions map[string]*Session
	latest   map[string]uint64 // rider id -> newest search generation
}

func NewService(source CandidateSource, router routing.Client, geocoder geocode.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Source:         source,
		Router:         router,
		Geocoder:       geocoder,
		Logger:         logger,
		RefineTopN:     5,
		CandidateLimit: 50,
		RouteTimeout:   2 * time.Second,
		SessionTTL:     15 * time.Minute,
		Now:            time.Now,
	}
}

// Session holds one search invocation's result snapshot. Phase 2 replaces the
// snapshot wholesale; readers always see either the Phase 1 list or the fully
// patched one, never a half-written state.
type Session struct {
	ID        string
	Query     models.SearchQuery
	CreatedAt time.Time

	gen     uint64
	riderID string
	pickup  *models.Coordinates
	router  routing.Client

	mu      sync.RWMutex
	results []models.SearchResult
	refined bool
	done    chan struct{}
}

// Results returns the current snapshot.
func (s *Session) Results() []models.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SearchResult, len(s.results))
	copy(out, s.results)
	return out
}

// Refined reports whether the Phase 2 patch has been applied.
func (s *Session) Refined() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refined
}

// Done is closed once refinement has finished (patched, skipped, or
// discarded as stale).
func (s *Session) Done() <-chan struct{} { return s.done }

// Search runs Phase 1 synchronously and returns the session immediately;
// Phase 2 refinement proceeds in the background.
func (s *Service) Search(ctx context.Context, q models.SearchQuery) (*Session, error) {
	start := time.Now()
	observability.SearchesTotal.Inc()
	defer func() { observability.SearchLatency.Observe(time.Since(start).Seconds()) }()

	if q.PassengerCount <= 0 {
		q.PassengerCount = 1
	}
	now := s.Now()

	pickup, dropoff := s.resolveCoords(ctx, &q)

	candidates, err := s.listCandidates(ctx, now, pickup)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(candidates))
	for i := range candidates {
		ride := candidates[i]
		seats := ride.AvailableSeats()
		analysis := match.Analyze(&ride, pickup, dropoff, q.DesiredTime, now)
		if analysis.Tier == models.TierNone || seats < q.PassengerCount {
			continue
		}
		results = append(results, models.SearchResult{
			Ride:           ride,
			Match:          analysis,
			AvailableSeats: seats,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Match.Score != results[j].Match.Score {
			return results[i].Match.Score > results[j].Match.Score
		}
		return results[i].Ride.DepartureTime.Before(results[j].Ride.DepartureTime)
	})

	sess := &Session{
		ID:        newID(),
		Query:     q,
		CreatedAt: now,
		gen:       s.gen.Add(1),
		riderID:   q.RiderID,
		pickup:    pickup,
		router:    s.Router,
		results:   results,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[string]*Session)
		s.latest = make(map[string]uint64)
	}
	s.pruneLocked(now)
	s.sessions[sess.ID] = sess
	s.latest[sess.riderID] = sess.gen
	s.mu.Unlock()

	go s.refine(sess)

	s.Logger.Info("search completed",
		"search_id", sess.ID,
		"candidates", len(candidates),
		"results", len(results),
		"passengers", q.PassengerCount,
	)
	return sess, nil
}

// Get returns a previously issued session by id.
func (s *Service) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Service) resolveCoords(ctx context.Context, q *models.SearchQuery) (pickup, dropoff *models.Coordinates) {
	pickup, dropoff = q.PickupCoords, q.DropoffCoords
	if s.Geocoder == nil {
		return pickup, dropoff
	}
	if pickup == nil && q.PickupText != "" {
		c, err := s.Geocoder.Geocode(ctx, q.PickupText)
		if err != nil {
			observability.GeocodeFailures.Inc()
			s.Logger.Warn("pickup geocode failed", "query", q.PickupText, "error", err)
		} else {
			pickup = c
		}
	}
	if dropoff == nil && q.DropoffText != "" {
		c, err := s.Geocoder.Geocode(ctx, q.DropoffText)
		if err != nil {
			observability.GeocodeFailures.Inc()
			s.Logger.Warn("dropoff geocode failed", "query", q.DropoffText, "error", err)
		} else {
			dropoff = c
		}
	}
	return pickup, dropoff
}

func (s *Service) listCandidates(ctx context.Context, now time.Time, pickup *models.Coordinates) ([]models.Ride, error) {
	limit := s.CandidateLimit
	if limit <= 0 {
		limit = 50
	}
	rides, err := s.Source.ListScheduled(ctx, now.Add(-match.GraceWindow), limit)
	if err != nil {
		return nil, err
	}
	if s.Prefilt == nil || pickup == nil {
		return rides, nil
	}
	ids, err := s.Prefilt.NearbyRideIDs(ctx, *pickup, match.PickupGateKm, limit)
	if err != nil {
		s.Logger.Warn("geo prefilter unavailable, scoring all candidates", "error", err)
		return rides, nil
	}
	near := make(map[string]bool, len(ids))
	for _, id := range ids {
		near[id] = true
	}
	out := rides[:0]
	for _, r := range rides {
		// rides without origin coordinates are not in the geo index but still
		// belong in the degraded-mode result set
		if r.Origin == nil || near[r.ID] {
			out = append(out, r)
		}
	}
	return out, nil
}

// refine is Phase 2: real routing lookups for the top results, joined and
// patched into the session as a fresh snapshot.
func (s *Service) refine(sess *Session) {
	defer close(sess.done)

	if sess.router == nil || sess.pickup == nil {
		return
	}
	top := sess.Results()
	n := s.RefineTopN
	if n <= 0 {
		n = 5
	}
	if len(top) > n {
		top = top[:n]
	}

	stats := make([]*models.RoutingStats, len(top))
	var wg sync.WaitGroup
	for i := range top {
		if top[i].Ride.Origin == nil {
			continue
		}
		wg.Add(1)
		go func(i int, origin models.Coordinates) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), s.routeTimeout())
			defer cancel()
			st, err := sess.router.Route(ctx, *sess.pickup, origin)
			if err != nil {
				observability.RouteLookupErrors.Inc()
				s.Logger.Debug("route lookup failed", "ride_id", top[i].Ride.ID, "error", err)
				return
			}
			stats[i] = st
		}(i, *top[i].Ride.Origin)
	}
	wg.Wait()
	observability.RefinementsTotal.Inc()

	byRide := make(map[string]*models.RoutingStats, len(top))
	for i := range top {
		if stats[i] != nil {
			byRide[top[i].Ride.ID] = stats[i]
		}
	}

	// Discard if the rider has searched again since; stale routing data must
	// never overwrite a newer search's snapshot.
	s.mu.Lock()
	stale := s.latest[sess.riderID] != sess.gen
	s.mu.Unlock()
	if stale {
		observability.RefinementsStale.Inc()
		return
	}

	sess.patch(byRide)
	if s.OnRefined != nil {
		s.OnRefined(sess)
	}
}

// patch applies real driving stats copy-on-write: same order, same entries,
// only the refined rides gain driving fields.
func (s *Session) patch(byRide map[string]*models.RoutingStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]models.SearchResult, len(s.results))
	copy(next, s.results)
	for i := range next {
		st, ok := byRide[next[i].Ride.ID]
		if !ok {
			continue
		}
		mins := int(math.Ceil(st.DurationSeconds / 60))
		km := st.DistanceMeters / 1000
		next[i].RealDrivingTimeMin = &mins
		next[i].RealDrivingDistanceKm = &km
	}
	s.results = next
	s.refined = true
}

func (s *Service) routeTimeout() time.Duration {
	if s.RouteTimeout <= 0 {
		return 2 * time.Second
	}
	return s.RouteTimeout
}

func (s *Service) pruneLocked(now time.Time) {
	ttl := s.SessionTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.CreatedAt) > ttl {
			delete(s.sessions, id)
		}
	}
}

func newID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
