package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/config"
	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/repositories/memory"
	"ridepair/pkg/cache"
	"ridepair/pkg/logger"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, notifications ...*models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notifications...)
}

// byType returns the recipients of every notification of the given type.
func (r *recordingNotifier) byType(nType models.NotificationType) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []string
	for _, n := range r.sent {
		if n.Type == nType {
			users = append(users, n.UserID)
		}
	}
	return users
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	r.sent = nil
	r.mu.Unlock()
}

type rideFixture struct {
	svc      *rideService
	store    *memory.RideStore
	cache    *cache.MemoryCache
	notifier *recordingNotifier
}

func sequenceOTP(codes ...string) models.OTPGenerator {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		if i < len(codes) {
			code := codes[i]
			i++
			return code
		}
		i++
		return strconv.Itoa(1000 + i)
	}
}

func setupRideService(t *testing.T) *rideFixture {
	t.Helper()
	store := memory.NewRideStore()
	c := cache.NewMemoryCache()
	notifier := &recordingNotifier{}

	svc := NewRideService(store, c, notifier, &config.LifecycleConfig{
		CommitAttempts: 3,
		OTPMaxAttempts: 5,
		OTPWindow:      10 * time.Minute,
	}, logger.NewNop()).(*rideService)

	return &rideFixture{svc: svc, store: store, cache: c, notifier: notifier}
}

func rideDetails() models.RideDetails {
	return models.RideDetails{
		FromLocation: "North Campus",
		ToLocation:   "Central Station",
		DateTime:     time.Date(2026, 10, 20, 8, 30, 0, 0, time.UTC),
		SharedCost:   40,
		VehicleType:  models.VehicleTypeScooty,
	}
}

func (f *rideFixture) offer(t *testing.T, driverID string) *models.Ride {
	t.Helper()
	ride, err := f.svc.CreateOffer(context.Background(), driverID, rideDetails())
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	return ride
}

func (f *rideFixture) join(t *testing.T, passengerID string, ride *models.Ride) *models.RideRequest {
	t.Helper()
	req, err := f.svc.RequestToJoin(context.Background(), passengerID, ride.ID, "")
	if err != nil {
		t.Fatalf("RequestToJoin(%s) failed: %v", passengerID, err)
	}
	return req
}

// confirmed returns an offer by driver-1 accepted for passenger-1.
func (f *rideFixture) confirmed(t *testing.T) (*models.Ride, *models.RideRequest) {
	t.Helper()
	ride := f.offer(t, "driver-1")
	req := f.join(t, "passenger-1", ride)
	if _, err := f.svc.AcceptRequest(context.Background(), "driver-1", req.ID); err != nil {
		t.Fatalf("AcceptRequest failed: %v", err)
	}
	return f.stored(t, ride), req
}

func (f *rideFixture) started(t *testing.T) *models.Ride {
	t.Helper()
	ctx := context.Background()
	ride, _ := f.confirmed(t)
	if _, err := f.svc.VerifyOTP(ctx, "driver-1", ride.ID, ride.RideOTP); err != nil {
		t.Fatalf("VerifyOTP failed: %v", err)
	}
	f.svc.ConfirmStart(ctx, "driver-1", ride.ID)
	if _, err := f.svc.ConfirmStart(ctx, "passenger-1", ride.ID); err != nil {
		t.Fatalf("ConfirmStart failed: %v", err)
	}
	return f.stored(t, ride)
}

func (f *rideFixture) stored(t *testing.T, ride *models.Ride) *models.Ride {
	t.Helper()
	got, err := f.store.GetRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("GetRide failed: %v", err)
	}
	return got
}

func (f *rideFixture) request(t *testing.T, req *models.RideRequest) *models.RideRequest {
	t.Helper()
	got, err := f.store.GetRideRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetRideRequest failed: %v", err)
	}
	return got
}

// flakyStore wraps a RideStore and lets tests inject commit and read failures.
type flakyStore struct {
	interfaces.RideStore
	mu        sync.Mutex
	commits   int
	commitErr error
	getErr    error
}

func (s *flakyStore) GetRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.RideStore.GetRide(ctx, id)
}

func (s *flakyStore) Commit(ctx context.Context, batch *interfaces.Batch) error {
	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	return s.RideStore.Commit(ctx, batch)
}
