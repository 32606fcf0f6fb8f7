package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
)

func setupStoreWithOffer(t *testing.T) (*RideStore, *models.Ride) {
	t.Helper()
	store := NewRideStore()
	ride := models.NewOfferRide("driver-1", models.RideDetails{
		FromLocation: "A",
		ToLocation:   "B",
		DateTime:     time.Now().Add(time.Hour),
	}, time.Now())
	if err := store.CreateRide(context.Background(), ride); err != nil {
		t.Fatalf("CreateRide failed: %v", err)
	}
	return store, ride
}

func TestRideStore_CreateAndGet(t *testing.T) {
	store, ride := setupStoreWithOffer(t)

	got, err := store.GetRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("GetRide failed: %v", err)
	}
	if got.Version != 1 || got.Status != models.RideStatusOffering {
		t.Errorf("Unexpected ride %+v", got)
	}

	// Mutating the returned copy must not leak into the store.
	got.Status = models.RideStatusCancelled
	again, _ := store.GetRide(context.Background(), ride.ID)
	if again.Status != models.RideStatusOffering {
		t.Error("Store returned a shared pointer")
	}
}

func TestRideStore_CommitVersionGuard(t *testing.T) {
	ctx := context.Background()
	store, ride := setupStoreWithOffer(t)

	first, _ := store.GetRide(ctx, ride.ID)
	second, _ := store.GetRide(ctx, ride.ID)

	first.Notes = "first writer"
	b := &interfaces.Batch{}
	b.PutRide(first, first.Version)
	if err := store.Commit(ctx, b); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	second.Notes = "second writer"
	b = &interfaces.Batch{}
	b.PutRide(second, second.Version)
	if err := store.Commit(ctx, b); !errors.Is(err, models.ErrStaleState) {
		t.Fatalf("Expected ErrStaleState, got %v", err)
	}

	stored, _ := store.GetRide(ctx, ride.ID)
	if stored.Notes != "first writer" || stored.Version != 2 {
		t.Errorf("Unexpected stored ride notes=%q version=%d", stored.Notes, stored.Version)
	}
}

func TestRideStore_CommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store, ride := setupStoreWithOffer(t)

	req := &models.RideRequest{RideID: ride.ID, PassengerID: "p1", Status: models.RideRequestStatusPending, CreatedAt: time.Now()}
	b := &interfaces.Batch{}
	b.InsertRequest(req)
	if err := store.Commit(ctx, b); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// The request guard fails, so the ride write must not land either.
	current, _ := store.GetRide(ctx, ride.ID)
	current.Notes = "changed"
	resolved := req.Clone()
	resolved.Resolve(models.RideRequestStatusAccepted, time.Now())

	b = &interfaces.Batch{}
	b.PutRide(current, current.Version)
	b.PutRequest(resolved, models.RideRequestStatusRejected)
	if err := store.Commit(ctx, b); !errors.Is(err, models.ErrStaleState) {
		t.Fatalf("Expected ErrStaleState, got %v", err)
	}

	stored, _ := store.GetRide(ctx, ride.ID)
	if stored.Notes == "changed" {
		t.Error("Ride write landed despite a failed guard")
	}
	storedReq, _ := store.GetRideRequest(ctx, req.ID)
	if storedReq.Status != models.RideRequestStatusPending {
		t.Errorf("Expected pending request, got %s", storedReq.Status)
	}
}

func TestRideStore_ListRides(t *testing.T) {
	ctx := context.Background()
	store := NewRideStore()
	base := time.Now().Add(time.Hour)

	for i, driver := range []string{"d1", "d2", "d3"} {
		ride := models.NewOfferRide(driver, models.RideDetails{FromLocation: "A", ToLocation: "B", DateTime: base.Add(time.Duration(i) * time.Minute)}, time.Now())
		store.CreateRide(ctx, ride)
	}
	store.CreateRide(ctx, models.NewRequestRide("p1", models.RideDetails{FromLocation: "A", ToLocation: "B", DateTime: base}, time.Now()))

	open, total, _ := store.ListRides(ctx, interfaces.RideFilter{
		Statuses:           []models.RideStatus{models.RideStatusOffering},
		ExcludeParticipant: "d2",
	}, &utils.PaginationParams{Page: 1, PageSize: 10})
	if total != 2 || len(open) != 2 {
		t.Fatalf("Expected 2 open offers, got %d", total)
	}
	if !open[0].IsDriver("d1") || !open[1].IsDriver("d3") {
		t.Error("Expected rides ordered by departure time")
	}

	page, total, _ := store.ListRides(ctx, interfaces.RideFilter{}, &utils.PaginationParams{Page: 2, PageSize: 3})
	if total != 4 || len(page) != 1 {
		t.Errorf("Expected 1 ride on page 2 of 4 total, got %d of %d", len(page), total)
	}
}

func TestRideStore_ListRidesPastLastPage(t *testing.T) {
	ctx := context.Background()
	store, _ := setupStoreWithOffer(t)

	rides, total, err := store.ListRides(ctx, interfaces.RideFilter{}, &utils.PaginationParams{Page: 1 << 62, PageSize: 20})
	if err != nil {
		t.Fatalf("ListRides failed: %v", err)
	}
	if total != 1 || len(rides) != 0 {
		t.Errorf("Expected an empty page of 1 ride, got %d rides, total %d", len(rides), total)
	}
}
