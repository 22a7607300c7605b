package services

import (
	"context"
	"testing"
	"time"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestActiveRideForUsesCache(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	cache := newFakeCache()
	svc := NewMembershipService(env.rides, cache, testLogger())

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(time.Hour))
	rider := env.addUser(false)
	if err := env.booking.BookRide(ctx, ride.ID, rider, false); err != nil {
		t.Fatalf("book: %v", err)
	}

	got, err := svc.ActiveRideFor(ctx, rider)
	if err != nil {
		t.Fatalf("ActiveRideFor: %v", err)
	}
	if got == nil || got.ID != ride.ID {
		t.Fatal("expected the booked ride")
	}

	// Remove the ride behind the cache's back; the cached copy still serves.
	delete(env.store.rides, ride.ID)
	cached, err := svc.ActiveRideFor(ctx, rider)
	if err != nil {
		t.Fatalf("cached ActiveRideFor: %v", err)
	}
	if cached == nil || cached.ID != ride.ID {
		t.Fatal("expected the cached ride")
	}

	// Invalidation falls through to the store again.
	svc.InvalidateActiveRide(ctx, rider)
	fresh, err := svc.ActiveRideFor(ctx, rider)
	if err != nil {
		t.Fatalf("fresh ActiveRideFor: %v", err)
	}
	if fresh != nil {
		t.Fatal("expected no active ride after invalidation")
	}
}

func TestActiveRideForNilWithoutCache(t *testing.T) {
	env := newTestEnv()
	svc := NewMembershipService(env.rides, nil, testLogger())

	got, err := svc.ActiveRideFor(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("ActiveRideFor: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for a free user")
	}
}

func TestListUpcomingFiltersDirectionAndState(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	svc := NewMembershipService(env.rides, nil, testLogger())

	driverA := env.addUser(true)
	carA := env.addCar(driverA, 4)
	toCampus := env.addRide(driverA, carA, 3, env.clock.Add(time.Hour))

	driverB := env.addUser(true)
	carB := env.addCar(driverB, 4)
	fromCampus := env.addRide(driverB, carB, 3, env.clock.Add(2*time.Hour))
	env.store.rides[fromCampus.ID].ToCampus = false

	driverC := env.addUser(true)
	carC := env.addCar(driverC, 4)
	env.startedRide(driverC, carC, 3) // ongoing, never listed

	all, total, err := svc.ListUpcoming(ctx, nil, nil)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("total = %d len = %d, want 2", total, len(all))
	}
	if all[0].ID != toCampus.ID {
		t.Fatal("rides must come back ordered by departure time")
	}

	inbound := true
	filtered, _, err := svc.ListUpcoming(ctx, &inbound, nil)
	if err != nil {
		t.Fatalf("filtered ListUpcoming: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != toCampus.ID {
		t.Fatal("direction filter must keep only inbound rides")
	}
}

func TestGetRideVisibility(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	svc := NewMembershipService(env.rides, nil, testLogger())

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	rider := env.addUser(false)
	stranger := env.addUser(false)

	pending := env.addRide(driver, car, 3, env.clock.Add(time.Hour))
	if _, err := svc.GetRide(ctx, pending.ID, stranger); err != nil {
		t.Fatalf("pending rides are public: %v", err)
	}

	ongoing := env.startedRide(env.addUser(true), env.addCar(driver, 4), 3, rider)
	if _, err := svc.GetRide(ctx, ongoing.ID, rider); err != nil {
		t.Fatalf("participant view: %v", err)
	}
	if _, err := svc.GetRide(ctx, ongoing.ID, stranger); err != models.ErrNotAuthorized {
		t.Fatalf("stranger view err = %v, want ErrNotAuthorized", err)
	}
}
