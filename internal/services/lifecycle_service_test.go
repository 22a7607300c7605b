package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusride/internal/models"
)

func boolPtr(b bool) *bool { return &b }

func TestCreateRidePublishesPendingRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 5)

	ride, err := env.lifecycle.CreateRide(ctx, driver, &CreateRideRequest{
		CarID:          car,
		AvailableSeats: 3,
		ToCampus:       boolPtr(true),
		Location:       models.Place{Name: "North Gate", Coordinates: []float64{11.58, 48.14}},
		DepartureTime:  env.clock.Add(3 * time.Hour),
		Fare:           2.50,
	})
	if err != nil {
		t.Fatalf("CreateRide: %v", err)
	}

	if ride.State() != models.RideStatePending {
		t.Fatalf("state = %s, want pending", ride.State())
	}
	if ride.SeatsRemaining() != 3 {
		t.Fatalf("seats = %d, want 3", ride.SeatsRemaining())
	}
	if env.events.count(RideEventCreated) != 1 {
		t.Fatal("expected a created event")
	}
}

func TestCreateRideValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	passengerOnly := env.addUser(false)
	otherDriver := env.addUser(true)

	base := func() *CreateRideRequest {
		return &CreateRideRequest{
			CarID:          car,
			AvailableSeats: 3,
			ToCampus:       boolPtr(false),
			Location:       models.Place{Name: "Dorm B", Coordinates: []float64{11.60, 48.15}},
			DepartureTime:  env.clock.Add(2 * time.Hour),
			Fare:           2.0,
		}
	}

	if _, err := env.lifecycle.CreateRide(ctx, passengerOnly, base()); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("non-driver err = %v, want ErrNotAuthorized", err)
	}

	if _, err := env.lifecycle.CreateRide(ctx, otherDriver, base()); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("foreign car err = %v, want ErrNotAuthorized", err)
	}

	tooMany := base()
	tooMany.AvailableSeats = 4 // capacity 4 leaves room for 3 passengers
	if _, err := env.lifecycle.CreateRide(ctx, driver, tooMany); !errors.Is(err, models.ErrInvalidSeats) {
		t.Fatalf("seats err = %v, want ErrInvalidSeats", err)
	}

	past := base()
	past.DepartureTime = env.clock.Add(-time.Minute)
	if _, err := env.lifecycle.CreateRide(ctx, driver, past); !errors.Is(err, models.ErrDepartureInPast) {
		t.Fatalf("past departure err = %v, want ErrDepartureInPast", err)
	}
}

func TestCreateRideRejectsDriverWithActiveRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	env.addRide(driver, car, 3, env.clock.Add(2*time.Hour))

	_, err := env.lifecycle.CreateRide(ctx, driver, &CreateRideRequest{
		CarID:          car,
		AvailableSeats: 2,
		ToCampus:       boolPtr(true),
		Location:       models.Place{Name: "North Gate", Coordinates: []float64{11.58, 48.14}},
		DepartureTime:  env.clock.Add(5 * time.Hour),
	})
	if !errors.Is(err, models.ErrAlreadyInActiveRide) {
		t.Fatalf("err = %v, want ErrAlreadyInActiveRide", err)
	}
}

func TestStartRideDriverOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(time.Hour))
	rider := env.addUser(false)

	if err := env.lifecycle.StartRide(ctx, ride.ID, rider); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("passenger start err = %v, want ErrNotAuthorized", err)
	}

	if err := env.lifecycle.StartRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("StartRide: %v", err)
	}
	if env.store.rides[ride.ID].State() != models.RideStateOngoing {
		t.Fatal("ride not ongoing after start")
	}

	// No system message for a start; the timestamp is the record.
	if len(env.store.messages) != 0 {
		t.Fatalf("messages = %d, want 0", len(env.store.messages))
	}

	if err := env.lifecycle.StartRide(ctx, ride.ID, driver); !errors.Is(err, models.ErrRideNotPending) {
		t.Fatalf("second start err = %v, want ErrRideNotPending", err)
	}
}

func TestCancelRideDepartureWindow(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)

	// One second inside the window: cancellation is refused.
	inside := env.addRide(driver, car, 3, env.clock.Add(30*time.Minute-time.Second))
	err := env.lifecycle.CancelRide(ctx, inside.ID, driver)
	if !errors.Is(err, models.ErrTooCloseToDeparture) {
		t.Fatalf("inside-window cancel err = %v, want ErrTooCloseToDeparture", err)
	}

	// Departure exactly thirty minutes out: still allowed.
	env.store.rides[inside.ID].DepartureTime = env.clock.Add(30 * time.Minute)
	if err := env.lifecycle.CancelRide(ctx, inside.ID, driver); err != nil {
		t.Fatalf("cancel at boundary: %v", err)
	}
	if env.store.rides[inside.ID].State() != models.RideStateCancelled {
		t.Fatal("ride not cancelled")
	}

	if len(env.store.messages) != 1 || env.store.messages[0].Type != models.MessageTypeRideCancelled {
		t.Fatal("cancellation must append a system message")
	}
	if !env.store.messages[0].Timestamp.Equal(env.clock) {
		t.Fatalf("system message timestamp = %v, want %v", env.store.messages[0].Timestamp, env.clock)
	}
	if !env.store.rides[inside.ID].CancelledAt.Equal(env.clock) {
		t.Fatalf("cancelled_at = %v, want %v", env.store.rides[inside.ID].CancelledAt, env.clock)
	}
}

func TestCancelRideNotDriver(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(2*time.Hour))
	rider := env.addUser(false)

	if err := env.lifecycle.CancelRide(ctx, ride.ID, rider); !errors.Is(err, models.ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
}

func TestCompleteRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	rider := env.addUser(false)
	ride := env.startedRide(driver, car, 3, rider)

	if err := env.lifecycle.CompleteRide(ctx, ride.ID, driver); err != nil {
		t.Fatalf("CompleteRide: %v", err)
	}

	stored := env.store.rides[ride.ID]
	if stored.State() != models.RideStateCompleted {
		t.Fatal("ride not completed")
	}
	if got := SettledFare(stored); got != 3.50 {
		t.Fatalf("settled fare = %v, want 3.50 (one passenger)", got)
	}
	if len(env.store.messages) != 1 || env.store.messages[0].Type != models.MessageTypeRideCompleted {
		t.Fatal("completion must append a system message")
	}
}

func TestCompleteRideBlockedWhileSOSAttached(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	rider := env.addUser(false)
	ride := env.startedRide(driver, car, 3, rider)

	responder := env.addUser(true)
	ride.SOS = &models.SOSRecord{
		TriggeredAt: env.clock,
		TriggeredBy: rider,
		RespondedBy: &responder,
	}
	startedAt := env.clock.Add(time.Minute)
	ride.SOS.StartedAt = &startedAt

	// Even a fully underway rescue keeps the original driver locked out.
	err := env.lifecycle.CompleteRide(ctx, ride.ID, driver)
	if !errors.Is(err, models.ErrSOSActive) {
		t.Fatalf("err = %v, want ErrSOSActive", err)
	}
}

func TestCompleteRidePendingFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(time.Hour))

	if err := env.lifecycle.CompleteRide(ctx, ride.ID, driver); !errors.Is(err, models.ErrRideNotOngoing) {
		t.Fatalf("err = %v, want ErrRideNotOngoing", err)
	}
}
