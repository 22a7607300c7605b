package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusride/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBookRideAddsPassengerAndMessage(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 5)
	ride := env.addRide(driver, car, 3, env.clock.Add(2*time.Hour))
	rider := env.addUser(false)

	if err := env.booking.BookRide(ctx, ride.ID, rider, false); err != nil {
		t.Fatalf("BookRide: %v", err)
	}

	stored := env.store.rides[ride.ID]
	if !stored.HasPassenger(rider) {
		t.Fatal("rider not on passenger list")
	}
	if got := stored.SeatsRemaining(); got != 2 {
		t.Fatalf("seats remaining = %d, want 2", got)
	}

	if len(env.store.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(env.store.messages))
	}
	msg := env.store.messages[0]
	if msg.Type != models.MessageTypePassengerJoined || !msg.IsSystem() {
		t.Fatalf("unexpected message: type=%s system=%v", msg.Type, msg.IsSystem())
	}
	if !msg.ReadByUser(rider) {
		t.Fatal("join message not pre-read by the actor")
	}
	if !msg.Timestamp.Equal(env.clock) {
		t.Fatalf("join message timestamp = %v, want %v", msg.Timestamp, env.clock)
	}

	if env.events.count(RideEventBooked) != 1 {
		t.Fatal("expected one booked event")
	}
}

func TestBookRideFullRollsBack(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 3)
	ride := env.addRide(driver, car, 1, env.clock.Add(2*time.Hour))

	first := env.addUser(false)
	if err := env.booking.BookRide(ctx, ride.ID, first, false); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	second := env.addUser(false)
	err := env.booking.BookRide(ctx, ride.ID, second, false)
	if !errors.Is(err, models.ErrRideFull) {
		t.Fatalf("err = %v, want ErrRideFull", err)
	}

	stored := env.store.rides[ride.ID]
	if stored.HasPassenger(second) {
		t.Fatal("failed booking must not add a passenger")
	}
	if len(env.store.messages) != 1 {
		t.Fatalf("messages = %d, want 1 (no message for failed booking)", len(env.store.messages))
	}
}

func TestBookRideRejectsSecondActiveRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driverA := env.addUser(true)
	carA := env.addCar(driverA, 4)
	rideA := env.addRide(driverA, carA, 3, env.clock.Add(2*time.Hour))

	driverB := env.addUser(true)
	carB := env.addCar(driverB, 4)
	rideB := env.addRide(driverB, carB, 3, env.clock.Add(3*time.Hour))

	rider := env.addUser(false)
	if err := env.booking.BookRide(ctx, rideA.ID, rider, false); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	err := env.booking.BookRide(ctx, rideB.ID, rider, false)
	if !errors.Is(err, models.ErrAlreadyInActiveRide) {
		t.Fatalf("err = %v, want ErrAlreadyInActiveRide", err)
	}
}

func TestBookRideSwapMovesPassengerAtomically(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driverA := env.addUser(true)
	carA := env.addCar(driverA, 4)
	rideA := env.addRide(driverA, carA, 3, env.clock.Add(2*time.Hour))

	driverB := env.addUser(true)
	carB := env.addCar(driverB, 4)
	rideB := env.addRide(driverB, carB, 3, env.clock.Add(3*time.Hour))

	rider := env.addUser(false)
	if err := env.booking.BookRide(ctx, rideA.ID, rider, false); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	if err := env.booking.BookRide(ctx, rideB.ID, rider, true); err != nil {
		t.Fatalf("swap booking: %v", err)
	}

	if env.store.rides[rideA.ID].HasPassenger(rider) {
		t.Fatal("rider still on the old ride after swap")
	}
	if !env.store.rides[rideB.ID].HasPassenger(rider) {
		t.Fatal("rider missing from the new ride after swap")
	}

	// join A, leave A, join B
	if len(env.store.messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(env.store.messages))
	}
	if env.events.count(RideEventBookingLeft) != 1 || env.events.count(RideEventBooked) != 2 {
		t.Fatal("swap must publish a left event for the old ride and a booked event for the new one")
	}
}

func TestBookRideSwapRequiresConfirmationEvenWhenTargetFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driverA := env.addUser(true)
	carA := env.addCar(driverA, 4)
	rideA := env.addRide(driverA, carA, 3, env.clock.Add(2*time.Hour))

	driverB := env.addUser(true)
	carB := env.addCar(driverB, 4)
	rideB := env.addRide(driverB, carB, 1, env.clock.Add(3*time.Hour))

	other := env.addUser(false)
	if err := env.booking.BookRide(ctx, rideB.ID, other, false); err != nil {
		t.Fatalf("filler booking: %v", err)
	}

	rider := env.addUser(false)
	if err := env.booking.BookRide(ctx, rideA.ID, rider, false); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Swap into a full ride fails and must keep the old seat.
	err := env.booking.BookRide(ctx, rideB.ID, rider, true)
	if !errors.Is(err, models.ErrRideFull) {
		t.Fatalf("err = %v, want ErrRideFull", err)
	}
	if !env.store.rides[rideA.ID].HasPassenger(rider) {
		t.Fatal("failed swap must roll back the removal from the old ride")
	}
}

func TestBookRideDriverCannotBookOwnRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(2*time.Hour))

	err := env.booking.BookRide(ctx, ride.ID, driver, false)
	if !errors.Is(err, models.ErrAlreadyInActiveRide) {
		t.Fatalf("err = %v, want ErrAlreadyInActiveRide", err)
	}
}

func TestBookRideRejectsStartedRide(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.startedRide(driver, car, 3)

	rider := env.addUser(false)
	err := env.booking.BookRide(ctx, ride.ID, rider, false)
	if !errors.Is(err, models.ErrRideNotBookable) {
		t.Fatalf("err = %v, want ErrRideNotBookable", err)
	}
}

func TestBookRideUnknownRide(t *testing.T) {
	env := newTestEnv()

	rider := env.addUser(false)
	err := env.booking.BookRide(context.Background(), primitive.NewObjectID(), rider, false)
	if !errors.Is(err, models.ErrRideNotFound) {
		t.Fatalf("err = %v, want ErrRideNotFound", err)
	}
}

func TestBookRideConcurrentCapacityRace(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 5)
	ride := env.addRide(driver, car, 2, env.clock.Add(2*time.Hour))

	const contenders = 8
	riders := make([]primitive.ObjectID, contenders)
	for i := range riders {
		riders[i] = env.addUser(false)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.booking.BookRide(ctx, ride.ID, riders[i], false)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, models.ErrRideFull):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 {
		t.Fatalf("successful bookings = %d, want exactly 2", succeeded)
	}
	if got := len(env.store.rides[ride.ID].Passengers); got != 2 {
		t.Fatalf("passengers = %d, want 2", got)
	}
}

func TestCancelBookingThenRepeatFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	ride := env.addRide(driver, car, 3, env.clock.Add(2*time.Hour))

	rider := env.addUser(false)
	if err := env.booking.BookRide(ctx, ride.ID, rider, false); err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := env.booking.CancelBooking(ctx, ride.ID, rider); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if env.store.rides[ride.ID].HasPassenger(rider) {
		t.Fatal("rider still on the ride after cancel")
	}

	err := env.booking.CancelBooking(ctx, ride.ID, rider)
	if !errors.Is(err, models.ErrNotBooked) {
		t.Fatalf("second cancel err = %v, want ErrNotBooked", err)
	}
}

func TestCancelBookingAfterStartFails(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	driver := env.addUser(true)
	car := env.addCar(driver, 4)
	rider := env.addUser(false)
	ride := env.startedRide(driver, car, 3, rider)

	err := env.booking.CancelBooking(ctx, ride.ID, rider)
	if !errors.Is(err, models.ErrRideNotBookable) {
		t.Fatalf("err = %v, want ErrRideNotBookable", err)
	}
}
