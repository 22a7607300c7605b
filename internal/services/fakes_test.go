package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"campusride/internal/models"
	"campusride/internal/utils"
	"campusride/pkg/logger"
	"campusride/pkg/maps"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is an in-memory stand-in for the mongo repositories. Its
// transaction runner serializes transactions with a mutex and rolls the
// whole store back when fn fails, which matches the atomicity and
// serialization the real store provides.
type fakeStore struct {
	mu       sync.Mutex
	rides    map[primitive.ObjectID]*models.Ride
	signals  []*models.Signal
	messages []*models.Message
	users    map[primitive.ObjectID]*models.User
	cars     map[primitive.ObjectID]*models.Car
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rides: make(map[primitive.ObjectID]*models.Ride),
		users: make(map[primitive.ObjectID]*models.User),
		cars:  make(map[primitive.ObjectID]*models.Car),
	}
}

type txKey struct{}

func (s *fakeStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshotLocked()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}

// lock takes the store mutex unless the context already runs inside a
// transaction, which holds it for its whole extent.
func (s *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type storeSnapshot struct {
	rides    map[primitive.ObjectID]*models.Ride
	signals  []*models.Signal
	messages []*models.Message
}

func (s *fakeStore) snapshotLocked() storeSnapshot {
	snap := storeSnapshot{
		rides:    make(map[primitive.ObjectID]*models.Ride, len(s.rides)),
		signals:  append([]*models.Signal(nil), s.signals...),
		messages: append([]*models.Message(nil), s.messages...),
	}
	for id, r := range s.rides {
		snap.rides[id] = copyRide(r)
	}
	return snap
}

func (s *fakeStore) restoreLocked(snap storeSnapshot) {
	s.rides = snap.rides
	s.signals = snap.signals
	s.messages = snap.messages
}

func copyRide(r *models.Ride) *models.Ride {
	cp := *r
	cp.Passengers = append([]primitive.ObjectID(nil), r.Passengers...)
	if r.SOS != nil {
		sos := *r.SOS
		cp.SOS = &sos
	}
	return &cp
}

// --- ride repository ---

type fakeRideRepo struct{ store *fakeStore }

func (f *fakeRideRepo) Create(ctx context.Context, ride *models.Ride) error {
	defer f.store.lock(ctx)()
	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	if ride.Passengers == nil {
		ride.Passengers = []primitive.ObjectID{}
	}
	f.store.rides[ride.ID] = copyRide(ride)
	return nil
}

func (f *fakeRideRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	return copyRide(ride), nil
}

func (f *fakeRideRepo) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.Ride, error) {
	defer f.store.lock(ctx)()
	for _, ride := range f.store.rides {
		if !ride.IsTerminal() && ride.Involves(userID) {
			return copyRide(ride), nil
		}
	}
	return nil, nil
}

func (f *fakeRideRepo) ListUpcoming(ctx context.Context, toCampus *bool, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	defer f.store.lock(ctx)()
	var out []*models.Ride
	for _, ride := range f.store.rides {
		if ride.State() != models.RideStatePending {
			continue
		}
		if toCampus != nil && ride.ToCampus != *toCampus {
			continue
		}
		out = append(out, copyRide(ride))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, int64(len(out)), nil
}

func (f *fakeRideRepo) ListEmergencies(ctx context.Context) ([]*models.Ride, error) {
	defer f.store.lock(ctx)()
	var out []*models.Ride
	for _, ride := range f.store.rides {
		if ride.SOS != nil && ride.SOS.RespondedBy == nil && !ride.IsTerminal() {
			out = append(out, copyRide(ride))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SOS.TriggeredAt.Before(out[j].SOS.TriggeredAt) })
	return out, nil
}

func (f *fakeRideRepo) ListByDriver(ctx context.Context, driverID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	defer f.store.lock(ctx)()
	var out []*models.Ride
	for _, ride := range f.store.rides {
		if ride.DriverID == driverID {
			out = append(out, copyRide(ride))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeRideRepo) SetPassengers(ctx context.Context, id primitive.ObjectID, passengers []primitive.ObjectID, expectedLen int) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStatePending {
		return models.ErrRideNotBookable
	}
	if len(ride.Passengers) != expectedLen {
		return models.ErrConflict
	}
	ride.Passengers = append([]primitive.ObjectID(nil), passengers...)
	return nil
}

func (f *fakeRideRepo) SetStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStatePending {
		return models.ErrRideNotPending
	}
	ride.StartedAt = &at
	return nil
}

func (f *fakeRideRepo) SetCancelled(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStatePending {
		return models.ErrRideNotPending
	}
	ride.CancelledAt = &at
	return nil
}

func (f *fakeRideRepo) SetCompleted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStateOngoing {
		return models.ErrRideNotOngoing
	}
	ride.CompletedAt = &at
	return nil
}

func (f *fakeRideRepo) SetSOS(ctx context.Context, id primitive.ObjectID, sos *models.SOSRecord) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStateOngoing {
		return models.ErrRideNotOngoing
	}
	if ride.SOS != nil {
		return models.ErrSOSAlreadyActive
	}
	cp := *sos
	ride.SOS = &cp
	return nil
}

func (f *fakeRideRepo) ClaimSOS(ctx context.Context, id primitive.ObjectID, responderID, carID primitive.ObjectID) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.State() != models.RideStateOngoing {
		return models.ErrRideNotOngoing
	}
	if ride.SOS == nil {
		return models.ErrSOSNotActive
	}
	if ride.SOS.RespondedBy != nil {
		return models.ErrAlreadyResponded
	}
	ride.SOS.RespondedBy = &responderID
	ride.SOS.CarID = &carID
	return nil
}

func (f *fakeRideRepo) SetSOSStarted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	defer f.store.lock(ctx)()
	ride, ok := f.store.rides[id]
	if !ok {
		return models.ErrRideNotFound
	}
	if ride.SOS == nil {
		return models.ErrSOSNotActive
	}
	if ride.SOS.RespondedBy == nil {
		return models.ErrSOSNotStarted
	}
	if ride.SOS.StartedAt != nil {
		return models.ErrSOSAlreadyStarted
	}
	ride.SOS.StartedAt = &at
	return nil
}

// --- signal repository ---

type fakeSignalRepo struct{ store *fakeStore }

func (f *fakeSignalRepo) Append(ctx context.Context, signal *models.Signal) error {
	defer f.store.lock(ctx)()
	if signal.ID.IsZero() {
		signal.ID = primitive.NewObjectID()
	}
	cp := *signal
	f.store.signals = append(f.store.signals, &cp)
	return nil
}

func (f *fakeSignalRepo) LatestByUser(ctx context.Context, rideID, userID primitive.ObjectID) (*models.Signal, error) {
	defer f.store.lock(ctx)()
	var latest *models.Signal
	for _, sig := range f.store.signals {
		if sig.RideID != rideID || sig.UserID != userID {
			continue
		}
		if latest == nil || !sig.Timestamp.Before(latest.Timestamp) {
			latest = sig
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeSignalRepo) ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Signal, error) {
	defer f.store.lock(ctx)()
	var out []*models.Signal
	for i := len(f.store.signals) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if f.store.signals[i].RideID == rideID {
			cp := *f.store.signals[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- message repository ---

type fakeMessageRepo struct{ store *fakeStore }

func (f *fakeMessageRepo) Append(ctx context.Context, message *models.Message) error {
	defer f.store.lock(ctx)()
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	if message.ReadBy == nil {
		message.ReadBy = []primitive.ObjectID{}
	}
	cp := *message
	cp.ReadBy = append([]primitive.ObjectID(nil), message.ReadBy...)
	f.store.messages = append(f.store.messages, &cp)
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	defer f.store.lock(ctx)()
	for _, msg := range f.store.messages {
		if msg.ID == id {
			cp := *msg
			cp.ReadBy = append([]primitive.ObjectID(nil), msg.ReadBy...)
			return &cp, nil
		}
	}
	return nil, models.ErrMessageNotFound
}

func (f *fakeMessageRepo) ListByRide(ctx context.Context, rideID primitive.ObjectID, limit int64) ([]*models.Message, error) {
	defer f.store.lock(ctx)()
	var out []*models.Message
	for _, msg := range f.store.messages {
		if msg.RideID != rideID {
			continue
		}
		cp := *msg
		cp.ReadBy = append([]primitive.ObjectID(nil), msg.ReadBy...)
		out = append(out, &cp)
		if int64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, id primitive.ObjectID, userID primitive.ObjectID) error {
	defer f.store.lock(ctx)()
	for _, msg := range f.store.messages {
		if msg.ID != id {
			continue
		}
		for _, reader := range msg.ReadBy {
			if reader == userID {
				return nil
			}
		}
		msg.ReadBy = append(msg.ReadBy, userID)
		return nil
	}
	return models.ErrMessageNotFound
}

// --- user and car repositories ---

type fakeUserRepo struct{ store *fakeStore }

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer f.store.lock(ctx)()
	user, ok := f.store.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	defer f.store.lock(ctx)()
	var out []*models.User
	for _, id := range ids {
		if user, ok := f.store.users[id]; ok {
			cp := *user
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) ListDriverIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	defer f.store.lock(ctx)()
	var ids []primitive.ObjectID
	for id, user := range f.store.users {
		if user.IsDriver {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeCarRepo struct{ store *fakeStore }

func (f *fakeCarRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Car, error) {
	defer f.store.lock(ctx)()
	car, ok := f.store.cars[id]
	if !ok {
		return nil, models.ErrCarNotFound
	}
	cp := *car
	return &cp, nil
}

func (f *fakeCarRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.Car, error) {
	defer f.store.lock(ctx)()
	var out []*models.Car
	for _, car := range f.store.cars {
		if car.DriverID == driverID {
			cp := *car
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- event, sms, maps and cache fakes ---

type fakeEvents struct {
	mu     sync.Mutex
	events []*RideEvent
}

func (f *fakeEvents) PublishRideEvent(ctx context.Context, event *RideEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeEvents) count(typ RideEventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func (f *fakeEvents) last() *RideEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	return f.events[len(f.events)-1]
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []string // "to|body"
}

func (f *fakeSMS) SendSMS(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to+"|"+body)
	return nil
}

type fakeMaps struct {
	mu       sync.Mutex
	requests []*maps.DirectionsRequest
	route    maps.Route
}

func (f *fakeMaps) GetDirections(ctx context.Context, request *maps.DirectionsRequest) (*maps.DirectionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
	return &maps.DirectionsResponse{Routes: []maps.Route{f.route}}, nil
}

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.entries[key]
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.entries[key] = data
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

func (f *fakeCache) Publish(ctx context.Context, channel string, message interface{}) error {
	return nil
}

// --- test environment ---

func testLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel})
	log.SetOutput(io.Discard)
	return log
}

type testEnv struct {
	store     *fakeStore
	rides     *fakeRideRepo
	signals   *fakeSignalRepo
	messages  *fakeMessageRepo
	users     *fakeUserRepo
	cars      *fakeCarRepo
	events    *fakeEvents
	sms       *fakeSMS
	booking   *BookingService
	lifecycle *LifecycleService
	sos       *SOSService
	signalSvc *SignalService
	messaging *MessageService
	clock     time.Time
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	env := &testEnv{
		store:    store,
		rides:    &fakeRideRepo{store: store},
		signals:  &fakeSignalRepo{store: store},
		messages: &fakeMessageRepo{store: store},
		users:    &fakeUserRepo{store: store},
		cars:     &fakeCarRepo{store: store},
		events:   &fakeEvents{},
		sms:      &fakeSMS{},
		clock:    time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	log := testLogger()

	env.booking = NewBookingService(env.rides, env.messages, store, env.events, log)
	env.booking.now = env.now
	env.lifecycle = NewLifecycleService(env.rides, env.cars, env.users, env.messages, store, env.events, log)
	env.lifecycle.now = env.now
	env.sos = NewSOSService(env.rides, env.cars, env.users, env.messages, store, env.events, env.sms, log)
	env.sos.now = env.now
	env.signalSvc = NewSignalService(env.rides, env.signals, store, env.events, log)
	env.signalSvc.now = env.now
	env.messaging = NewMessageService(env.rides, env.messages, store, env.events, log)
	env.messaging.now = env.now
	return env
}

func (e *testEnv) now() time.Time {
	return e.clock
}

func (e *testEnv) addUser(isDriver bool) primitive.ObjectID {
	id := primitive.NewObjectID()
	e.store.users[id] = &models.User{
		ID:          id,
		FirstName:   "Test",
		LastName:    "User",
		IsDriver:    isDriver,
		IsPassenger: true,
		Status:      models.UserStatusActive,
		Notifications: models.NotificationPrefs{
			PushEnabled: true,
			SMSEnabled:  true,
		},
	}
	return id
}

func (e *testEnv) addCar(driverID primitive.ObjectID, capacity int) primitive.ObjectID {
	id := primitive.NewObjectID()
	e.store.cars[id] = &models.Car{
		ID:           id,
		DriverID:     driverID,
		Make:         "Toyota",
		Model:        "Corolla",
		LicensePlate: "CAMPUS-1",
		Capacity:     capacity,
	}
	return id
}

func (e *testEnv) addRide(driverID, carID primitive.ObjectID, seats int, departure time.Time) *models.Ride {
	ride := &models.Ride{
		ID:             primitive.NewObjectID(),
		DriverID:       driverID,
		CarID:          carID,
		Passengers:     []primitive.ObjectID{},
		AvailableSeats: seats,
		ToCampus:       true,
		Location: models.Place{
			Name:        "Main Library",
			Coordinates: []float64{11.5820, 48.1351},
		},
		DepartureTime: departure,
		Fare:          3.50,
		CreatedAt:     e.clock,
	}
	e.store.rides[ride.ID] = ride
	return ride
}

// startedRide puts a ride directly into the ongoing state.
func (e *testEnv) startedRide(driverID, carID primitive.ObjectID, seats int, passengers ...primitive.ObjectID) *models.Ride {
	ride := e.addRide(driverID, carID, seats, e.clock.Add(-time.Hour))
	at := e.clock.Add(-30 * time.Minute)
	ride.StartedAt = &at
	ride.Passengers = append(ride.Passengers, passengers...)
	return ride
}
